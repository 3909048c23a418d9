package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment         string
	HTTPPort            string
	HTTPSPort           string
	Domains             []string
	CertCacheDir        string
	DatabaseURL         string
	OpenAIAPIKey        string
	EmbeddingModel      string
	ChatModel           string
	MaxUploadBytes      int64
	SearchLimit         int
	LexicalScore        float64
	BranchTimeout       time.Duration
	MaintenanceInterval time.Duration
}

var isTest bool

func init() {
	isTest = os.Getenv("GO_ENVIRONMENT") == "test"
	if !isTest {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Error loading .env file:", err)
		}
	}
}

func Load() Config {
	return Config{
		Environment:         getEnv("ENVIRONMENT", "development"),
		HTTPPort:            getEnv("HTTP_PORT", "8090"),
		HTTPSPort:           getEnv("HTTPS_PORT", "443"),
		Domains:             []string{getEnv("DOMAIN", "example.com")},
		CertCacheDir:        getEnv("CERT_CACHE_DIR", "certs"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		ChatModel:           getEnv("CHAT_MODEL", "gpt-4o-mini"),
		MaxUploadBytes:      int64(getEnvAsInt("MAX_UPLOAD_BYTES", 50<<20)),
		SearchLimit:         getEnvAsInt("SEARCH_LIMIT", 5),
		LexicalScore:        getEnvAsFloat("LEXICAL_SCORE", 0.5),
		BranchTimeout:       time.Duration(getEnvAsInt("SEARCH_BRANCH_TIMEOUT", 10)) * time.Second,
		MaintenanceInterval: time.Duration(getEnvAsInt("INDEX_MAINTENANCE_MINUTES", 60)) * time.Minute,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
