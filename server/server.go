package server

import (
	"crypto/tls"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
	"golang.org/x/crypto/acme/autocert"

	"github.com/finsighthq/finsight/handlers"
)

type Config struct {
	Domains      []string
	CertCacheDir string
	HTTPPort     string
	HTTPSPort    string
}

// Handlers bundles everything SetupRoutes wires into the router.
type Handlers struct {
	Upload   *handlers.UploadHandler
	Chat     *handlers.ChatHandler
	Document *handlers.DocumentHandler
	Health   *handlers.HealthHandler
}

func SetupRoutes(h Handlers) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/documents", h.Upload).Methods("POST")
	r.HandleFunc("/documents", h.Document.List).Methods("GET")
	r.HandleFunc("/documents/{id}", h.Document.Delete).Methods("DELETE")
	r.HandleFunc("/documents/{id}/reprocess", h.Document.Reprocess).Methods("POST")
	r.HandleFunc("/documents/{id}/summary", h.Document.Summarize).Methods("POST")
	r.Handle("/chat", h.Chat).Methods("POST")
	r.Handle("/health", h.Health).Methods("GET")

	return r
}

// ServeProduction serves HTTPS with autocert-managed certificates and
// redirects plain HTTP to HTTPS.
func ServeProduction(n *negroni.Negroni, cfg Config) {
	autocertManager := autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.Domains...),
		Cache:      autocert.DirCache(cfg.CertCacheDir),
	}

	// Serve ACME "http-01" challenges on port 80 and redirect everything
	// else to HTTPS.
	go func() {
		srv := &http.Server{
			Addr:         ":80",
			Handler:      autocertManager.HTTPHandler(nil),
			IdleTimeout:  time.Minute,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		log.Fatal(srv.ListenAndServe())
	}()

	tlsConfig := &tls.Config{
		GetCertificate:   autocertManager.GetCertificate,
		CurvePreferences: []tls.CurveID{tls.X25519, tls.CurveP256},
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPSPort,
		Handler:      n,
		TLSConfig:    tlsConfig,
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	// Key and cert are provided by autocert.
	log.Fatal(srv.ListenAndServeTLS("", ""))
}

// ServeDevelopment starts a plain HTTP server.
func ServeDevelopment(s *http.Server) {
	log.Fatal(s.ListenAndServe())
}
