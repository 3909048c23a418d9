package extraction_service

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/finsighthq/finsight/rag_type"
)

// Supported media types. Dispatch is by the declared type, never by
// content sniffing.
const (
	TypePDF          = "application/pdf"
	TypeWord         = "application/msword"
	TypeWordX        = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	TypeSpreadsheet  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	TypePresentation = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

type extractFunc func(e *DocumentExtractor, data []byte) (*rag_type.ParsedContent, error)

// Closed handler table: adding a format means adding an entry here and a
// handler below, nothing is resolved at runtime.
var extractors = map[string]extractFunc{
	TypePDF:          (*DocumentExtractor).extractPDF,
	TypeWord:         (*DocumentExtractor).extractWord,
	TypeWordX:        (*DocumentExtractor).extractWord,
	TypeSpreadsheet:  (*DocumentExtractor).extractSpreadsheet,
	TypePresentation: (*DocumentExtractor).extractPresentation,
}

var extensionTypes = map[string]string{
	".pdf":  TypePDF,
	".doc":  TypeWord,
	".docx": TypeWordX,
	".xlsx": TypeSpreadsheet,
	".pptx": TypePresentation,
}

// MediaTypeForExtension maps a file extension onto a supported media type,
// used when the upload does not declare a usable Content-Type.
func MediaTypeForExtension(ext string) (string, bool) {
	mediaType, ok := extensionTypes[strings.ToLower(ext)]
	return mediaType, ok
}

type DocumentExtractor struct {
	logger *slog.Logger
}

func NewDocumentExtractor(logger *slog.Logger) *DocumentExtractor {
	return &DocumentExtractor{
		logger: logger,
	}
}

// Extract converts a raw file into plain text plus structural metadata.
// Unknown media types fail with ErrUnsupportedFormat; recognized but
// extractorless formats fail with NotImplementedError; empty output fails
// with ErrEmptyDocument.
func (e *DocumentExtractor) Extract(data []byte, mediaType string) (*rag_type.ParsedContent, error) {
	handler, ok := extractors[mediaType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", rag_type.ErrUnsupportedFormat, mediaType)
	}

	parsed, err := handler(e, data)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(parsed.Text) == "" {
		return nil, rag_type.ErrEmptyDocument
	}

	return parsed, nil
}

func (e *DocumentExtractor) extractPDF(data []byte) (*rag_type.ParsedContent, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.logger.Error("Failed to create PDF reader",
			slog.String("error", err.Error()),
			slog.Int("data_size", len(data)))
		return nil, &rag_type.ParseError{Cause: err}
	}

	totalPages := reader.NumPage()
	e.logger.Debug("Starting PDF text extraction",
		slog.Int("total_pages", totalPages))

	var text strings.Builder
	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			e.logger.Warn("Null page encountered",
				slog.Int("page_number", pageIndex))
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Error("Failed to extract text from page",
				slog.Int("page_number", pageIndex),
				slog.String("error", err.Error()))
			return nil, &rag_type.ParseError{Cause: fmt.Errorf("page %d: %v", pageIndex, err)}
		}

		text.WriteString(pageText)
	}

	e.logger.Info("Extracted text from PDF",
		slog.Int("total_pages", totalPages),
		slog.Int("text_length", text.Len()))

	return &rag_type.ParsedContent{
		Text: text.String(),
		Metadata: rag_type.DocumentMetadata{
			Pages: totalPages,
		},
	}, nil
}

func (e *DocumentExtractor) extractWord(data []byte) (*rag_type.ParsedContent, error) {
	e.logger.Debug("Starting Word document text extraction",
		slog.Int("data_size", len(data)))

	result, err := docconv.Convert(bytes.NewReader(data), TypeWordX, false)
	if err != nil {
		e.logger.Error("Failed to convert Word document",
			slog.String("error", err.Error()),
			slog.Int("data_size", len(data)))
		return nil, &rag_type.ParseError{Cause: err}
	}

	metadata := rag_type.DocumentMetadata{}
	if result.Meta != nil {
		metadata.Title = result.Meta["Title"]
		metadata.Author = result.Meta["Author"]
	}

	e.logger.Info("Extracted text from Word document",
		slog.Int("text_length", len(result.Body)))

	return &rag_type.ParsedContent{
		Text:     result.Body,
		Metadata: metadata,
	}, nil
}

// extractSpreadsheet serializes each sheet as a labeled block of
// pipe-joined rows. Unreadable sheets are skipped and recorded in the
// metadata instead of failing the whole workbook; the structured rows are
// retained for consumers that want more than flattened text.
func (e *DocumentExtractor) extractSpreadsheet(data []byte) (*rag_type.ParsedContent, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		e.logger.Error("Failed to open spreadsheet",
			slog.String("error", err.Error()),
			slog.Int("data_size", len(data)))
		return nil, &rag_type.ParseError{Cause: err}
	}
	defer workbook.Close()

	metadata := rag_type.DocumentMetadata{
		Title: "Excel Spreadsheet",
	}

	var text strings.Builder
	for _, sheetName := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheetName)
		if err != nil {
			e.logger.Warn("Skipping unreadable sheet",
				slog.String("sheet", sheetName),
				slog.String("error", err.Error()))
			metadata.SkippedSheets = append(metadata.SkippedSheets, sheetName)
			continue
		}

		metadata.SheetNames = append(metadata.SheetNames, sheetName)
		if len(rows) == 0 {
			continue
		}
		metadata.Tables = append(metadata.Tables, rag_type.SheetTable{
			SheetName: sheetName,
			Rows:      rows,
		})

		text.WriteString("Sheet: " + sheetName + "\n")
		for _, row := range rows {
			text.WriteString(strings.Join(row, " | "))
			text.WriteString("\n")
		}
		text.WriteString("\n")
	}

	if props, err := workbook.GetDocProps(); err == nil && props != nil {
		if props.Title != "" {
			metadata.Title = props.Title
		}
		metadata.Author = props.Creator
	}

	e.logger.Info("Extracted text from spreadsheet",
		slog.Int("sheets", len(metadata.SheetNames)),
		slog.Int("skipped_sheets", len(metadata.SkippedSheets)),
		slog.Int("text_length", text.Len()))

	return &rag_type.ParsedContent{
		Text:     text.String(),
		Metadata: metadata,
	}, nil
}

func (e *DocumentExtractor) extractPresentation(data []byte) (*rag_type.ParsedContent, error) {
	// No extractor wired yet. Fail loudly so callers can branch on it
	// rather than indexing an empty document.
	return nil, &rag_type.NotImplementedError{Format: "presentation"}
}
