package services

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	mimeText    = "text/plain"
	mimePDF     = "application/pdf"
	mimeDoc     = "application/msword"
	mimeDocx    = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeGeneric = "application/octet-stream"

	maxPDFSize = 10 << 20 // 10 MiB
)

// Extraction is the successful outcome of text extraction. Warning is set
// when the document was processed but yielded nothing usable (for example an
// image-only PDF).
type Extraction struct {
	Text    string
	Warning string
}

type ExtractorService interface {
	ExtractText(data []byte, declaredMIME string) (*Extraction, error)
}

type extractorService struct{}

func NewExtractorService() ExtractorService {
	return &extractorService{}
}

func (s *extractorService) ExtractText(data []byte, declaredMIME string) (*Extraction, error) {
	mime := normalizeMIME(declaredMIME)
	log.Printf("📥 Extracting text: mime=%s size=%d bytes", mime, len(data))

	switch mime {
	case mimeText:
		if !utf8.Valid(data) {
			return nil, newExtractionError(ExtractReadError,
				"The file could not be read as text.",
				"input is not valid UTF-8")
		}
		return &Extraction{Text: string(data)}, nil

	case mimePDF:
		if int64(len(data)) > maxPDFSize {
			return nil, newExtractionError(ExtractTooLarge,
				"The PDF is too large. Maximum size is 10 MB.",
				fmt.Sprintf("size %d exceeds cap %d", len(data), maxPDFSize))
		}
		return s.extractPDF(data)

	case mimeDoc, mimeDocx:
		return nil, newExtractionError(ExtractManualPasteRequired,
			"Word documents cannot be processed automatically. Please paste the text manually.",
			"word formats are never auto-extracted")

	default:
		return nil, newExtractionError(ExtractUnsupportedType,
			"Unsupported file type. Please upload a .txt or .pdf file, or paste the text.",
			fmt.Sprintf("declared mime type %q not in permitted set", declaredMIME))
	}
}

func (s *extractorService) extractPDF(data []byte) (result *Extraction, extractErr error) {
	// The parsing library is known to panic on some malformed inputs; treat
	// a panic the same as a returned error.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ PDF parse panic: %v", r)
			extractErr = newExtractionError(ExtractParseError,
				"The PDF could not be parsed. It may be corrupted.",
				fmt.Sprintf("parser panic: %v", r))
			result = nil
		}
	}()

	if len(data) == 0 {
		return nil, newExtractionError(ExtractInvalidDocument,
			"The PDF contains no pages.",
			"zero-byte input")
	}

	log.Printf("📄 Parsing PDF (%d bytes)...", len(data))

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		detail := err.Error()
		// A parse error that references the library's own test fixtures is a
		// known library defect, not a problem with the uploaded document.
		if strings.Contains(detail, "test/data") || strings.Contains(detail, "testdata") {
			detail = "known library defect (fixture-path error): " + detail
		}
		log.Printf("❌ PDF parse failed: %s", sanitizeDetail(detail))
		return nil, newExtractionError(ExtractParseError,
			"The PDF could not be parsed. It may be corrupted.",
			detail)
	}

	totalPages := reader.NumPage()
	if totalPages == 0 {
		return nil, newExtractionError(ExtractInvalidDocument,
			"The PDF contains no pages.",
			"parser reported zero pages")
	}

	var textBuilder strings.Builder
	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages and keep whatever the rest yields.
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text := strings.TrimSpace(textBuilder.String())
	if text == "" {
		log.Printf("⚠️  PDF parsed (%d pages) but produced no text", totalPages)
		return &Extraction{
			Warning: "No text could be extracted. The PDF is likely image-based or empty.",
		}, nil
	}

	log.Printf("✅ PDF parsed: %d pages, %d characters", totalPages, len(text))
	return &Extraction{Text: text}, nil
}

// normalizeMIME lowercases the declared type and strips parameters such as
// "; charset=utf-8".
func normalizeMIME(declared string) string {
	mime := strings.ToLower(strings.TrimSpace(declared))
	if idx := strings.Index(mime, ";"); idx != -1 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime
}
