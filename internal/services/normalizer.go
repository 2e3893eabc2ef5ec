package services

import (
	"errors"
	"log"
	"path/filepath"
	"strings"

	"jobfit/cv-tailor/internal/models"
)

// NormalizerService funnels a pasted text or uploaded file into a single
// InputDocument. Drag-and-drop and click-to-browse uploads both land here;
// the caller replaces (never merges) any previous document for the role.
type NormalizerService interface {
	NormalizePaste(text string) *models.InputDocument
	NormalizeFile(filename, declaredMIME string, data []byte, onState func(models.IngestState)) *models.InputDocument
}

type normalizerService struct {
	extractor ExtractorService
}

func NewNormalizerService(extractor ExtractorService) NormalizerService {
	return &normalizerService{extractor: extractor}
}

func (n *normalizerService) NormalizePaste(text string) *models.InputDocument {
	return &models.InputDocument{
		RawText: text,
		State:   models.IngestPasted,
	}
}

func (n *normalizerService) NormalizeFile(filename, declaredMIME string, data []byte, onState func(models.IngestState)) *models.InputDocument {
	notify := func(state models.IngestState) {
		if onState != nil {
			onState(state)
		}
	}
	notify(models.IngestUploading)

	mime := ClassifyMIME(filename, declaredMIME)
	if mime == mimePDF {
		notify(models.IngestParsing)
	}

	doc := &models.InputDocument{SourceLabel: filename}

	extraction, err := n.extractor.ExtractText(data, mime)
	if err != nil {
		var extErr *ExtractionError
		if !errors.As(err, &extErr) {
			doc.State = models.IngestFailed
			doc.Message = "The file could not be processed."
			notify(doc.State)
			return doc
		}

		switch extErr.Kind {
		case ExtractManualPasteRequired:
			// The filename stays visible so the user sees what was attempted;
			// the content must come from a manual paste.
			doc.State = models.IngestAwaitingPaste
			doc.Message = extErr.Message
		case ExtractUnsupportedType:
			doc.State = models.IngestAwaitingPaste
			doc.Message = "This file could not be auto-processed. Please paste the text manually."
		default:
			doc.State = models.IngestFailed
			doc.Message = extErr.Message
		}
		log.Printf("⚠️  Ingestion of %q ended in %s: %s", filename, doc.State, extErr.Error())
		notify(doc.State)
		return doc
	}

	if strings.TrimSpace(extraction.Text) == "" {
		doc.State = models.IngestFailed
		doc.Message = extraction.Warning
		if doc.Message == "" {
			doc.Message = "The file contained no usable text."
		}
		notify(doc.State)
		return doc
	}

	doc.RawText = extraction.Text
	doc.State = models.IngestReady
	notify(doc.State)
	return doc
}

// ClassifyMIME resolves the effective MIME type, falling back to the file
// extension when the declared type is generic or missing.
func ClassifyMIME(filename, declaredMIME string) string {
	mime := normalizeMIME(declaredMIME)
	if mime != "" && mime != mimeGeneric {
		return mime
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return mimeText
	case ".pdf":
		return mimePDF
	case ".doc":
		return mimeDoc
	case ".docx":
		return mimeDocx
	default:
		return mime
	}
}

// IsPDFMIME reports whether a classified MIME type is PDF. Size caps apply to
// PDFs only; plain text of any length must still decode.
func IsPDFMIME(mime string) bool {
	return mime == mimePDF
}
