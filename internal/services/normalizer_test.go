package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfit/cv-tailor/internal/models"
)

func TestNormalizePaste(t *testing.T) {
	normalizer := NewNormalizerService(NewExtractorService())

	doc := normalizer.NormalizePaste("pasted CV content")

	assert.Equal(t, "pasted CV content", doc.RawText)
	assert.Empty(t, doc.SourceLabel)
	assert.Equal(t, models.IngestPasted, doc.State)
}

func TestNormalizeFile_PlainText(t *testing.T) {
	normalizer := NewNormalizerService(NewExtractorService())

	var states []models.IngestState
	doc := normalizer.NormalizeFile("resume.txt", "text/plain", []byte("ten years of Go"), func(s models.IngestState) {
		states = append(states, s)
	})

	assert.Equal(t, "ten years of Go", doc.RawText)
	assert.Equal(t, "resume.txt", doc.SourceLabel)
	assert.Equal(t, models.IngestReady, doc.State)
	assert.Equal(t, []models.IngestState{models.IngestUploading, models.IngestReady}, states)
}

func TestNormalizeFile_ExtensionFallback(t *testing.T) {
	normalizer := NewNormalizerService(NewExtractorService())

	tests := []struct {
		name         string
		filename     string
		declaredMIME string
		wantState    models.IngestState
	}{
		{
			name:         "generic mime, txt extension",
			filename:     "resume.txt",
			declaredMIME: "application/octet-stream",
			wantState:    models.IngestReady,
		},
		{
			name:         "empty mime, txt extension",
			filename:     "resume.txt",
			declaredMIME: "",
			wantState:    models.IngestReady,
		},
		{
			name:         "empty mime, docx extension",
			filename:     "resume.docx",
			declaredMIME: "",
			wantState:    models.IngestAwaitingPaste,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := normalizer.NormalizeFile(tt.filename, tt.declaredMIME, []byte("some resume content"), nil)
			assert.Equal(t, tt.wantState, doc.State)
		})
	}
}

func TestNormalizeFile_WordRetainsFilename(t *testing.T) {
	normalizer := NewNormalizerService(NewExtractorService())

	for _, filename := range []string{"resume.doc", "resume.docx"} {
		t.Run(filename, func(t *testing.T) {
			doc := normalizer.NormalizeFile(filename, "", []byte("binary word bytes"), nil)

			// The attempted filename stays visible; the text must come from a
			// manual paste.
			assert.Empty(t, doc.RawText)
			assert.Equal(t, filename, doc.SourceLabel)
			assert.Equal(t, models.IngestAwaitingPaste, doc.State)
			assert.Contains(t, doc.Message, "paste")
			assert.False(t, doc.Usable())
		})
	}
}

func TestNormalizeFile_UnknownTypeAwaitsPaste(t *testing.T) {
	normalizer := NewNormalizerService(NewExtractorService())

	doc := normalizer.NormalizeFile("resume.rtf", "application/rtf", []byte("{\\rtf1}"), nil)

	assert.Equal(t, models.IngestAwaitingPaste, doc.State)
	assert.Contains(t, doc.Message, "could not be auto-processed")
}

func TestNormalizeFile_CorruptPDFFails(t *testing.T) {
	normalizer := NewNormalizerService(NewExtractorService())

	var states []models.IngestState
	doc := normalizer.NormalizeFile("resume.pdf", "application/pdf", []byte("not a pdf"), func(s models.IngestState) {
		states = append(states, s)
	})

	assert.Equal(t, models.IngestFailed, doc.State)
	assert.NotEmpty(t, doc.Message)
	assert.NotContains(t, doc.Message, "panic", "internal detail must not leak into the user message")
	assert.Equal(t, []models.IngestState{models.IngestUploading, models.IngestParsing, models.IngestFailed}, states)
}

func TestClassifyMIME(t *testing.T) {
	tests := []struct {
		filename string
		declared string
		want     string
	}{
		{"resume.pdf", "application/pdf", "application/pdf"},
		{"resume.pdf", "", "application/pdf"},
		{"resume.pdf", "application/octet-stream", "application/pdf"},
		{"RESUME.TXT", "", "text/plain"},
		{"resume.doc", "", "application/msword"},
		{"resume.docx", "application/octet-stream", mimeDocx},
		{"resume.xyz", "", ""},
		{"resume.txt", "application/pdf", "application/pdf"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyMIME(tt.filename, tt.declared), "filename=%s declared=%s", tt.filename, tt.declared)
	}
}

func TestInputDocumentUsable(t *testing.T) {
	require.True(t, (&models.InputDocument{RawText: "x", State: models.IngestReady}).Usable())
	require.True(t, (&models.InputDocument{RawText: "x", State: models.IngestPasted}).Usable())
	require.False(t, (&models.InputDocument{State: models.IngestAwaitingPaste}).Usable())
	require.False(t, (&models.InputDocument{RawText: "x", State: models.IngestFailed}).Usable())
}
