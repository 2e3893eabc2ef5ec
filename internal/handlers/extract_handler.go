package handlers

import (
	"errors"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"jobfit/cv-tailor/internal/models"
	"jobfit/cv-tailor/internal/services"
)

type ExtractHandler struct {
	extractor   services.ExtractorService
	maxFileSize int64
}

func NewExtractHandler(extractor services.ExtractorService, maxFileSize int64) *ExtractHandler {
	return &ExtractHandler{
		extractor:   extractor,
		maxFileSize: maxFileSize,
	}
}

// HandleExtract handles POST /extract: a multipart form with a single "file"
// field in, {success, text?, warning?, error?} out. Classified extraction
// failures are part of the contract, not HTTP errors.
func (h *ExtractHandler) HandleExtract(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ExtractResponse{
			Success: false,
			Error:   "No file uploaded. Send a multipart form with a 'file' field.",
		})
	}

	mime := services.ClassifyMIME(file.Filename, file.Header.Get("Content-Type"))

	// Only PDFs carry a size cap; plain text decodes no matter how large.
	if services.IsPDFMIME(mime) && file.Size > h.maxFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(models.ExtractResponse{
			Success: false,
			Error:   fmt.Sprintf("File too large. Maximum size is %d bytes.", h.maxFileSize),
			Kind:    string(services.ExtractTooLarge),
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ExtractResponse{
			Success: false,
			Error:   "Failed to read the uploaded file.",
		})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ExtractResponse{
			Success: false,
			Error:   "Failed to read the uploaded file.",
		})
	}

	extraction, err := h.extractor.ExtractText(data, mime)
	if err != nil {
		var extErr *services.ExtractionError
		if errors.As(err, &extErr) {
			return c.JSON(models.ExtractResponse{
				Success: false,
				Error:   extErr.Message,
				Kind:    string(extErr.Kind),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(models.ExtractResponse{
			Success: false,
			Error:   "Extraction failed unexpectedly.",
		})
	}

	return c.JSON(models.ExtractResponse{
		Success: true,
		Text:    extraction.Text,
		Warning: extraction.Warning,
	})
}
