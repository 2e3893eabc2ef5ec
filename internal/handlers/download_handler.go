package handlers

import (
	"github.com/gofiber/fiber/v2"

	"jobfit/cv-tailor/internal/models"
	"jobfit/cv-tailor/internal/repositories"
)

type DownloadHandler struct {
	sessionRepo repositories.SessionRepository
}

func NewDownloadHandler(sessionRepo repositories.SessionRepository) *DownloadHandler {
	return &DownloadHandler{sessionRepo: sessionRepo}
}

// HandleDownload handles GET /sessions/:id/download/:artifact. The response
// body is byte-identical to the stored document content.
func (h *DownloadHandler) HandleDownload(c *fiber.Ctx) error {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID format",
		})
	}

	session, err := h.sessionRepo.Get(sessionID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	var doc *models.GeneratedDocument
	var filename, contentType string

	switch c.Params("artifact") {
	case "cv":
		doc = session.TailoredCV
		filename = "tailored-cv.md"
		contentType = "text/markdown; charset=utf-8"
	case "cover_letter":
		doc = session.CoverLetter
		filename = "cover-letter.txt"
		contentType = "text/plain; charset=utf-8"
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown artifact. Use 'cv' or 'cover_letter'.",
		})
	}

	if doc == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "The document has not been generated yet.",
		})
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.SendString(doc.Content)
}
