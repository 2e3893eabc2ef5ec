package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"jobfit/cv-tailor/internal/models"
	"jobfit/cv-tailor/internal/repositories"
	"jobfit/cv-tailor/internal/services"
)

type SessionHandler struct {
	sessionRepo   repositories.SessionRepository
	normalizer    services.NormalizerService
	validate      *validator.Validate
	maxUploadSize int64
}

func NewSessionHandler(
	sessionRepo repositories.SessionRepository,
	normalizer services.NormalizerService,
	maxUploadSize int64,
) *SessionHandler {
	return &SessionHandler{
		sessionRepo:   sessionRepo,
		normalizer:    normalizer,
		validate:      validator.New(),
		maxUploadSize: maxUploadSize,
	}
}

// HandleCreateSession handles POST /sessions.
func (h *SessionHandler) HandleCreateSession(c *fiber.Ctx) error {
	session := h.sessionRepo.Create()
	log.Printf("🆕 Session %s created", session.ID)

	return c.Status(fiber.StatusCreated).JSON(models.CreateSessionResponse{
		ID: session.ID.String(),
	})
}

// HandleGetSession handles GET /sessions/:id.
func (h *SessionHandler) HandleGetSession(c *fiber.Ctx) error {
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

	return c.JSON(models.NewSessionResponse(session))
}

// HandleSetInput handles PUT /sessions/:id/inputs/:role. A multipart "file"
// field means an upload; a JSON body means a paste. Either way the previous
// document for the role is replaced, never merged.
func (h *SessionHandler) HandleSetInput(c *fiber.Ctx) error {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID format",
		})
	}

	role, ok := models.ParseInputRole(c.Params("role"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input role. Use 'cv' or 'job_description'.",
		})
	}

	if file, err := c.FormFile("file"); err == nil {
		return h.setFileInput(c, sessionID, role, file)
	}

	var req models.PasteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text is required",
		})
	}

	doc := h.normalizer.NormalizePaste(req.Text)
	if err := h.storeInput(sessionID, role, doc); err != nil {
		return err
	}

	return h.respondWithSession(c, sessionID)
}

func (h *SessionHandler) setFileInput(c *fiber.Ctx, sessionID uuid.UUID, role models.InputRole, file *multipart.FileHeader) error {
	if file.Size > h.maxUploadSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large. Maximum size is %d bytes.", h.maxUploadSize),
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read the uploaded file.",
		})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read the uploaded file.",
		})
	}

	doc := h.normalizer.NormalizeFile(file.Filename, file.Header.Get("Content-Type"), data, func(state models.IngestState) {
		// Publish transient states so concurrent pollers see ingestion
		// progress; the final document lands below.
		_ = h.sessionRepo.Update(sessionID, func(s *models.Session) error {
			s.SetInput(role, &models.InputDocument{SourceLabel: file.Filename, State: state})
			return nil
		})
	})

	if err := h.storeInput(sessionID, role, doc); err != nil {
		return err
	}

	return h.respondWithSession(c, sessionID)
}

// HandleClearInput handles DELETE /sessions/:id/inputs/:role.
func (h *SessionHandler) HandleClearInput(c *fiber.Ctx) error {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID format",
		})
	}

	role, ok := models.ParseInputRole(c.Params("role"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input role. Use 'cv' or 'job_description'.",
		})
	}

	if err := h.storeInput(sessionID, role, models.NewEmptyInput()); err != nil {
		return err
	}

	return h.respondWithSession(c, sessionID)
}

func (h *SessionHandler) storeInput(sessionID uuid.UUID, role models.InputRole, doc *models.InputDocument) error {
	err := h.sessionRepo.Update(sessionID, func(s *models.Session) error {
		s.SetInput(role, doc)
		return nil
	})
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Session not found")
	}
	return err
}

func (h *SessionHandler) respondWithSession(c *fiber.Ctx, sessionID uuid.UUID) error {
	session, err := h.sessionRepo.Get(sessionID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}
	return c.JSON(models.NewSessionResponse(session))
}

func parseSessionID(c *fiber.Ctx) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return sessionID, true
}
