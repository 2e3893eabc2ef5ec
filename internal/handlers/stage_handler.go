package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"jobfit/cv-tailor/internal/models"
	"jobfit/cv-tailor/internal/repositories"
	"jobfit/cv-tailor/internal/services"
)

type StageHandler struct {
	orchestrator services.OrchestratorService
	worker       services.Worker
}

func NewStageHandler(orchestrator services.OrchestratorService, worker services.Worker) *StageHandler {
	return &StageHandler{
		orchestrator: orchestrator,
		worker:       worker,
	}
}

// HandleAnalyze handles POST /sessions/:id/analyze.
func (h *StageHandler) HandleAnalyze(c *fiber.Ctx) error {
	return h.start(c, models.StageAnalyze)
}

// HandleCreateCV handles POST /sessions/:id/cv.
func (h *StageHandler) HandleCreateCV(c *fiber.Ctx) error {
	return h.start(c, models.StageCreateCV)
}

// HandleCoverLetter handles POST /sessions/:id/cover-letter. On success the
// evaluation of the generated letter is chained automatically.
func (h *StageHandler) HandleCoverLetter(c *fiber.Ctx) error {
	return h.start(c, models.StageCoverLetter)
}

// HandleRegenerate handles POST /sessions/:id/regenerate.
func (h *StageHandler) HandleRegenerate(c *fiber.Ctx) error {
	return h.start(c, models.StageRegenerate)
}

func (h *StageHandler) start(c *fiber.Ctx, stage models.Stage) error {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID format",
		})
	}

	job, err := h.orchestrator.BeginStage(sessionID, stage)
	if err != nil {
		var precondition *services.PreconditionError
		switch {
		case errors.Is(err, repositories.ErrSessionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		case errors.Is(err, services.ErrStageBusy):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "This stage is already running.",
			})
		case errors.As(err, &precondition):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": precondition.Message,
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to start the stage.",
			})
		}
	}

	if !h.worker.Enqueue(job) {
		// The queue rejected the job, so no worker will ever complete the
		// stage. Release it or every retry would hit the busy guard.
		h.orchestrator.AbortStage(job.SessionID, job.Stage, job.Token)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "The server is busy. Please try again shortly.",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(models.StageStartResponse{
		Stage:  string(stage),
		Status: string(models.StageRunning),
	})
}
