package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"jobfit/cv-tailor/internal/models"
	"jobfit/cv-tailor/internal/repositories"
)

// ErrStageBusy is returned when a stage is started while already running.
var ErrStageBusy = errors.New("stage is already running")

// PreconditionError means the session is not in a state that allows the
// requested stage. The message is safe to show to the user.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

// StageJob is a snapshot of everything one stage run needs. Inputs are
// captured at start time so a user edit mid-flight can never change what a
// running stage operates on.
type StageJob struct {
	SessionID      uuid.UUID
	Stage          models.Stage
	Token          uint64
	CVText         string
	JobDescription string
	Analysis       *models.AnalysisResult
	PriorLetter    string
	PriorFeedback  string
}

// OrchestratorService enforces the stage transition rules. BeginStage
// validates preconditions and moves the stage to running; Execute performs
// the provider calls and applies the outcome, discarding stale completions
// by token.
type OrchestratorService interface {
	BeginStage(sessionID uuid.UUID, stage models.Stage) (*StageJob, error)
	Execute(ctx context.Context, job *StageJob) error
	AbortStage(sessionID uuid.UUID, stage models.Stage, token uint64)
}

type orchestratorService struct {
	sessionRepo repositories.SessionRepository
	gateway     GatewayService
	minInputLen int
}

func NewOrchestratorService(
	sessionRepo repositories.SessionRepository,
	gateway GatewayService,
	minInputLen int,
) OrchestratorService {
	return &orchestratorService{
		sessionRepo: sessionRepo,
		gateway:     gateway,
		minInputLen: minInputLen,
	}
}

// BeginStage implements OrchestratorService.
func (o *orchestratorService) BeginStage(sessionID uuid.UUID, stage models.Stage) (*StageJob, error) {
	var job *StageJob

	err := o.sessionRepo.Update(sessionID, func(s *models.Session) error {
		switch stage {
		case models.StageAnalyze:
			return o.beginAnalyze(s, &job)
		case models.StageCreateCV:
			return o.beginCreateCV(s, &job)
		case models.StageCoverLetter:
			return o.beginCoverLetter(s, &job)
		case models.StageRegenerate:
			return o.beginRegenerate(s, &job)
		default:
			return &PreconditionError{Message: fmt.Sprintf("Stage %q cannot be started directly.", stage)}
		}
	})
	if err != nil {
		return nil, err
	}

	log.Printf("▶️  Stage %s started for session %s (token %d)", job.Stage, job.SessionID, job.Token)
	return job, nil
}

// AbortStage releases a stage whose job never made it onto the queue. Without
// it the stage would stay running forever with no completion coming. The token
// guard keeps a late abort from touching a newer run of the same stage.
func (o *orchestratorService) AbortStage(sessionID uuid.UUID, stage models.Stage, token uint64) {
	err := o.sessionRepo.Update(sessionID, func(s *models.Session) error {
		st := s.Stages[stage]
		if st.Token != token || st.Status != models.StageRunning {
			return nil
		}
		st.Status = models.StageFailed
		st.Error = "The server is busy. Please try again shortly."
		return nil
	})
	if err != nil && !errors.Is(err, repositories.ErrSessionNotFound) {
		log.Printf("⚠️ Failed to abort stage %s for session %s: %v", stage, sessionID, err)
	}
}

func (o *orchestratorService) beginAnalyze(s *models.Session, job **StageJob) error {
	if err := o.checkInputs(s); err != nil {
		return err
	}
	if s.Stages[models.StageAnalyze].Status == models.StageRunning {
		return ErrStageBusy
	}

	// A fresh analysis invalidates every downstream artifact.
	for _, stage := range []models.Stage{models.StageCreateCV, models.StageCoverLetter, models.StageEvaluate, models.StageRegenerate} {
		s.Stages[stage].Reset()
	}
	s.Analysis = nil
	s.TailoredCV = nil
	s.CoverLetter = nil
	s.Evaluation = nil

	token := s.Stages[models.StageAnalyze].Start()
	*job = &StageJob{
		SessionID:      s.ID,
		Stage:          models.StageAnalyze,
		Token:          token,
		CVText:         s.CV.RawText,
		JobDescription: s.JobDescription.RawText,
	}
	return nil
}

func (o *orchestratorService) beginCreateCV(s *models.Session, job **StageJob) error {
	if err := o.checkInputs(s); err != nil {
		return err
	}
	if s.Stages[models.StageCreateCV].Status == models.StageRunning {
		return ErrStageBusy
	}

	// A prior analysis is optional context here, not a gate. The previous
	// tailored CV stays visible until the new one arrives.
	token := s.Stages[models.StageCreateCV].Start()
	*job = &StageJob{
		SessionID:      s.ID,
		Stage:          models.StageCreateCV,
		Token:          token,
		CVText:         s.CV.RawText,
		JobDescription: s.JobDescription.RawText,
		Analysis:       s.Analysis.Clone(),
	}
	return nil
}

func (o *orchestratorService) beginCoverLetter(s *models.Session, job **StageJob) error {
	if err := o.checkInputs(s); err != nil {
		return err
	}
	if s.Analysis == nil {
		return &PreconditionError{Message: "Run the analysis before generating a cover letter."}
	}
	if s.Stages[models.StageCoverLetter].Status == models.StageRunning ||
		s.Stages[models.StageRegenerate].Status == models.StageRunning {
		return ErrStageBusy
	}

	token := s.Stages[models.StageCoverLetter].Start()
	*job = &StageJob{
		SessionID:      s.ID,
		Stage:          models.StageCoverLetter,
		Token:          token,
		CVText:         s.CV.RawText,
		JobDescription: s.JobDescription.RawText,
		Analysis:       s.Analysis.Clone(),
	}
	return nil
}

func (o *orchestratorService) beginRegenerate(s *models.Session, job **StageJob) error {
	if s.CoverLetter == nil {
		return &PreconditionError{Message: "Generate a cover letter before regenerating."}
	}
	if s.Evaluation == nil || s.Evaluation.OverallFeedback == "" {
		return &PreconditionError{Message: "An evaluation with feedback is required before regenerating."}
	}
	if err := o.checkInputs(s); err != nil {
		return err
	}
	if s.Stages[models.StageRegenerate].Status == models.StageRunning ||
		s.Stages[models.StageCoverLetter].Status == models.StageRunning {
		return ErrStageBusy
	}

	feedback := s.Evaluation.OverallFeedback

	// The old evaluation no longer describes the letter about to replace the
	// current one. The current letter stays visible until the new one lands.
	s.Evaluation = nil
	s.Stages[models.StageEvaluate].Reset()

	token := s.Stages[models.StageRegenerate].Start()
	*job = &StageJob{
		SessionID:      s.ID,
		Stage:          models.StageRegenerate,
		Token:          token,
		CVText:         s.CV.RawText,
		JobDescription: s.JobDescription.RawText,
		Analysis:       s.Analysis.Clone(),
		PriorLetter:    s.CoverLetter.Content,
		PriorFeedback:  feedback,
	}
	return nil
}

func (o *orchestratorService) checkInputs(s *models.Session) error {
	if s.InputProcessing() {
		return &PreconditionError{Message: "An input is still being processed. Please wait."}
	}
	for _, role := range []models.InputRole{models.RoleCV, models.RoleJobDescription} {
		doc := s.Input(role)
		if !doc.Usable() {
			return &PreconditionError{Message: "Both the CV and the job description are required."}
		}
		if len(doc.RawText) < o.minInputLen {
			return &PreconditionError{
				Message: fmt.Sprintf("Both texts must be at least %d characters long.", o.minInputLen),
			}
		}
	}
	return nil
}

// Execute implements OrchestratorService. Failures are converted into
// stage-local state; the returned error is for operational logging only.
func (o *orchestratorService) Execute(ctx context.Context, job *StageJob) error {
	switch job.Stage {
	case models.StageAnalyze:
		result, err := o.gateway.Analyze(ctx, job.CVText, job.JobDescription)
		return o.applyStageResult(job, err, func(s *models.Session) {
			s.Analysis = result
		})

	case models.StageCreateCV:
		doc, err := o.gateway.CreateCV(ctx, job.CVText, job.JobDescription, job.Analysis)
		return o.applyStageResult(job, err, func(s *models.Session) {
			s.TailoredCV = doc
		})

	case models.StageCoverLetter, models.StageRegenerate:
		return o.executeCoverLetter(ctx, job)

	default:
		return fmt.Errorf("unknown stage %q", job.Stage)
	}
}

// executeCoverLetter runs the letter generation and, on success, chains an
// evaluation of the exact generated text. The two calls are separate failure
// domains: a failed evaluation never rolls back the letter.
func (o *orchestratorService) executeCoverLetter(ctx context.Context, job *StageJob) error {
	letter, err := o.gateway.CreateCoverLetter(ctx, CoverLetterRequest{
		CVText:         job.CVText,
		JobDescription: job.JobDescription,
		Analysis:       job.Analysis,
		PriorLetter:    job.PriorLetter,
		PriorFeedback:  job.PriorFeedback,
	})
	if err != nil {
		return o.applyStageResult(job, err, nil)
	}

	// Apply the letter and immediately mark the chained evaluation running.
	var evalToken uint64
	stale := false
	applyErr := o.sessionRepo.Update(job.SessionID, func(s *models.Session) error {
		state := s.Stages[job.Stage]
		if state.Token != job.Token {
			stale = true
			return nil
		}
		state.Status = models.StageSucceeded
		state.Error = ""
		s.CoverLetter = letter
		s.Evaluation = nil
		evalToken = s.Stages[models.StageEvaluate].Start()
		return nil
	})
	if applyErr != nil {
		return applyErr
	}
	if stale {
		log.Printf("⏭️  Discarding stale %s completion for session %s (token %d)", job.Stage, job.SessionID, job.Token)
		return nil
	}

	log.Printf("✅ Stage %s succeeded for session %s, evaluating the new letter", job.Stage, job.SessionID)

	// The evaluation input is the resolved letter content, never a value
	// re-read from the session.
	evalJob := &StageJob{
		SessionID:      job.SessionID,
		Stage:          models.StageEvaluate,
		Token:          evalToken,
		JobDescription: job.JobDescription,
	}
	evaluation, evalErr := o.gateway.EvaluateCoverLetter(ctx, letter.Content, job.JobDescription)
	return o.applyStageResult(evalJob, evalErr, func(s *models.Session) {
		s.Evaluation = evaluation
	})
}

// applyStageResult moves a stage to succeeded or failed under the session
// lock, unless a newer run of the same stage has superseded this one.
func (o *orchestratorService) applyStageResult(job *StageJob, opErr error, onSuccess func(*models.Session)) error {
	stale := false
	err := o.sessionRepo.Update(job.SessionID, func(s *models.Session) error {
		state := s.Stages[job.Stage]
		if state.Token != job.Token {
			stale = true
			return nil
		}

		if opErr != nil {
			state.Status = models.StageFailed
			state.Error = userMessage(opErr)
			return nil
		}

		state.Status = models.StageSucceeded
		state.Error = ""
		if onSuccess != nil {
			onSuccess(s)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if stale {
		log.Printf("⏭️  Discarding stale %s completion for session %s (token %d)", job.Stage, job.SessionID, job.Token)
		return nil
	}
	if opErr != nil {
		log.Printf("❌ Stage %s failed for session %s: %v", job.Stage, job.SessionID, opErr)
		return fmt.Errorf("stage %s failed: %w", job.Stage, opErr)
	}

	log.Printf("✅ Stage %s succeeded for session %s", job.Stage, job.SessionID)
	return nil
}

// userMessage extracts the short user-facing message from a gateway failure.
// Raw provider detail stays in the logs.
func userMessage(err error) string {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Message
	}
	return "Something went wrong. Please try again."
}
