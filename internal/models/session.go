package models

import (
	"time"

	"github.com/google/uuid"
)

type Stage string

const (
	StageAnalyze     Stage = "analyze"
	StageCreateCV    Stage = "create_cv"
	StageCoverLetter Stage = "cover_letter"
	StageEvaluate    Stage = "evaluate"
	StageRegenerate  Stage = "regenerate"
)

func AllStages() []Stage {
	return []Stage{StageAnalyze, StageCreateCV, StageCoverLetter, StageEvaluate, StageRegenerate}
}

type StageStatus string

const (
	StageIdle      StageStatus = "idle"
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
)

// StageState tracks one stage of the pipeline. Token increases every time the
// stage starts; a completion carrying an older token is stale and discarded.
type StageState struct {
	Status StageStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
	Token  uint64      `json:"-"`
}

// Reset returns the stage to idle and invalidates any completion still in
// flight for it.
func (s *StageState) Reset() {
	s.Token++
	s.Status = StageIdle
	s.Error = ""
}

// Start moves the stage to running and returns the token the eventual
// completion must present.
func (s *StageState) Start() uint64 {
	s.Token++
	s.Status = StageRunning
	s.Error = ""
	return s.Token
}

// Session is the orchestration context for one client. It owns every result
// artifact for its lifetime; nothing about it survives a server restart.
type Session struct {
	ID             uuid.UUID
	CV             *InputDocument
	JobDescription *InputDocument
	Stages         map[Stage]*StageState
	Analysis       *AnalysisResult
	TailoredCV     *GeneratedDocument
	CoverLetter    *GeneratedDocument
	Evaluation     *EvaluationResult
	CreatedAt      time.Time
	LastActiveAt   time.Time
}

func NewSession() *Session {
	now := time.Now()
	stages := make(map[Stage]*StageState, len(AllStages()))
	for _, st := range AllStages() {
		stages[st] = &StageState{Status: StageIdle}
	}
	return &Session{
		ID:             uuid.New(),
		CV:             NewEmptyInput(),
		JobDescription: NewEmptyInput(),
		Stages:         stages,
		CreatedAt:      now,
		LastActiveAt:   now,
	}
}

// Input returns the document for the given role.
func (s *Session) Input(role InputRole) *InputDocument {
	if role == RoleCV {
		return s.CV
	}
	return s.JobDescription
}

func (s *Session) SetInput(role InputRole, doc *InputDocument) {
	if role == RoleCV {
		s.CV = doc
	} else {
		s.JobDescription = doc
	}
}

// InputProcessing aggregates both roles for gating top-level actions; each
// role keeps its own indicator.
func (s *Session) InputProcessing() bool {
	return s.CV.Processing() || s.JobDescription.Processing()
}

// Clone returns a deep copy safe to read outside the repository lock.
func (s *Session) Clone() *Session {
	out := *s
	cv := *s.CV
	jd := *s.JobDescription
	out.CV = &cv
	out.JobDescription = &jd
	out.Stages = make(map[Stage]*StageState, len(s.Stages))
	for k, v := range s.Stages {
		st := *v
		out.Stages[k] = &st
	}
	out.Analysis = s.Analysis.Clone()
	if s.TailoredCV != nil {
		d := *s.TailoredCV
		out.TailoredCV = &d
	}
	if s.CoverLetter != nil {
		d := *s.CoverLetter
		out.CoverLetter = &d
	}
	if s.Evaluation != nil {
		e := *s.Evaluation
		out.Evaluation = &e
	}
	return &out
}
