package models

// ExtractResponse is the wire contract of POST /extract. The success flag and
// text/error fields are relied on by existing clients; keep them stable.
type ExtractResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

type CreateSessionResponse struct {
	ID string `json:"id"`
}

type PasteRequest struct {
	Text string `json:"text" validate:"required"`
}

type StageStartResponse struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
}

type StageView struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type SessionResponse struct {
	ID              string               `json:"id"`
	CV              *InputDocument       `json:"cv"`
	JobDescription  *InputDocument       `json:"job_description"`
	InputProcessing bool                 `json:"input_processing"`
	Stages          map[string]StageView `json:"stages"`
	Analysis        *AnalysisResult      `json:"analysis,omitempty"`
	TailoredCV      *GeneratedDocument   `json:"tailored_cv,omitempty"`
	CoverLetter     *GeneratedDocument   `json:"cover_letter,omitempty"`
	Evaluation      *EvaluationResult    `json:"evaluation,omitempty"`
}

// NewSessionResponse projects a session snapshot into its wire shape.
func NewSessionResponse(s *Session) *SessionResponse {
	stages := make(map[string]StageView, len(s.Stages))
	for stage, state := range s.Stages {
		stages[string(stage)] = StageView{
			Status: string(state.Status),
			Error:  state.Error,
		}
	}
	return &SessionResponse{
		ID:              s.ID.String(),
		CV:              s.CV,
		JobDescription:  s.JobDescription,
		InputProcessing: s.InputProcessing(),
		Stages:          stages,
		Analysis:        s.Analysis,
		TailoredCV:      s.TailoredCV,
		CoverLetter:     s.CoverLetter,
		Evaluation:      s.Evaluation,
	}
}
