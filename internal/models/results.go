package models

// ScoreBreakdown holds the per-dimension match scores, each in [0,100].
type ScoreBreakdown struct {
	Experience int `json:"experience"`
	Education  int `json:"education"`
	Skills     int `json:"skills"`
}

type Suggestions struct {
	KeywordsToAdd      []string `json:"keywords_to_add"`
	SkillsToEmphasize  []string `json:"skills_to_emphasize"`
	ExperienceToDetail string   `json:"experience_to_detail"`
}

// AnalysisResult is the outcome of matching a CV against a job description.
// All numeric scores are clamped into [0,100] before the result leaves the
// gateway. ScoreBreakdown is optional: older provider responses omit it.
type AnalysisResult struct {
	MatchPercentage int             `json:"match_percentage"`
	ScoreBreakdown  *ScoreBreakdown `json:"score_breakdown,omitempty"`
	Suggestions     Suggestions     `json:"suggestions"`
}

// Clone returns an independent copy.
func (a *AnalysisResult) Clone() *AnalysisResult {
	if a == nil {
		return nil
	}
	out := *a
	if a.ScoreBreakdown != nil {
		sb := *a.ScoreBreakdown
		out.ScoreBreakdown = &sb
	}
	out.Suggestions.KeywordsToAdd = append([]string(nil), a.Suggestions.KeywordsToAdd...)
	out.Suggestions.SkillsToEmphasize = append([]string(nil), a.Suggestions.SkillsToEmphasize...)
	return &out
}

type DocumentFormat string

const (
	FormatMarkdown  DocumentFormat = "markdown"
	FormatPlainText DocumentFormat = "plain_text"
)

// GeneratedDocument is a tailored CV (Markdown) or a cover letter (plain text).
type GeneratedDocument struct {
	Content string         `json:"content"`
	Format  DocumentFormat `json:"format"`
}

// EvaluationResult describes one generated cover letter. It is keyed to the
// letter it evaluated and is discarded whenever that letter is replaced.
type EvaluationResult struct {
	RelevanceScore        int    `json:"relevance_score"`
	ToneAnalysis          string `json:"tone_analysis"`
	KeywordUsage          string `json:"keyword_usage"`
	ClarityAndConciseness string `json:"clarity_and_conciseness"`
	ATSFriendliness       string `json:"ats_friendliness"`
	OverallFeedback       string `json:"overall_feedback"`
}
