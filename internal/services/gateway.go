package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"jobfit/cv-tailor/internal/models"
)

type GatewayErrorKind string

const (
	GatewayInvalidInput       GatewayErrorKind = "invalid_input"
	GatewayGenerationFailed   GatewayErrorKind = "generation_failed"
	GatewayIncompleteResponse GatewayErrorKind = "incomplete_response"
)

// GatewayError is a stage-local failure from one generation operation.
// Message is user-facing; Detail may embed raw provider error text.
type GatewayError struct {
	Kind    GatewayErrorKind
	Message string
	Detail  string
}

func (e *GatewayError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newGatewayError(kind GatewayErrorKind, message, detail string) *GatewayError {
	return &GatewayError{Kind: kind, Message: message, Detail: sanitizeDetail(detail)}
}

// CoverLetterRequest carries the inputs of a fresh generation or a revision.
// Revision mode is active when PriorLetter is non-empty.
type CoverLetterRequest struct {
	CVText         string
	JobDescription string
	Analysis       *models.AnalysisResult
	PriorLetter    string
	PriorFeedback  string
}

// GatewayService is the set of four independent, stateless, retryable
// operations against the LLM provider. None depends on in-process state
// beyond its explicit parameters.
type GatewayService interface {
	Analyze(ctx context.Context, cvText, jobDescription string) (*models.AnalysisResult, error)
	CreateCV(ctx context.Context, cvText, jobDescription string, analysis *models.AnalysisResult) (*models.GeneratedDocument, error)
	CreateCoverLetter(ctx context.Context, req CoverLetterRequest) (*models.GeneratedDocument, error)
	EvaluateCoverLetter(ctx context.Context, coverLetterText, jobDescription string) (*models.EvaluationResult, error)
}

type gatewayService struct {
	generator     TextGenerator
	promptBuilder *PromptBuilder
	schemas       *responseSchemas
	minInputLen   int
	maxRetries    int
}

func NewGatewayService(generator TextGenerator, minInputLen, maxRetries int) (GatewayService, error) {
	schemas, err := compileResponseSchemas()
	if err != nil {
		return nil, err
	}
	return &gatewayService{
		generator:     generator,
		promptBuilder: NewPromptBuilder(),
		schemas:       schemas,
		minInputLen:   minInputLen,
		maxRetries:    maxRetries,
	}, nil
}

// rawAnalysis matches the provider's analysis JSON. Scores arrive as numbers
// and may be out of range or fractional; they are rounded and clamped here.
type rawAnalysis struct {
	MatchPercentage float64 `json:"match_percentage"`
	ScoreBreakdown  *struct {
		Experience float64 `json:"experience"`
		Education  float64 `json:"education"`
		Skills     float64 `json:"skills"`
	} `json:"score_breakdown"`
	Suggestions struct {
		KeywordsToAdd      []string `json:"keywords_to_add"`
		SkillsToEmphasize  []string `json:"skills_to_emphasize"`
		ExperienceToDetail string   `json:"experience_to_detail"`
	} `json:"suggestions"`
}

type rawEvaluation struct {
	RelevanceScore        float64 `json:"relevance_score"`
	ToneAnalysis          string  `json:"tone_analysis"`
	KeywordUsage          string  `json:"keyword_usage"`
	ClarityAndConciseness string  `json:"clarity_and_conciseness"`
	ATSFriendliness       string  `json:"ats_friendliness"`
	OverallFeedback       string  `json:"overall_feedback"`
}

// Analyze implements GatewayService.
func (g *gatewayService) Analyze(ctx context.Context, cvText, jobDescription string) (*models.AnalysisResult, error) {
	if err := g.checkInputs(cvText, jobDescription); err != nil {
		return nil, err
	}

	prompt := g.promptBuilder.BuildAnalysisPrompt(cvText, jobDescription)
	response, err := g.generator.GenerateTextWithRetry(ctx, prompt, 0.3, g.maxRetries)
	if err != nil {
		return nil, newGatewayError(GatewayGenerationFailed,
			"Analysis failed. Please try again.", err.Error())
	}

	jsonStr := extractJSON(response)
	if err := validateAgainst(g.schemas.analysis, jsonStr); err != nil {
		log.Printf("❌ Analysis response rejected: %v", err)
		return nil, newGatewayError(GatewayGenerationFailed,
			"Analysis failed. Please try again.", err.Error())
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, newGatewayError(GatewayGenerationFailed,
			"Analysis failed. Please try again.", err.Error())
	}

	result := &models.AnalysisResult{
		MatchPercentage: clampScore(raw.MatchPercentage),
		Suggestions: models.Suggestions{
			KeywordsToAdd:      raw.Suggestions.KeywordsToAdd,
			SkillsToEmphasize:  raw.Suggestions.SkillsToEmphasize,
			ExperienceToDetail: raw.Suggestions.ExperienceToDetail,
		},
	}
	if result.Suggestions.KeywordsToAdd == nil {
		result.Suggestions.KeywordsToAdd = []string{}
	}
	if result.Suggestions.SkillsToEmphasize == nil {
		result.Suggestions.SkillsToEmphasize = []string{}
	}

	if raw.ScoreBreakdown != nil {
		result.ScoreBreakdown = &models.ScoreBreakdown{
			Experience: clampScore(raw.ScoreBreakdown.Experience),
			Education:  clampScore(raw.ScoreBreakdown.Education),
			Skills:     clampScore(raw.ScoreBreakdown.Skills),
		}
	} else {
		// The response schema evolved; older shapes omit the breakdown.
		log.Printf("⚠️  Analysis response missing score_breakdown, continuing without it")
	}

	return result, nil
}

// CreateCV implements GatewayService.
func (g *gatewayService) CreateCV(ctx context.Context, cvText, jobDescription string, analysis *models.AnalysisResult) (*models.GeneratedDocument, error) {
	if err := g.checkInputs(cvText, jobDescription); err != nil {
		return nil, err
	}

	prompt := g.promptBuilder.BuildTailoredCVPrompt(cvText, jobDescription, analysis)
	response, err := g.generator.GenerateTextWithRetry(ctx, prompt, 0.7, g.maxRetries)
	if err != nil {
		return nil, newGatewayError(GatewayGenerationFailed,
			"CV generation failed. Please try again.", err.Error())
	}

	content := strings.TrimSpace(stripCodeFence(response))
	if content == "" {
		return nil, newGatewayError(GatewayGenerationFailed,
			"CV generation failed. Please try again.", "provider returned empty content")
	}

	if !strings.HasPrefix(content, "#") {
		log.Printf("⚠️  Tailored CV does not start with a Markdown heading")
	}

	return &models.GeneratedDocument{
		Content: content,
		Format:  models.FormatMarkdown,
	}, nil
}

// CreateCoverLetter implements GatewayService.
func (g *gatewayService) CreateCoverLetter(ctx context.Context, req CoverLetterRequest) (*models.GeneratedDocument, error) {
	if err := g.checkInputs(req.CVText, req.JobDescription); err != nil {
		return nil, err
	}

	if req.PriorLetter != "" && req.PriorFeedback == "" {
		log.Printf("⚠️  Cover letter revision requested without feedback; quality will be reduced")
	}

	prompt := g.promptBuilder.BuildCoverLetterPrompt(
		req.CVText, req.JobDescription, req.Analysis, req.PriorLetter, req.PriorFeedback)
	response, err := g.generator.GenerateTextWithRetry(ctx, prompt, 0.7, g.maxRetries)
	if err != nil {
		return nil, newGatewayError(GatewayGenerationFailed,
			"Cover letter generation failed. Please try again.", err.Error())
	}

	content := normalizeLineEndings(strings.TrimSpace(stripCodeFence(response)))
	if content == "" {
		return nil, newGatewayError(GatewayGenerationFailed,
			"Cover letter generation failed. Please try again.", "provider returned empty content")
	}

	return &models.GeneratedDocument{
		Content: content,
		Format:  models.FormatPlainText,
	}, nil
}

// EvaluateCoverLetter implements GatewayService.
func (g *gatewayService) EvaluateCoverLetter(ctx context.Context, coverLetterText, jobDescription string) (*models.EvaluationResult, error) {
	if err := g.checkInputs(coverLetterText, jobDescription); err != nil {
		return nil, err
	}

	prompt := g.promptBuilder.BuildEvaluationPrompt(coverLetterText, jobDescription)
	response, err := g.generator.GenerateTextWithRetry(ctx, prompt, 0.3, g.maxRetries)
	if err != nil {
		return nil, newGatewayError(GatewayGenerationFailed,
			"Evaluation failed. Please try again.", err.Error())
	}

	jsonStr := extractJSON(response)
	if err := validateAgainst(g.schemas.evaluation, jsonStr); err != nil {
		log.Printf("❌ Evaluation response rejected: %v", err)
		return nil, newGatewayError(GatewayGenerationFailed,
			"Evaluation failed. Please try again.", err.Error())
	}

	var raw rawEvaluation
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, newGatewayError(GatewayGenerationFailed,
			"Evaluation failed. Please try again.", err.Error())
	}

	result := &models.EvaluationResult{
		RelevanceScore:        clampScore(raw.RelevanceScore),
		ToneAnalysis:          strings.TrimSpace(raw.ToneAnalysis),
		KeywordUsage:          strings.TrimSpace(raw.KeywordUsage),
		ClarityAndConciseness: strings.TrimSpace(raw.ClarityAndConciseness),
		ATSFriendliness:       strings.TrimSpace(raw.ATSFriendliness),
		OverallFeedback:       strings.TrimSpace(raw.OverallFeedback),
	}

	for field, value := range map[string]string{
		"tone_analysis":           result.ToneAnalysis,
		"keyword_usage":           result.KeywordUsage,
		"clarity_and_conciseness": result.ClarityAndConciseness,
		"ats_friendliness":        result.ATSFriendliness,
		"overall_feedback":        result.OverallFeedback,
	} {
		if value == "" {
			return nil, newGatewayError(GatewayIncompleteResponse,
				"Evaluation came back incomplete. Please try again.",
				fmt.Sprintf("field %s is empty", field))
		}
	}

	return result, nil
}

// checkInputs is a defensive re-check of the caller-enforced minimum length.
func (g *gatewayService) checkInputs(texts ...string) error {
	for _, text := range texts {
		if len(strings.TrimSpace(text)) < g.minInputLen {
			return newGatewayError(GatewayInvalidInput,
				fmt.Sprintf("Both texts must be at least %d characters long.", g.minInputLen),
				fmt.Sprintf("input length %d below minimum %d", len(text), g.minInputLen))
		}
	}
	return nil
}

// clampScore rounds a provider score and constrains it into [0,100].
// Clamping an already-in-range value is a no-op.
func clampScore(v float64) int {
	score := int(math.Round(v))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// extractJSON pulls a JSON object out of text that might wrap it in markdown
// fences or prose.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}

	return text
}

// stripCodeFence removes a wrapping markdown code fence the provider
// sometimes adds around document output.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}
	trimmed = strings.TrimPrefix(trimmed, "```markdown")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return trimmed
}

func normalizeLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
