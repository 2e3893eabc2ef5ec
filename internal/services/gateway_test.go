package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfit/cv-tailor/internal/models"
)

// stubGenerator is a deterministic TextGenerator for gateway tests.
type stubGenerator struct {
	response string
	err      error
	fn       func(prompt string) (string, error)
	prompts  []string
}

func (s *stubGenerator) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.fn != nil {
		return s.fn(prompt)
	}
	return s.response, s.err
}

func (s *stubGenerator) GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, maxRetries int) (string, error) {
	return s.GenerateText(ctx, prompt, temperature)
}

var (
	testCV = strings.Repeat("Go developer with strong backend experience. ", 3)
	testJD = strings.Repeat("We are hiring a senior Go engineer for our platform team. ", 3)
)

func newTestGateway(t *testing.T, gen TextGenerator) GatewayService {
	t.Helper()
	gateway, err := NewGatewayService(gen, 50, 1)
	require.NoError(t, err)
	return gateway
}

const validAnalysisJSON = `{
	"match_percentage": 78,
	"score_breakdown": {"experience": 80, "education": 65, "skills": 90},
	"suggestions": {
		"keywords_to_add": ["Kubernetes", "gRPC"],
		"skills_to_emphasize": ["Go", "system design"],
		"experience_to_detail": "Expand on the payments platform migration."
	}
}`

func TestAnalyze_Success(t *testing.T) {
	gateway := newTestGateway(t, &stubGenerator{response: validAnalysisJSON})

	result, err := gateway.Analyze(context.Background(), testCV, testJD)
	require.NoError(t, err)

	assert.Equal(t, 78, result.MatchPercentage)
	require.NotNil(t, result.ScoreBreakdown)
	assert.Equal(t, 80, result.ScoreBreakdown.Experience)
	assert.Equal(t, 65, result.ScoreBreakdown.Education)
	assert.Equal(t, 90, result.ScoreBreakdown.Skills)
	assert.Equal(t, []string{"Kubernetes", "gRPC"}, result.Suggestions.KeywordsToAdd)
	assert.Equal(t, "Expand on the payments platform migration.", result.Suggestions.ExperienceToDetail)
}

func TestAnalyze_Idempotent(t *testing.T) {
	gateway := newTestGateway(t, &stubGenerator{response: validAnalysisJSON})

	first, err := gateway.Analyze(context.Background(), testCV, testJD)
	require.NoError(t, err)
	second, err := gateway.Analyze(context.Background(), testCV, testJD)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyze_ClampsOutOfRangeScores(t *testing.T) {
	response := `{
		"match_percentage": 140,
		"score_breakdown": {"experience": -10, "education": 100.4, "skills": 55},
		"suggestions": {"keywords_to_add": [], "skills_to_emphasize": [], "experience_to_detail": ""}
	}`
	gateway := newTestGateway(t, &stubGenerator{response: response})

	result, err := gateway.Analyze(context.Background(), testCV, testJD)
	require.NoError(t, err)

	assert.Equal(t, 100, result.MatchPercentage)
	assert.Equal(t, 0, result.ScoreBreakdown.Experience)
	assert.Equal(t, 100, result.ScoreBreakdown.Education)
	assert.Equal(t, 55, result.ScoreBreakdown.Skills, "clamping an in-range value is a no-op")
}

func TestAnalyze_ToleratesMissingBreakdown(t *testing.T) {
	response := `{
		"match_percentage": 60,
		"suggestions": {"keywords_to_add": ["Docker"], "skills_to_emphasize": [], "experience_to_detail": "More detail."}
	}`
	gateway := newTestGateway(t, &stubGenerator{response: response})

	result, err := gateway.Analyze(context.Background(), testCV, testJD)
	require.NoError(t, err)

	assert.Nil(t, result.ScoreBreakdown)
	assert.Equal(t, 60, result.MatchPercentage)
}

func TestAnalyze_HandlesMarkdownFencedJSON(t *testing.T) {
	response := "Here is the analysis:\n```json\n" + validAnalysisJSON + "\n```\n"
	gateway := newTestGateway(t, &stubGenerator{response: response})

	result, err := gateway.Analyze(context.Background(), testCV, testJD)
	require.NoError(t, err)
	assert.Equal(t, 78, result.MatchPercentage)
}

func TestAnalyze_RejectsMalformedResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "I cannot help with that."},
		{"missing required field", `{"score_breakdown": {"experience": 1, "education": 2, "skills": 3}}`},
		{"wrong type", `{"match_percentage": "high", "suggestions": {"keywords_to_add": [], "skills_to_emphasize": [], "experience_to_detail": ""}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := newTestGateway(t, &stubGenerator{response: tt.response})

			_, err := gateway.Analyze(context.Background(), testCV, testJD)
			require.Error(t, err)
			assert.Equal(t, GatewayGenerationFailed, asGatewayError(t, err).Kind)
		})
	}
}

func TestAnalyze_ProviderError(t *testing.T) {
	gateway := newTestGateway(t, &stubGenerator{err: errors.New("quota exceeded")})

	_, err := gateway.Analyze(context.Background(), testCV, testJD)
	require.Error(t, err)

	gwErr := asGatewayError(t, err)
	assert.Equal(t, GatewayGenerationFailed, gwErr.Kind)
	assert.Contains(t, gwErr.Detail, "quota exceeded")
	assert.NotContains(t, gwErr.Message, "quota exceeded", "provider detail must stay out of the user message")
}

func TestAnalyze_ShortInputRejected(t *testing.T) {
	gateway := newTestGateway(t, &stubGenerator{response: validAnalysisJSON})

	_, err := gateway.Analyze(context.Background(), "too short", testJD)
	require.Error(t, err)
	assert.Equal(t, GatewayInvalidInput, asGatewayError(t, err).Kind)
}

func TestCreateCV_Success(t *testing.T) {
	gen := &stubGenerator{response: "# Jane Doe\n\n## Experience\n\n- Led the Go platform team\n"}
	gateway := newTestGateway(t, gen)

	analysis := &models.AnalysisResult{
		MatchPercentage: 70,
		Suggestions:     models.Suggestions{KeywordsToAdd: []string{"Kubernetes"}},
	}

	doc, err := gateway.CreateCV(context.Background(), testCV, testJD, analysis)
	require.NoError(t, err)

	assert.Equal(t, models.FormatMarkdown, doc.Format)
	assert.True(t, strings.HasPrefix(doc.Content, "# "))
	// The analysis context is passed through to the provider unmodified.
	assert.Contains(t, gen.prompts[0], "Kubernetes")
}

func TestCreateCV_WithoutAnalysis(t *testing.T) {
	gen := &stubGenerator{response: "# Jane Doe\n\nExperience."}
	gateway := newTestGateway(t, gen)

	doc, err := gateway.CreateCV(context.Background(), testCV, testJD, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Content)
	assert.NotContains(t, gen.prompts[0], "PRIOR MATCH ANALYSIS")
}

func TestCreateCV_MissingHeadingStillSucceeds(t *testing.T) {
	gateway := newTestGateway(t, &stubGenerator{response: "Jane Doe, Go developer"})

	doc, err := gateway.CreateCV(context.Background(), testCV, testJD, nil)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe, Go developer", doc.Content)
}

func TestCreateCV_EmptyContentFails(t *testing.T) {
	gateway := newTestGateway(t, &stubGenerator{response: "   \n  "})

	_, err := gateway.CreateCV(context.Background(), testCV, testJD, nil)
	require.Error(t, err)
	assert.Equal(t, GatewayGenerationFailed, asGatewayError(t, err).Kind)
}

func TestCreateCoverLetter_Fresh(t *testing.T) {
	gen := &stubGenerator{response: "Dear Hiring Manager,\r\n\r\nI am excited to apply.\r\n\r\nSincerely,\r\nJane"}
	gateway := newTestGateway(t, gen)

	doc, err := gateway.CreateCoverLetter(context.Background(), CoverLetterRequest{
		CVText:         testCV,
		JobDescription: testJD,
	})
	require.NoError(t, err)

	assert.Equal(t, models.FormatPlainText, doc.Format)
	assert.NotContains(t, doc.Content, "\r", "line endings are normalized")
	assert.NotContains(t, gen.prompts[0], "PREVIOUS COVER LETTER")
}

func TestCreateCoverLetter_Revision(t *testing.T) {
	gen := &stubGenerator{response: "Dear Hiring Manager,\n\nRevised letter.\n\nSincerely,\nJane"}
	gateway := newTestGateway(t, gen)

	doc, err := gateway.CreateCoverLetter(context.Background(), CoverLetterRequest{
		CVText:         testCV,
		JobDescription: testJD,
		PriorLetter:    "Dear Hiring Manager,\n\nOld letter.\n\nSincerely,\nJane",
		PriorFeedback:  "Mention the platform migration and tighten the opening.",
	})
	require.NoError(t, err)

	assert.Equal(t, models.FormatPlainText, doc.Format)
	assert.Contains(t, gen.prompts[0], "Old letter.")
	assert.Contains(t, gen.prompts[0], "tighten the opening")
}

const validEvaluationJSON = `{
	"relevance_score": 82,
	"tone_analysis": "Professional and confident.",
	"keyword_usage": "Covers the main keywords.",
	"clarity_and_conciseness": "Clear and direct.",
	"ats_friendliness": "No formatting issues.",
	"overall_feedback": "Strong letter; add one concrete metric."
}`

func TestEvaluateCoverLetter_Success(t *testing.T) {
	gateway := newTestGateway(t, &stubGenerator{response: validEvaluationJSON})

	letter := strings.Repeat("Dear Hiring Manager, I would love to join your team. ", 2)
	result, err := gateway.EvaluateCoverLetter(context.Background(), letter, testJD)
	require.NoError(t, err)

	assert.Equal(t, 82, result.RelevanceScore)
	assert.Equal(t, "Strong letter; add one concrete metric.", result.OverallFeedback)
}

func TestEvaluateCoverLetter_ClampsScore(t *testing.T) {
	response := strings.Replace(validEvaluationJSON, "82", "250", 1)
	gateway := newTestGateway(t, &stubGenerator{response: response})

	letter := strings.Repeat("Dear Hiring Manager, I would love to join your team. ", 2)
	result, err := gateway.EvaluateCoverLetter(context.Background(), letter, testJD)
	require.NoError(t, err)
	assert.Equal(t, 100, result.RelevanceScore)
}

func TestEvaluateCoverLetter_EmptyFieldIsIncomplete(t *testing.T) {
	response := strings.Replace(validEvaluationJSON, "Strong letter; add one concrete metric.", "  ", 1)
	gateway := newTestGateway(t, &stubGenerator{response: response})

	letter := strings.Repeat("Dear Hiring Manager, I would love to join your team. ", 2)
	_, err := gateway.EvaluateCoverLetter(context.Background(), letter, testJD)
	require.Error(t, err)
	assert.Equal(t, GatewayIncompleteResponse, asGatewayError(t, err).Kind)
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{-5, 0},
		{0, 0},
		{50, 50},
		{99.6, 100},
		{100, 100},
		{1000, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampScore(tt.in), "clampScore(%v)", tt.in)
	}
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, extractJSON("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, extractJSON(`Sure! {"a": 1} Hope that helps.`))
	assert.Equal(t, "no braces here", extractJSON("no braces here"))
}

func asGatewayError(t *testing.T, err error) *GatewayError {
	t.Helper()
	gwErr, ok := err.(*GatewayError)
	require.True(t, ok, "expected *GatewayError, got %T", err)
	return gwErr
}
