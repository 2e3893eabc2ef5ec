package services

import (
	"encoding/json"
	"fmt"

	"jobfit/cv-tailor/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildAnalysisPrompt creates the prompt for matching a CV against a job description.
func (pb *PromptBuilder) BuildAnalysisPrompt(cvText, jobDescription string) string {
	return fmt.Sprintf(`You are an expert HR recruiter and ATS specialist analyzing how well a candidate's CV matches a job description.

JOB DESCRIPTION:
%s

CANDIDATE CV:
%s

Score the match and suggest concrete improvements. Base every suggestion strictly on the two texts above.

Return your response in the following JSON format:
{
  "match_percentage": <integer 0-100, overall match>,
  "score_breakdown": {
    "experience": <integer 0-100>,
    "education": <integer 0-100>,
    "skills": <integer 0-100>
  },
  "suggestions": {
    "keywords_to_add": ["<keyword from the job description missing in the CV>", ...],
    "skills_to_emphasize": ["<skill already in the CV worth highlighting>", ...],
    "experience_to_detail": "<which experience the candidate should expand on, 1-3 sentences>"
  }
}

Be objective. Return ONLY the JSON object.`, jobDescription, cvText)
}

// BuildTailoredCVPrompt creates the prompt for generating a tailored CV in Markdown.
func (pb *PromptBuilder) BuildTailoredCVPrompt(cvText, jobDescription string, analysis *models.AnalysisResult) string {
	return fmt.Sprintf(`You are an expert CV writer optimizing a candidate's CV for a specific job.

JOB DESCRIPTION:
%s

ORIGINAL CV:
%s
%s
Rewrite the CV tailored to this job description. Rules:
- Use ONLY facts present in the original CV. Never invent experience, skills, or qualifications.
- Reorder and rephrase to emphasize what the job description asks for.
- Output Markdown, starting with a top-level heading (the candidate's name).
- Keep the standard sections: summary, experience, education, skills.

Return ONLY the Markdown document, no commentary.`, jobDescription, cvText, pb.analysisContext(analysis))
}

// BuildCoverLetterPrompt creates the prompt for generating or revising a cover
// letter. When priorLetter is non-empty the prompt asks for a revision guided
// by priorFeedback.
func (pb *PromptBuilder) BuildCoverLetterPrompt(cvText, jobDescription string, analysis *models.AnalysisResult, priorLetter, priorFeedback string) string {
	revision := ""
	if priorLetter != "" {
		revision = fmt.Sprintf(`
PREVIOUS COVER LETTER:
%s

REVIEWER FEEDBACK ON THE PREVIOUS LETTER:
%s

Write an improved version that addresses the feedback while keeping what already worked.
`, priorLetter, priorFeedback)
	}

	return fmt.Sprintf(`You are an expert cover letter writer.

JOB DESCRIPTION:
%s

CANDIDATE CV:
%s
%s%s
Write a compelling, concise cover letter for this job. Rules:
- Use ONLY facts present in the CV.
- Plain text only: no Markdown, no markup tokens of any kind.
- Structure: salutation, 2-4 paragraphs, closing, signature, separated by single blank lines.

Return ONLY the letter text.`, jobDescription, cvText, pb.analysisContext(analysis), revision)
}

// BuildEvaluationPrompt creates the prompt for evaluating a cover letter.
func (pb *PromptBuilder) BuildEvaluationPrompt(coverLetterText, jobDescription string) string {
	return fmt.Sprintf(`You are an expert recruiter evaluating a cover letter against a job description.

JOB DESCRIPTION:
%s

COVER LETTER:
%s

Assess the letter on relevance, tone, keyword usage, clarity, and ATS friendliness.

Return your response in the following JSON format:
{
  "relevance_score": <integer 0-100>,
  "tone_analysis": "<2-3 sentences>",
  "keyword_usage": "<2-3 sentences>",
  "clarity_and_conciseness": "<2-3 sentences>",
  "ats_friendliness": "<2-3 sentences>",
  "overall_feedback": "<actionable summary, 3-5 sentences>"
}

Every field must be filled in. Return ONLY the JSON object.`, jobDescription, coverLetterText)
}

// analysisContext renders a prior analysis as an extra prompt section. The
// full result is passed through unmodified so the provider sees exactly what
// the analysis stage produced.
func (pb *PromptBuilder) analysisContext(analysis *models.AnalysisResult) string {
	if analysis == nil {
		return ""
	}
	raw, err := json.Marshal(analysis)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(`
PRIOR MATCH ANALYSIS (use to decide what to emphasize):
%s
`, string(raw))
}
