package services

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Provider responses are validated against these schemas at the boundary,
// before anything downstream touches a field. score_breakdown is optional:
// older prompt revisions did not request it.
const analysisResponseSchema = `{
  "type": "object",
  "required": ["match_percentage", "suggestions"],
  "properties": {
    "match_percentage": {"type": "number"},
    "score_breakdown": {
      "type": "object",
      "required": ["experience", "education", "skills"],
      "properties": {
        "experience": {"type": "number"},
        "education": {"type": "number"},
        "skills": {"type": "number"}
      }
    },
    "suggestions": {
      "type": "object",
      "required": ["keywords_to_add", "skills_to_emphasize", "experience_to_detail"],
      "properties": {
        "keywords_to_add": {"type": "array", "items": {"type": "string"}},
        "skills_to_emphasize": {"type": "array", "items": {"type": "string"}},
        "experience_to_detail": {"type": "string"}
      }
    }
  }
}`

const evaluationResponseSchema = `{
  "type": "object",
  "required": ["relevance_score", "tone_analysis", "keyword_usage", "clarity_and_conciseness", "ats_friendliness", "overall_feedback"],
  "properties": {
    "relevance_score": {"type": "number"},
    "tone_analysis": {"type": "string"},
    "keyword_usage": {"type": "string"},
    "clarity_and_conciseness": {"type": "string"},
    "ats_friendliness": {"type": "string"},
    "overall_feedback": {"type": "string"}
  }
}`

type responseSchemas struct {
	analysis   *gojsonschema.Schema
	evaluation *gojsonschema.Schema
}

func compileResponseSchemas() (*responseSchemas, error) {
	analysis, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(analysisResponseSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile analysis schema: %w", err)
	}

	evaluation, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(evaluationResponseSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile evaluation schema: %w", err)
	}

	return &responseSchemas{analysis: analysis, evaluation: evaluation}, nil
}

// validate runs a schema against a raw JSON document and flattens any
// violations into one error.
func validateAgainst(schema *gojsonschema.Schema, rawJSON string) error {
	result, err := schema.Validate(gojsonschema.NewStringLoader(rawJSON))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		msg := ""
		for i, violation := range result.Errors() {
			if i > 0 {
				msg += "; "
			}
			msg += violation.String()
		}
		return fmt.Errorf("response does not match expected shape: %s", msg)
	}
	return nil
}
