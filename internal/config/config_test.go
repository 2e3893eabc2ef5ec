package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_RequiresGeminiAPIKey(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.Validate())

	cfg.Gemini.APIKey = "test-key"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("PORT", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("MAX_UPLOAD_SIZE", "")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.EqualValues(t, 10485760, cfg.Ingest.MaxUploadSize)
	assert.Equal(t, 50, cfg.Ingest.MinInputLength)
}
