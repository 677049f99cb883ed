package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "anthropic", cfg.Engine)
	assert.Equal(t, 8192, cfg.MaxTokens)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadProfileOverlay(t *testing.T) {
	v := newViper()
	v.Set("model", "claude-sonnet-4-20250514")
	v.Set("profile", "local")
	v.Set("profiles", map[string]any{
		"local": map[string]any{
			"engine":     "openai",
			"model":      "gpt-4.1",
			"max_tokens": "4096",
		},
	})

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Engine)
	assert.Equal(t, "gpt-4.1", cfg.Model)
	assert.Equal(t, 4096, cfg.MaxTokens)
	// Untouched keys keep their base values.
	assert.Equal(t, 8000, cfg.Port)
}

func TestLoadUnknownProfile(t *testing.T) {
	v := newViper()
	v.Set("profile", "missing")

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown profile "missing"`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(v *viper.Viper)
		wantErr string
	}{
		{"bad port", func(v *viper.Viper) { v.Set("port", 0) }, "port must be between"},
		{"empty host", func(v *viper.Viper) { v.Set("host", "") }, "host cannot be empty"},
		{"bad max tokens", func(v *viper.Viper) { v.Set("max_tokens", -1) }, "max_tokens must be positive"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := newViper()
			tc.mutate(v)
			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
