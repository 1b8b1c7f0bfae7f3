package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvMissingBackend(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "nothing", env: map[string]string{}},
		{name: "no key", env: map[string]string{"SUPABASE_URL": "https://x.supabase.co"}},
		{name: "no url", env: map[string]string{"SUPABASE_ANON_KEY": "anon"}},
		{name: "blank url", env: map[string]string{"SUPABASE_URL": "  ", "SUPABASE_ANON_KEY": "anon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromEnv(envMap(tt.env))
			assert.ErrorIs(t, err, ErrMissingBackend)
			assert.Nil(t, cfg)
		})
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"SUPABASE_URL":      "https://x.supabase.co/",
		"SUPABASE_ANON_KEY": "anon",
		"ALLOWED_ORIGINS":   "https://a.example, ,https://b.example",
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://x.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, ":8080", cfg.BindAddr)
	assert.Equal(t, "local", cfg.MediaBackend)
	assert.Equal(t, 60*time.Second, cfg.ProfileCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.GoogleEnabled())
}
