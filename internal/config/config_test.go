package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModeOffline, cfg.Mode)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, TemplateBundled, cfg.TemplateSource)
	assert.False(t, cfg.EnableAuth)
	assert.Len(t, cfg.CORSOrigins, 2)
}

func TestLoadFileAndEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "scormkit.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
mode: online
http_addr: ":9000"
template_source: /srv/templates.zip
cors_origins: "https://a.example, https://b.example"
`), 0o644))
	t.Setenv("SCORMKIT_HTTP_ADDR", ":9100")
	t.Setenv("SCORMKIT_ENABLE_AUTH", "true")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ModeOnline, cfg.Mode)
	assert.Equal(t, ":9100", cfg.HTTPAddr)
	assert.True(t, cfg.EnableAuth)
	assert.Equal(t, "/srv/templates.zip", cfg.TemplateSource)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	t.Setenv("SCORMKIT_MODE", "sideways")
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
