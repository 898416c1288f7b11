package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExportPrefsAndHistory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCORMKIT_DB_DSN", "file:"+filepath.Join(dir, "cli.db")+"?_pragma=busy_timeout(5000)")
	t.Setenv("SCORMKIT_OUTPUT_DIR", dir)
	t.Setenv("SCORMKIT_LOG_MODE", "quiet")

	src := filepath.Join(dir, "geo.gift")
	require.NoError(t, os.WriteFile(src, []byte("::Capital::Capital of France? {=Paris ~Rome}\n"), 0o644))

	_, err := run(t, "prefs", "set", "export_prefix", "geo_")
	require.NoError(t, err)
	out, err := run(t, "prefs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "geo_")

	out, err = run(t, "export", src)
	require.NoError(t, err, out)
	zipPath := filepath.Join(dir, "geo.zip")
	assert.FileExists(t, zipPath)

	out, err = run(t, "validate", zipPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "valid")

	out, err = run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "geo")
	assert.Contains(t, out, "1 questions")

	site := filepath.Join(dir, "site")
	out, err = run(t, "course", zipPath, "-o", site)
	require.NoError(t, err, out)
	assert.FileExists(t, filepath.Join(site, "index.html"))
}

func TestValidateFailsOnBrokenPackage(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCORMKIT_LOG_MODE", "quiet")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "imsmanifest.xml"), []byte(`<?xml version="1.0"?>
<manifest identifier="M" xmlns="http://www.imsproject.org/xsd/imscp_rootv1p1p2">
  <organizations/>
  <resources>
    <resource identifier="R" type="webcontent" href="gone.html"><file href="gone.html"/></resource>
  </resources>
</manifest>`), 0o644))

	out, err := run(t, "validate", dir)
	assert.Error(t, err)
	assert.Contains(t, out, "gone.html")
}
