package course

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-scorm/internal/cam"
	"github.com/mind-engage/mindengage-scorm/internal/platform/logger"
	"github.com/mind-engage/mindengage-scorm/internal/storage"
)

const courseManifest = `<?xml version="1.0"?>
<manifest identifier="COURSE" xmlns="http://www.imsproject.org/xsd/imscp_rootv1p1p2"
  xmlns:adlcp="http://www.adlnet.org/xsd/adlcp_rootv1p2">
  <organizations default="TREE">
    <organization identifier="TREE">
      <title>Tree</title>
      <item identifier="I1" identifierref="R1"><title>Intro</title></item>
      <item identifier="I2"><title>Unit</title>
        <item identifier="I3" identifierref="R2" parameters="?page=2"><title>Lesson</title>
          <adlcp:masteryscore>70</adlcp:masteryscore>
        </item>
      </item>
    </organization>
    <organization identifier="GRID" structure="layered">
      <title>Grid</title>
      <item identifier="W1"><title>Week 1</title>
        <item identifier="W1R" identifierref="R1"><title>Read</title></item>
        <item identifier="W1Q" identifierref="R2"><title>Quiz</title></item>
      </item>
      <item identifier="W2"><title>Week 2</title>
        <item identifier="W2Q" identifierref="R2"><title>Quiz</title></item>
      </item>
    </organization>
  </organizations>
  <resources>
    <resource identifier="R1" type="webcontent" adlcp:scormtype="sco" href="intro.html">
      <file href="intro.html"/>
      <dependency identifierref="LIB"/>
    </resource>
    <resource identifier="R2" type="webcontent" adlcp:scormtype="sco" href="lesson.html?mode=x">
      <file href="lesson.html"/>
      <dependency identifierref="LIB"/>
    </resource>
    <resource identifier="LIB" type="webcontent" adlcp:scormtype="asset">
      <file href="lib/api.js"/>
    </resource>
    <resource identifier="EXTRA" type="webcontent" adlcp:scormtype="asset">
      <file href="extra.html"/>
    </resource>
  </resources>
</manifest>`

func writePackage(t *testing.T, manifest string, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	all := append([]string{cam.ManifestName}, files...)
	for _, name := range all {
		body := "content of " + name
		if name == cam.ManifestName {
			body = manifest
		}
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return dir
}

func loadCourse(t *testing.T) *Model {
	t.Helper()
	dir := writePackage(t, courseManifest, "intro.html", "lesson.html", "lib/api.js", "extra.html")
	m, err := Load(dir, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestLoadSelectsDefaultOrganization(t *testing.T) {
	m := loadCourse(t)
	assert.True(t, m.Report.Valid())
	require.NotNil(t, m.Organization())
	assert.Equal(t, "TREE", m.Organization().ID)

	require.NoError(t, m.SelectOrganization("GRID"))
	assert.Equal(t, "GRID", m.Organization().ID)
	assert.Error(t, m.SelectOrganization("NOPE"))
}

func TestOrganizationScriptKeepsOrder(t *testing.T) {
	m := loadCourse(t)
	script, err := m.OrganizationScript()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(script, "var course = "))

	var c scriptCourse
	body := strings.TrimSuffix(strings.TrimPrefix(script, "var course = "), ";\n")
	require.NoError(t, json.Unmarshal([]byte(body), &c))
	assert.Equal(t, "TREE", c.ID)
	require.Len(t, c.Items, 2)
	assert.Equal(t, "Intro", c.Items[0].Title)
	assert.Equal(t, "intro.html", c.Items[0].Href)
	require.Len(t, c.Items[1].Items, 1)
	lesson := c.Items[1].Items[0]
	assert.Equal(t, "lesson.html?mode=x&page=2", lesson.Href)
	assert.Equal(t, "70", lesson.MasteryScore)
	require.Len(t, c.Resources, 2)
	assert.Equal(t, "R1", c.Resources[0].ID)
	assert.Empty(t, c.Columns)
}

func TestBuildCopiesClosure(t *testing.T) {
	m := loadCourse(t)
	var buf bytes.Buffer
	sink := storage.NewZipSink(&buf)
	res, err := m.Build(context.Background(), sink, BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	assert.Empty(t, res.Skipped)

	src, err := storage.ZipFromBytes(buf.Bytes())
	require.NoError(t, err)
	names, err := src.Names()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		IndexName, ScriptName, RuntimeName, StyleName,
		"intro.html", "lesson.html", "lib/api.js",
	}, names)

	index, err := storage.ReadAll(src, IndexName)
	require.NoError(t, err)
	html := string(index)
	assert.Contains(t, html, `data-item="I1"`)
	assert.Contains(t, html, `data-mastery="70"`)
	assert.Less(t, strings.Index(html, "Intro"), strings.Index(html, "Lesson"))
}

func TestBuildLayeredOrganization(t *testing.T) {
	m := loadCourse(t)
	require.NoError(t, m.SelectOrganization("GRID"))

	script, err := m.OrganizationScript()
	require.NoError(t, err)
	assert.Contains(t, script, `"columns": [`)

	out := filepath.Join(t.TempDir(), "course")
	sink, err := storage.Create(out, true)
	require.NoError(t, err)
	_, err = m.Build(context.Background(), sink, BuildOptions{Title: "Weekly"})
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	index, err := os.ReadFile(filepath.Join(out, IndexName))
	require.NoError(t, err)
	html := string(index)
	assert.Contains(t, html, "<title>Weekly</title>")
	assert.Contains(t, html, "<th>Read</th><th>Quiz</th>")
	// Week 2 has no Read cell, its Quiz lands in the second column.
	assert.Contains(t, html, `<tr><th>Week 2</th><td></td><td><a href="lesson.html?mode=x" target="content" data-item="W2Q">Quiz</a></td></tr>`)
}

func TestBuildRefusesInvalidPackage(t *testing.T) {
	dir := writePackage(t, courseManifest, "intro.html", "extra.html")
	m, err := Load(dir, logger.Nop())
	require.NoError(t, err)
	defer m.Close()
	assert.False(t, m.Report.Valid())

	_, err = m.Build(context.Background(), storage.NewZipSink(&bytes.Buffer{}), BuildOptions{})
	assert.ErrorIs(t, err, ErrInvalidPackage)

	res, err := m.Build(context.Background(), storage.NewZipSink(&bytes.Buffer{}), BuildOptions{Force: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lesson.html", "lib/api.js"}, res.Skipped)
}

func TestLaunchURL(t *testing.T) {
	r := &cam.Resource{Href: "a.html?x=1#top"}
	assert.Equal(t, "a.html?x=1#top", launchURL(r, ""))
	assert.Equal(t, "a.html?x=1&y=2#top", launchURL(r, "?y=2"))
	assert.Equal(t, "b.html?y=2", launchURL(&cam.Resource{Href: "b.html"}, "&y=2"))
	assert.Equal(t, "b.html#part", launchURL(&cam.Resource{Href: "b.html"}, "#part"))
	assert.Equal(t, "", launchURL(&cam.Resource{}, "?a=1"))
}
