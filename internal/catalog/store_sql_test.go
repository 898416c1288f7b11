package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-scorm/internal/db"
)

func newStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "catalog.db") + "?_pragma=busy_timeout(5000)"
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewSQLStore(conn)
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.GetPreference(ctx, PrefTemplateSource)
	assert.ErrorIs(t, err, ErrNotFound)
	v, err := s.PreferenceOr(ctx, PrefTemplateSource, "bundled")
	require.NoError(t, err)
	assert.Equal(t, "bundled", v)

	require.NoError(t, s.SetPreference(ctx, PrefTemplateSource, "/srv/t.zip"))
	require.NoError(t, s.SetPreference(ctx, PrefTemplateSource, "/srv/other"))
	require.NoError(t, s.SetPreference(ctx, PrefLocale, "de"))
	v, err = s.GetPreference(ctx, PrefTemplateSource)
	require.NoError(t, err)
	assert.Equal(t, "/srv/other", v)

	prefs, err := s.ListPreferences(ctx)
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	assert.Equal(t, PrefLocale, prefs[0].Key)

	require.NoError(t, s.DeletePreference(ctx, PrefLocale))
	assert.ErrorIs(t, s.DeletePreference(ctx, PrefLocale), ErrNotFound)
}

func TestExportHistory(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	base := time.Now().Add(-time.Hour)
	first, err := s.RecordExport(ctx, ExportRun{Title: "One", Format: "pif", QuestionCount: 3, Output: "one.zip", Bytes: 1024, CreatedAt: base})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, StatusOK, first.Status)
	_, err = s.RecordExport(ctx, ExportRun{Title: "Two", Format: "dir", Output: "two", Status: StatusFailed, Message: "boom", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)

	runs, err := s.ListExports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "Two", runs[0].Title)
	assert.Equal(t, "boom", runs[0].Message)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, int64(1024), runs[1].Bytes)
	assert.WithinDuration(t, base, runs[1].CreatedAt, time.Millisecond)

	runs, err = s.ListExports(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestExportDefaultsPreferStoredValues(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SetPreference(ctx, PrefLocale, "fr"))

	got, err := s.ExportDefaults(ctx, ExportDefaults{TemplateSource: "bundled", Locale: "en", Prefix: "q_"})
	require.NoError(t, err)
	assert.Equal(t, ExportDefaults{TemplateSource: "bundled", Locale: "fr", Prefix: "q_"}, got)
}
