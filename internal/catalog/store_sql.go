// Package catalog keeps the user's preferences and the history of export
// runs in the SQL database.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/segmentio/ksuid"
)

var ErrNotFound = errors.New("not found")

// Known preference keys.
const (
	PrefTemplateSource = "template_source"
	PrefExportPrefix   = "export_prefix"
	PrefStylesheet     = "stylesheet"
	PrefLocale         = "locale"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

type ExportRun struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Format        string    `json:"format"` // pif | dir | course
	QuestionCount int       `json:"question_count"`
	Output        string    `json:"output"`
	Bytes         int64     `json:"bytes"`
	Status        string    `json:"status"`
	Message       string    `json:"message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Preference struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// RecordExport stores a run, assigning its id and timestamp when unset.
func (s *SQLStore) RecordExport(ctx context.Context, r ExportRun) (ExportRun, error) {
	if r.ID == "" {
		r.ID = ksuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.Status == "" {
		r.Status = StatusOK
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO export_runs (id,title,format,question_count,output,bytes,status,message,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.ID, r.Title, r.Format, r.QuestionCount, r.Output, r.Bytes, r.Status, r.Message, r.CreatedAt.UnixNano())
	return r, err
}

// ListExports returns the most recent runs first.
func (s *SQLStore) ListExports(ctx context.Context, limit int) ([]ExportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,title,format,question_count,output,bytes,status,message,created_at
		 FROM export_runs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExportRun
	for rows.Next() {
		var r ExportRun
		var created int64
		if err := rows.Scan(&r.ID, &r.Title, &r.Format, &r.QuestionCount, &r.Output, &r.Bytes, &r.Status, &r.Message, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetPreference(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key=$1`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

// PreferenceOr returns the stored value of key, or def when unset.
func (s *SQLStore) PreferenceOr(ctx context.Context, key, def string) (string, error) {
	v, err := s.GetPreference(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	return v, err
}

func (s *SQLStore) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key,value,updated_at) VALUES ($1,$2,$3)
		 ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=EXCLUDED.updated_at`,
		key, value, time.Now().Unix())
	return err
}

func (s *SQLStore) DeletePreference(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE key=$1`, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListPreferences(ctx context.Context) ([]Preference, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key,value,updated_at FROM preferences ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Preference
	for rows.Next() {
		var p Preference
		var ts int64
		if err := rows.Scan(&p.Key, &p.Value, &ts); err != nil {
			return nil, err
		}
		p.UpdatedAt = time.Unix(ts, 0)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ExportDefaults are the export settings a run starts from.
type ExportDefaults struct {
	TemplateSource string
	Prefix         string
	Stylesheet     string
	Locale         string
}

// ExportDefaults overlays the stored preferences on def.
func (s *SQLStore) ExportDefaults(ctx context.Context, def ExportDefaults) (ExportDefaults, error) {
	fields := []struct {
		key string
		dst *string
	}{
		{PrefTemplateSource, &def.TemplateSource},
		{PrefExportPrefix, &def.Prefix},
		{PrefStylesheet, &def.Stylesheet},
		{PrefLocale, &def.Locale},
	}
	for _, f := range fields {
		v, err := s.PreferenceOr(ctx, f.key, *f.dst)
		if err != nil {
			return def, err
		}
		*f.dst = v
	}
	return def, nil
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
