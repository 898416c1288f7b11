package http

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"

	"github.com/mind-engage/mindengage-scorm/internal/catalog"
	"github.com/mind-engage/mindengage-scorm/internal/quiz"
	"github.com/mind-engage/mindengage-scorm/internal/scorm"
	"github.com/mind-engage/mindengage-scorm/internal/storage"
)

func exportKey(id string) string { return "exports/" + id + ".zip" }

// quizFormat picks the decoder from ?format= or the request content type.
func quizFormat(r *http.Request) (quiz.Format, bool) {
	if f := strings.ToLower(r.URL.Query().Get("format")); f != "" {
		switch quiz.Format(f) {
		case quiz.FormatGIFT, quiz.FormatYAML, quiz.FormatJSON:
			return quiz.Format(f), true
		}
		return "", false
	}
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/json":
		return quiz.FormatJSON, true
	case "application/yaml", "application/x-yaml", "text/yaml":
		return quiz.FormatYAML, true
	case "", "text/plain", "application/octet-stream":
		return quiz.FormatGIFT, true
	}
	return "", false
}

// POST /exports?title=..&locale=..&prefix=..&stylesheet=..
// Body: GIFT text, YAML or JSON question file (see quizFormat).
// Responds with the PIF; the run and its package are kept for later download.
func CreateExportHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		format, ok := quizFormat(r)
		if !ok {
			http.Error(w, "unsupported question format", http.StatusUnsupportedMediaType)
			return
		}
		qz, err := quiz.Decode(http.MaxBytesReader(w, r.Body, maxUpload), format)
		if err != nil {
			http.Error(w, "questions: "+err.Error(), http.StatusBadRequest)
			return
		}
		if len(qz.Questions) == 0 {
			http.Error(w, "no questions", http.StatusBadRequest)
			return
		}
		title := r.URL.Query().Get("title")
		if title == "" {
			title = qz.Title
		}
		if title == "" {
			title = "Quiz"
		}

		def, err := d.exportDefaults(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		q := r.URL.Query()
		for key, dst := range map[string]*string{"stylesheet": &def.Stylesheet, "locale": &def.Locale, "prefix": &def.Prefix} {
			if q.Has(key) {
				*dst = q.Get(key)
			}
		}
		tmpl, err := scorm.OpenTemplates(def.TemplateSource)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer tmpl.Close()

		run := catalog.ExportRun{
			ID:            ksuid.New().String(),
			Title:         title,
			Format:        "pif",
			QuestionCount: len(qz.Questions),
		}
		run.Output = exportKey(run.ID)

		var buf bytes.Buffer
		sink := storage.NewZipSink(&buf)
		ex := scorm.NewExporter(d.Log.With("export", run.ID))
		ex.Templates = tmpl
		res, err := ex.Export(ctx, qz.Questions, scorm.Options{
			Title:      title,
			Stylesheet: def.Stylesheet,
			Locale:     def.Locale,
			Prefix:     def.Prefix,
			BaseDir:    d.Cfg.OutputDir,
		}, sink)
		if err == nil {
			err = sink.Close()
		}
		if err != nil {
			run.Status, run.Message, run.Output = catalog.StatusFailed, err.Error(), ""
			if _, rerr := d.Store.RecordExport(ctx, run); rerr != nil {
				d.Log.Error("record export", "err", rerr)
			}
			switch {
			case errors.Is(err, scorm.ErrOutsideBaseDir):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, scorm.ErrUnsupportedQuestion):
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			case errors.Is(err, scorm.ErrCanceled):
				http.Error(w, err.Error(), http.StatusRequestTimeout)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		if _, err := d.Blobs.Put(run.Output, bytes.NewReader(buf.Bytes())); err != nil {
			http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		run.Bytes = int64(buf.Len())
		if _, err := d.Store.RecordExport(ctx, run); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		d.Log.Info("export created", "id", run.ID, "questions", run.QuestionCount,
			"pages", res.Pages, "external", res.External, "issues", len(res.Issues))

		if u, err := d.Blobs.SignedURL(run.Output); err == nil {
			w.Header().Set(headerLocation, u)
		}
		w.Header().Set(headerExportID, run.ID)
		w.Header().Set(headerIssues, strconv.Itoa(len(res.Issues)))
		sendZip(w, run.ID+".zip", buf.Bytes())
	}
}

// GET /exports?limit=50
func ListExportsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := d.Store.ListExports(r.Context(), parseIntDefault(r.URL.Query().Get("limit"), 50))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if runs == nil {
			runs = []catalog.ExportRun{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

// GET /exports/{id}/package
func DownloadExportHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := ksuid.Parse(id); err != nil {
			http.Error(w, "bad export id", http.StatusBadRequest)
			return
		}
		rc, err := d.Blobs.Get(exportKey(id))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", "attachment; filename=\""+id+".zip\"")
		_, _ = io.Copy(w, rc)
	}
}
