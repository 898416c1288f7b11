package http

import (
	"bytes"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/mind-engage/mindengage-scorm/internal/course"
	"github.com/mind-engage/mindengage-scorm/internal/storage"
)

// POST /courses/build (multipart: file=package.zip, organization, title, force)
// Responds with a zip holding the player and the organization's files.
func BuildCourseHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, name, ok := readUpload(w, r)
		if !ok {
			return
		}
		src, err := storage.ZipFromBytes(body)
		if err != nil {
			http.Error(w, "unzip: "+err.Error(), http.StatusBadRequest)
			return
		}
		m, err := course.FromSource(src, name, d.Log)
		if err != nil {
			src.Close()
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		defer m.Close()

		if org := r.FormValue("organization"); org != "" {
			if err := m.SelectOrganization(org); err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
		}
		if m.Organization() == nil {
			http.Error(w, "package has no organization", http.StatusUnprocessableEntity)
			return
		}

		var buf bytes.Buffer
		sink := storage.NewZipSink(&buf)
		res, err := m.Build(r.Context(), sink, course.BuildOptions{
			Force: parseBool(r.FormValue("force")),
			Title: r.FormValue("title"),
		})
		if err == nil {
			err = sink.Close()
		}
		if err != nil {
			if errors.Is(err, course.ErrInvalidPackage) {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
					"error":  err.Error(),
					"issues": m.Report.Issues(),
				})
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		d.Log.Debug("course response", "package", name, "bytes", buf.Len(), "skipped", len(res.Skipped))

		base := strings.TrimSuffix(path.Base(name), path.Ext(name))
		if base == "" || base == "." {
			base = "course"
		}
		sendZip(w, base+"-course.zip", buf.Bytes())
	}
}
