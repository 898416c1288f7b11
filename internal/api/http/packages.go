package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-scorm/internal/cam"
	"github.com/mind-engage/mindengage-scorm/internal/course"
	"github.com/mind-engage/mindengage-scorm/internal/storage"
)

type organizationView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Structure string `json:"structure"`
	Default   bool   `json:"default"`
}

type validationView struct {
	Package       string             `json:"package"`
	Manifest      string             `json:"manifest"`
	Valid         bool               `json:"valid"`
	Errors        int                `json:"errors"`
	Warnings      int                `json:"warnings"`
	Issues        []cam.Issue        `json:"issues"`
	Organizations []organizationView `json:"organizations"`
}

// POST /packages/validate (multipart: file=package.zip)
func ValidatePackageHandler(d Deps) http.HandlerFunc {
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

		out := validationView{
			Package:  name,
			Manifest: m.Manifest.ID,
			Valid:    m.Report.Valid(),
			Errors:   m.Report.Errors(),
			Warnings: m.Report.Warnings(),
			Issues:   m.Report.Issues(),
		}
		if out.Issues == nil {
			out.Issues = []cam.Issue{}
		}
		if orgs := m.Manifest.Organizations; orgs != nil {
			def := orgs.DefaultOrganization()
			for _, o := range orgs.Items {
				out.Organizations = append(out.Organizations, organizationView{
					ID: o.ID, Title: o.Title, Structure: o.Structure, Default: o == def,
				})
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}
