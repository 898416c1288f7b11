// Package course turns a SCORM content package into a small self-contained
// course: a player page with a SCORM 1.2 runtime that launches the items of
// one organization from the package's own files.
package course

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/mind-engage/mindengage-scorm/internal/cam"
	"github.com/mind-engage/mindengage-scorm/internal/platform/logger"
	"github.com/mind-engage/mindengage-scorm/internal/storage"
)

var ErrInvalidPackage = errors.New("invalid content package")

// Model is a loaded content package with one selected organization.
type Model struct {
	Name     string
	Manifest *cam.Manifest
	Report   *cam.Report
	Files    cam.FileSet

	src storage.Source
	org *cam.Organization
	log *logger.Logger
}

// Load opens a PIF or content package directory.
func Load(path string, log *logger.Logger) (*Model, error) {
	src, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	m, err := FromSource(src, path, log)
	if err != nil {
		src.Close()
		return nil, err
	}
	return m, nil
}

// FromSource parses and validates the package in src. The model owns src
// and closes it in Close.
func FromSource(src storage.Source, name string, log *logger.Logger) (*Model, error) {
	if log == nil {
		log = logger.Nop()
	}
	names, err := src.Names()
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "list %s", name)
	}
	raw, err := storage.ReadAll(src, cam.ManifestName)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "read manifest of %s", name)
	}
	man, err := cam.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "parse manifest of %s", name)
	}
	m := &Model{
		Name:     name,
		Manifest: man,
		Files:    cam.NewFileSet(names...),
		src:      src,
		log:      log,
	}
	m.Report = cam.Validate(man, m.Files)
	m.org = man.Organizations.DefaultOrganization()
	if m.org == nil && len(man.Organizations.Items) > 0 {
		m.org = man.Organizations.Items[0]
	}
	log.Info("package loaded", "package", name, "manifest", man.ID,
		"errors", m.Report.Errors(), "warnings", m.Report.Warnings())
	return m, nil
}

func (m *Model) Close() error { return m.src.Close() }

// Organization is the selected organization, nil when the package has none.
func (m *Model) Organization() *cam.Organization { return m.org }

func (m *Model) SelectOrganization(id string) error {
	org := m.Manifest.Organizations.ByID(id)
	if org == nil {
		return fmt.Errorf("organization %q not found", id)
	}
	m.org = org
	return nil
}

// scriptItem is one entry of the course tree handed to the player.
type scriptItem struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Resource     string        `json:"resource,omitempty"`
	Href         string        `json:"href,omitempty"`
	Visible      bool          `json:"visible"`
	MasteryScore string        `json:"masteryScore,omitempty"`
	DataFromLMS  string        `json:"dataFromLms,omitempty"`
	Items        []*scriptItem `json:"items,omitempty"`
}

type scriptResource struct {
	ID        string `json:"id"`
	Href      string `json:"href,omitempty"`
	ScormType string `json:"scormType"`
}

type scriptCourse struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Structure string           `json:"structure"`
	Columns   []string         `json:"columns,omitempty"`
	Items     []*scriptItem    `json:"items"`
	Resources []scriptResource `json:"resources"`
}

func (m *Model) course() (*scriptCourse, error) {
	org := m.org
	if org == nil {
		return nil, fmt.Errorf("%s has no organization", m.Name)
	}
	c := &scriptCourse{
		ID:        org.ID,
		Title:     org.Title,
		Structure: org.Structure,
		Items:     m.scriptItems(org.Items),
		Resources: []scriptResource{},
	}
	if org.Structure == cam.StructureLayered {
		c.Columns = org.DistinctColumnTitles()
	}
	for _, r := range org.ReferencedResources() {
		c.Resources = append(c.Resources, scriptResource{ID: r.ID, Href: launchURL(r, ""), ScormType: r.ScormType})
	}
	return c, nil
}

func (m *Model) scriptItems(items []*cam.Item) []*scriptItem {
	out := make([]*scriptItem, 0, len(items))
	for _, it := range items {
		si := &scriptItem{
			ID:           it.ID,
			Title:        it.Title,
			Resource:     it.IdentifierRef,
			Visible:      it.IsVisible,
			MasteryScore: it.MasteryScore,
			DataFromLMS:  it.DataFromLMS,
			Items:        m.scriptItems(it.Items),
		}
		if r := m.resource(it.IdentifierRef); r != nil {
			si.Href = launchURL(r, it.Parameters)
		}
		out = append(out, si)
	}
	return out
}

func (m *Model) resource(id string) *cam.Resource {
	man := m.org.Manifest()
	if id == "" || man == nil || man.Resources == nil {
		return nil
	}
	return man.Resources.ByID(id)
}

// OrganizationScript renders the selected organization as the course.js
// script of the player, items in document order.
func (m *Model) OrganizationScript() (string, error) {
	c, err := m.course()
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return "var course = " + string(b) + ";\n", nil
}

// launchURL joins a resource's href with item parameters the way SCORM 1.2
// launches content: a leading '?' or '&' is adapted to the query already
// present in the href.
func launchURL(r *cam.Resource, params string) string {
	href := r.FullHref()
	if href == "" {
		return ""
	}
	href += hrefSuffix(r.Href)
	params = strings.TrimSpace(params)
	if params == "" {
		return href
	}
	base, frag, _ := strings.Cut(href, "#")
	p := strings.TrimLeft(params, "?&")
	if strings.HasPrefix(params, "#") {
		return base + params
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	out := base + sep + p
	if frag != "" {
		out += "#" + frag
	}
	return out
}

func hrefSuffix(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		return href[i:]
	}
	return ""
}
