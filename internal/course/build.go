package course

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/Masterminds/sprig"
	pkgerrors "github.com/pkg/errors"

	"github.com/mind-engage/mindengage-scorm/internal/cam"
	"github.com/mind-engage/mindengage-scorm/internal/storage"
)

//go:embed player
var playerFS embed.FS

const (
	IndexName   = "index.html"
	ScriptName  = "course.js"
	RuntimeName = "lms/runtime.js"
	StyleName   = "lms/player.css"
)

var indexTemplate = template.Must(template.New("index.html.tmpl").Funcs(sprig.FuncMap()).
	ParseFS(playerFS, "player/index.html.tmpl"))

type BuildOptions struct {
	// Force builds packages that fail validation. Files they declare but
	// do not ship are skipped.
	Force bool
	// Title overrides the organization title on the player page.
	Title string
}

type BuildResult struct {
	Entries []string
	Skipped []string
}

type playerData struct {
	Title   string
	Layered bool
	Columns []string
	Rows    []playerRow
	Items   []*scriptItem
}

type playerRow struct {
	Title string
	Cells []*scriptItem
}

// Build writes the player, its runtime and every file the selected
// organization needs into sink.
func (m *Model) Build(ctx context.Context, sink storage.Sink, opts BuildOptions) (*BuildResult, error) {
	if !m.Report.Valid() && !opts.Force {
		return nil, fmt.Errorf("%w: %s has %d errors", ErrInvalidPackage, m.Name, m.Report.Errors())
	}
	c, err := m.course()
	if err != nil {
		return nil, err
	}
	script, err := m.OrganizationScript()
	if err != nil {
		return nil, err
	}
	index, err := renderIndex(c, opts.Title)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "render player")
	}

	res := &BuildResult{}
	generated := cam.NewFileSet()
	put := func(name string, body []byte) error {
		if err := sink.Put(name, bytes.NewReader(body)); err != nil {
			return pkgerrors.Wrapf(err, "write %s", name)
		}
		generated.Add(name)
		res.Entries = append(res.Entries, name)
		return nil
	}
	if err := put(IndexName, index); err != nil {
		return nil, err
	}
	if err := put(ScriptName, []byte(script)); err != nil {
		return nil, err
	}
	for _, name := range []string{RuntimeName, StyleName} {
		b, err := playerFS.ReadFile("player/" + strings.TrimPrefix(name, "lms/"))
		if err != nil {
			return nil, err
		}
		if err := put(name, b); err != nil {
			return nil, err
		}
	}

	for _, name := range m.ClosureFiles().Sorted() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch {
		case generated.Has(name):
			m.log.Warn("package file shadowed by player", "file", name)
			res.Skipped = append(res.Skipped, name)
			continue
		case !m.Files.Has(name):
			m.log.Warn("declared file missing", "file", name)
			res.Skipped = append(res.Skipped, name)
			continue
		}
		if err := storage.Copy(sink, m.src, name, name); err != nil {
			return nil, err
		}
		res.Entries = append(res.Entries, name)
	}
	m.log.Info("course built", "package", m.Name, "organization", c.ID,
		"entries", len(res.Entries), "skipped", len(res.Skipped))
	return res, nil
}

// ClosureFiles lists the launch files and declared files of every resource
// the selected organization references, dependencies included.
func (m *Model) ClosureFiles() cam.FileSet {
	names := cam.NewFileSet()
	if m.org == nil {
		return names
	}
	exclude := map[*cam.Resource]bool{}
	for _, r := range m.org.ReferencedResources() {
		for _, dep := range r.DependencyClosure() {
			names.Add(dep.FullHref())
		}
		r.AddReferencedFileNamesTo(names, exclude)
	}
	return names
}

func renderIndex(c *scriptCourse, title string) ([]byte, error) {
	d := playerData{
		Title:   c.Title,
		Layered: c.Structure == cam.StructureLayered,
		Columns: c.Columns,
		Items:   c.Items,
	}
	if title != "" {
		d.Title = title
	}
	if d.Layered {
		col := make(map[string]int, len(c.Columns))
		for i, t := range c.Columns {
			col[t] = i
		}
		for _, row := range c.Items {
			r := playerRow{Title: row.Title, Cells: make([]*scriptItem, len(c.Columns))}
			for _, cell := range row.Items {
				if i := col[cell.Title]; r.Cells[i] == nil {
					r.Cells[i] = cell
				}
			}
			d.Rows = append(d.Rows, r)
		}
	}
	var buf bytes.Buffer
	if err := indexTemplate.ExecuteTemplate(&buf, "index", d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
