package scorm

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/text/language"

	"github.com/mind-engage/mindengage-scorm/internal/cam"
	"github.com/mind-engage/mindengage-scorm/internal/platform/logger"
	"github.com/mind-engage/mindengage-scorm/internal/quiz"
	"github.com/mind-engage/mindengage-scorm/internal/storage"
)

const (
	commonDir         = "common/"
	commonResourceID  = "RES_COMMON"
	defaultStylesheet = commonDir + "quiz.css"
	organizationID    = "ORG_1"
)

// Bundled returns the runtime assets shipped with the exporter.
func Bundled() storage.Source {
	sub, err := fs.Sub(templateFS, "templates/bundle")
	if err != nil {
		panic(err)
	}
	return storage.NewFSSource(sub)
}

// TemplatesBundled names the assets compiled into the binary.
const TemplatesBundled = "bundled"

// OpenTemplates opens a template source: TemplatesBundled or empty for
// the bundled assets, otherwise a zip file or a directory.
func OpenTemplates(src string) (storage.Source, error) {
	if src == "" || src == TemplatesBundled {
		return Bundled(), nil
	}
	s, err := storage.Open(src)
	if err != nil {
		return nil, errors.Wrap(err, "open templates")
	}
	return s, nil
}

type Options struct {
	Title string
	// Stylesheet is linked from every page; empty uses the bundled one.
	Stylesheet string
	// Locale is a BCP 47 tag for the pages' lang attribute.
	Locale string
	// Prefix is prepended to every page file name.
	Prefix string
	// BaseDir resolves relative package paths of scorm: references. When
	// set, packages must lie below it unless AllowOutsideBaseDir is true.
	BaseDir             string
	AllowOutsideBaseDir bool
}

type Exporter struct {
	// Templates holds the common assets copied into every package. Nil
	// means Bundled().
	Templates storage.Source
	Log       *logger.Logger
	Rand      *rand.Rand
	Progress  Progress
}

func NewExporter(log *logger.Logger) *Exporter {
	seed := uint64(time.Now().UnixNano())
	return &Exporter{Log: log, Rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Result describes a finished export.
type Result struct {
	ManifestID string
	Entries    []string
	Pages      int
	External   int
	// Issues found when validating the generated manifest against the
	// written entries. Empty for a sound package.
	Issues []cam.Issue
}

type page struct {
	name string
	body []byte
}

// build is the state of one export run.
type build struct {
	opts  Options
	log   *logger.Logger
	pages *pageBuilder

	manifest  *cam.Manifest
	org       *cam.Organization
	scos      []*cam.Resource
	externals []*cam.Resource
	html      []page
	ids       map[string]bool

	packages []*externalPackage
	byPath   map[string]*externalPackage
}

// ExportToPIF writes the package as a zip archive at path.
func (e *Exporter) ExportToPIF(ctx context.Context, questions []quiz.Question, opts Options, path string) (*Result, error) {
	return e.exportTo(ctx, questions, opts, path, false)
}

// ExportToContentPackage writes the package unzipped below dir.
func (e *Exporter) ExportToContentPackage(ctx context.Context, questions []quiz.Question, opts Options, dir string) (*Result, error) {
	return e.exportTo(ctx, questions, opts, dir, true)
}

func (e *Exporter) exportTo(ctx context.Context, questions []quiz.Question, opts Options, p string, dir bool) (*Result, error) {
	sink, err := storage.Create(p, dir)
	if err != nil {
		return nil, err
	}
	res, err := e.Export(ctx, questions, opts, sink)
	if cerr := sink.Close(); err == nil && cerr != nil {
		return nil, errors.Wrapf(cerr, "close %s", p)
	}
	return res, err
}

// Export writes a complete content package into sink: the manifest first,
// then one page per question, then the common assets, then the files of
// external packages grouped by package. Output already written is left in
// place when the export fails.
func (e *Exporter) Export(ctx context.Context, questions []quiz.Question, opts Options, sink storage.Sink) (*Result, error) {
	log := e.Log
	if log == nil {
		log = logger.Nop()
	}
	prog := e.Progress
	if prog == nil {
		prog = nopProgress{}
	}
	defer prog.Close()
	rnd := e.Rand
	if rnd == nil {
		rnd = NewExporter(log).Rand
	}
	tmpl := e.Templates
	if tmpl == nil {
		tmpl = Bundled()
	}
	prog.SetMaximum(len(questions) + 3)

	checkpoint := func() error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrCanceled, err)
		}
		if prog.IsCanceled() {
			return ErrCanceled
		}
		return nil
	}

	tag := pageLanguage(opts.Locale, log)
	b := &build{
		opts:   opts,
		log:    log,
		pages:  &pageBuilder{lang: tag, rnd: rnd},
		ids:    map[string]bool{},
		byPath: map[string]*externalPackage{},
	}
	b.manifest = &cam.Manifest{
		ID:        "MANIFEST-" + uuid.NewString(),
		Version:   "1.0",
		Metadata:  &cam.Metadata{Schema: "ADL SCORM", SchemaVersion: "1.2"},
		Resources: &cam.Resources{},
	}
	defer b.closePackages()

	b.org = &cam.Organization{ID: organizationID, Structure: cam.StructureHierarchical, Title: opts.Title}
	b.manifest.Organizations = &cam.Organizations{Default: organizationID, Items: []*cam.Organization{b.org}}
	for _, id := range []string{b.manifest.ID, organizationID, commonResourceID} {
		b.ids[id] = true
	}

	oids := AssignOIDs(len(questions))
	for _, o := range oids {
		b.ids["ITEM_"+o.Item] = true
		b.ids["RES_"+o.Resource] = true
	}

	stylesheet := opts.Stylesheet
	if stylesheet == "" {
		stylesheet = defaultStylesheet
	}
	for i, q := range questions {
		if err := checkpoint(); err != nil {
			return nil, err
		}
		title := itemTitle(q, i)
		prog.SetNote(title)
		typ, err := Classify(q)
		if err != nil {
			return nil, errors.Wrapf(err, "question %d (%s)", i+1, title)
		}
		item := &cam.Item{ID: "ITEM_" + oids[i].Item, Title: title, IsVisible: true}
		if typ == External {
			res, ref, err := b.external(q)
			if err != nil {
				return nil, errors.Wrapf(err, "question %d (%s)", i+1, title)
			}
			item.IdentifierRef = res.ID
			item.Parameters = ref.Parameters()
		} else {
			name := fmt.Sprintf("%s%s_%s_sco.html", opts.Prefix, oids[i].Resource, descriptiveURL(title))
			d, err := b.pages.build(typ, q, pageData{
				Lang:       tag.String(),
				Title:      title,
				Stylesheet: stylesheet,
				Common:     commonDir,
			})
			if err != nil {
				return nil, errors.Wrapf(err, "question %d (%s)", i+1, title)
			}
			body, err := renderPage(d)
			if err != nil {
				return nil, errors.Wrapf(err, "render question %d (%s)", i+1, title)
			}
			b.html = append(b.html, page{name: name, body: body})
			res := &cam.Resource{
				ID:           "RES_" + oids[i].Resource,
				Type:         cam.ResourceTypeWebContent,
				ScormType:    cam.ScormTypeSCO,
				Href:         name,
				Files:        []*cam.File{{Href: name}},
				Dependencies: []*cam.Dependency{{IdentifierRef: commonResourceID}},
			}
			b.scos = append(b.scos, res)
			item.IdentifierRef = res.ID
		}
		b.org.Items = append(b.org.Items, item)
		prog.SetProgress(i + 1)
	}

	templateNames, err := tmpl.Names()
	if err != nil {
		return nil, errors.Wrap(err, "list template resources")
	}
	common := &cam.Resource{ID: commonResourceID, Type: cam.ResourceTypeWebContent, ScormType: cam.ScormTypeAsset}
	for _, n := range templateNames {
		if n == cam.ManifestName {
			continue
		}
		common.Files = append(common.Files, &cam.File{Href: n})
	}
	b.manifest.Resources.Items = append(append(b.scos, common), b.externals...)
	cam.Link(b.manifest)

	written := cam.NewFileSet()
	result := &Result{ManifestID: b.manifest.ID, Pages: len(b.html), External: len(b.externals)}
	put := func(name string, body []byte) error {
		if err := sink.Put(name, bytes.NewReader(body)); err != nil {
			return errors.Wrapf(err, "write %s", name)
		}
		written.Add(name)
		result.Entries = append(result.Entries, name)
		return nil
	}

	if err := checkpoint(); err != nil {
		return nil, err
	}
	prog.SetNote(cam.ManifestName)
	var mbuf bytes.Buffer
	if err := cam.WriteManifest(&mbuf, b.manifest); err != nil {
		return nil, errors.Wrap(err, "encode manifest")
	}
	if err := put(cam.ManifestName, mbuf.Bytes()); err != nil {
		return nil, err
	}
	for _, p := range b.html {
		if err := put(p.name, p.body); err != nil {
			return nil, err
		}
	}
	prog.SetProgress(len(questions) + 1)

	if err := checkpoint(); err != nil {
		return nil, err
	}
	prog.SetNote("common resources")
	for _, n := range templateNames {
		if n == cam.ManifestName || written.Has(n) {
			continue
		}
		if err := storage.Copy(sink, tmpl, n, n); err != nil {
			return nil, errors.Wrap(err, "copy template resources")
		}
		written.Add(n)
		result.Entries = append(result.Entries, n)
	}
	prog.SetProgress(len(questions) + 2)

	for _, pkg := range b.packages {
		if err := checkpoint(); err != nil {
			return nil, err
		}
		prog.SetNote(pkg.path)
		for _, n := range pkg.files.Sorted() {
			if written.Has(n) {
				log.Warn("external file shadowed", "package", pkg.path, "file", n)
				continue
			}
			if err := storage.Copy(sink, pkg.src, n, n); err != nil {
				return nil, errors.Wrapf(err, "copy from external package %s", pkg.path)
			}
			written.Add(n)
			result.Entries = append(result.Entries, n)
		}
	}
	prog.SetProgress(len(questions) + 3)

	report := cam.Validate(b.manifest, written)
	result.Issues = report.Issues()
	for _, is := range result.Issues {
		log.Warn("generated package issue", "path", is.Path, "rule", is.Rule, "message", is.Message)
	}
	log.Info("export finished", "manifest", result.ManifestID, "pages", result.Pages, "entries", len(result.Entries))
	return result, nil
}

func (b *build) closePackages() {
	for _, pkg := range b.packages {
		if err := pkg.src.Close(); err != nil {
			b.log.Warn("close external package", "path", pkg.path, "error", err)
		}
	}
}

const maxTitleLen = 60

func itemTitle(q quiz.Question, i int) string {
	if t := strings.TrimSpace(q.Title); t != "" {
		return t
	}
	if t := q.PlainText(); t != "" {
		r := []rune(t)
		if len(r) > maxTitleLen {
			return strings.TrimSpace(string(r[:maxTitleLen])) + "..."
		}
		return t
	}
	return fmt.Sprintf("Question %d", i+1)
}

// pageLanguage parses the locale option, falling back to English.
func pageLanguage(locale string, log *logger.Logger) language.Tag {
	if locale == "" {
		return language.English
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		log.Warn("invalid locale, using en", "locale", locale, "error", err)
		return language.English
	}
	return tag
}
