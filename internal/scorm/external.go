package scorm

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-scorm/internal/cam"
	"github.com/mind-engage/mindengage-scorm/internal/quiz"
	"github.com/mind-engage/mindengage-scorm/internal/storage"
)

// externalPackage is a content package external questions point into.
// Resources are merged at most once however many questions use them.
type externalPackage struct {
	path     string
	src      storage.Source
	manifest *cam.Manifest
	exclude  map[*cam.Resource]bool
	merged   map[*cam.Resource]*cam.Resource
	files    cam.FileSet
}

func externalURI(q quiz.Question) string {
	for _, l := range q.AnswerLists() {
		if l.Type == quiz.External && len(l.Answers) > 0 {
			return l.Answers[0].URI
		}
	}
	return ""
}

// external merges the resource an external question references, with its
// dependency closure, and returns the merged copy of the resource.
func (b *build) external(q quiz.Question) (*cam.Resource, Ref, error) {
	ref, err := ParseRef(externalURI(q))
	if err != nil {
		return nil, ref, err
	}
	pkg, err := b.openPackage(ref.Package)
	if err != nil {
		return nil, ref, err
	}
	res := pkg.manifest.ResourceByID(ref.ResourceID)
	if res == nil {
		return nil, ref, errors.Errorf("resource %q not found in %s", ref.ResourceID, pkg.path)
	}
	closure := res.DependencyClosure()
	for _, r := range closure {
		pkg.files.Add(r.FullHref())
	}
	res.AddReferencedFileNamesTo(pkg.files, pkg.exclude)
	b.merge(pkg, closure)
	return pkg.merged[res], ref, nil
}

func (b *build) openPackage(p string) (*externalPackage, error) {
	key, err := b.packagePath(p)
	if err != nil {
		return nil, err
	}
	if pkg, ok := b.byPath[key]; ok {
		return pkg, nil
	}
	src, err := storage.Open(key)
	if err != nil {
		return nil, errors.Wrapf(err, "external package %s", p)
	}
	raw, err := storage.ReadAll(src, cam.ManifestName)
	if err != nil {
		src.Close()
		return nil, errors.Wrapf(err, "external package %s", p)
	}
	m, err := cam.Parse(bytes.NewReader(raw))
	if err != nil {
		src.Close()
		return nil, errors.Wrapf(err, "parse manifest of %s", p)
	}
	pkg := &externalPackage{
		path:     p,
		src:      src,
		manifest: m,
		exclude:  map[*cam.Resource]bool{},
		merged:   map[*cam.Resource]*cam.Resource{},
		files:    cam.NewFileSet(),
	}
	b.packages = append(b.packages, pkg)
	b.byPath[key] = pkg
	b.log.Debug("external package loaded", "path", key, "manifest", m.ID)
	return pkg, nil
}

// merge copies the resources of a closure into the export manifest. Copies
// carry consolidated hrefs, so they need no xml:base, and identifiers that
// clash with ones already in use get a numeric suffix.
func (b *build) merge(pkg *externalPackage, closure []*cam.Resource) {
	var fresh []*cam.Resource
	for _, r := range closure {
		if _, ok := pkg.merged[r]; ok {
			continue
		}
		pkg.merged[r] = &cam.Resource{ID: b.reserve(r.ID), Type: r.Type, ScormType: r.ScormType}
		fresh = append(fresh, r)
	}
	for _, r := range fresh {
		cp := pkg.merged[r]
		if h := r.FullHref(); h != "" {
			cp.Href = h + hrefSuffix(r.Href)
		}
		for _, name := range flattenFiles(r.Files) {
			cp.Files = append(cp.Files, &cam.File{Href: name})
		}
		for _, d := range r.Dependencies {
			dep := pkg.manifest.ResourceByID(d.IdentifierRef)
			if c, ok := pkg.merged[dep]; ok && dep != nil {
				cp.Dependencies = append(cp.Dependencies, &cam.Dependency{IdentifierRef: c.ID})
			}
		}
		b.externals = append(b.externals, cp)
	}
}

func flattenFiles(files []*cam.File) []string {
	var out []string
	for _, f := range files {
		if h := f.FullHref(); h != "" {
			out = append(out, h)
		}
		out = append(out, flattenFiles(f.Files)...)
	}
	return out
}

// hrefSuffix is the query and fragment part of an href.
func hrefSuffix(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		return href[i:]
	}
	return ""
}

func (b *build) reserve(id string) string {
	if id == "" {
		id = "RES"
	}
	cand := id
	for n := 2; b.ids[cand]; n++ {
		cand = fmt.Sprintf("%s_%d", id, n)
	}
	b.ids[cand] = true
	return cand
}

// packagePath resolves p against BaseDir. Paths that are absolute or climb
// out of BaseDir are refused before anything is opened.
func (b *build) packagePath(p string) (string, error) {
	base := b.opts.BaseDir
	if base == "" {
		return filepath.Clean(p), nil
	}
	if filepath.IsAbs(p) {
		if b.opts.AllowOutsideBaseDir {
			return filepath.Clean(p), nil
		}
		return "", fmt.Errorf("%w: %s", ErrOutsideBaseDir, p)
	}
	key := filepath.Join(base, p)
	if b.opts.AllowOutsideBaseDir {
		return key, nil
	}
	rel, err := filepath.Rel(filepath.Clean(base), key)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideBaseDir, p)
	}
	return key, nil
}
