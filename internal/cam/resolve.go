package cam

import "sort"

// FileSet is a set of package-relative file names.
type FileSet map[string]struct{}

func NewFileSet(names ...string) FileSet {
	s := make(FileSet, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

func (s FileSet) Add(name string) {
	if name != "" {
		s[name] = struct{}{}
	}
}

func (s FileSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s FileSet) Remove(name string) { delete(s, name) }

func (s FileSet) Clone() FileSet {
	out := make(FileSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Sorted returns the names in lexical order.
func (s FileSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PreorderItems lists the organization's items depth first, parents before
// children, in document order.
func (o *Organization) PreorderItems() []*Item {
	var out []*Item
	var visit func(items []*Item)
	visit = func(items []*Item) {
		for _, it := range items {
			out = append(out, it)
			visit(it.Items)
		}
	}
	visit(o.Items)
	return out
}

// ReferencedResources returns the resources the organization's items point
// at directly, in first-reference order. Dependencies are not followed.
func (o *Organization) ReferencedResources() []*Resource {
	m := o.Manifest()
	if m == nil || m.Resources == nil {
		return nil
	}
	seen := map[*Resource]bool{}
	var out []*Resource
	for _, it := range o.PreorderItems() {
		if it.IdentifierRef == "" {
			continue
		}
		r := m.Resources.ByID(it.IdentifierRef)
		if r == nil || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// DistinctColumnTitles returns the titles of the second-level items of a
// layered organization in first-seen order. Each top-level item is a row and
// each of its children fills the column carrying its title.
func (o *Organization) DistinctColumnTitles() []string {
	seen := map[string]bool{}
	var out []string
	for _, row := range o.Items {
		for _, cell := range row.Items {
			if seen[cell.Title] {
				continue
			}
			seen[cell.Title] = true
			out = append(out, cell.Title)
		}
	}
	return out
}

// AddReferencedFileNamesTo adds the consolidated hrefs of the resource's
// files, nested files included, to names and then does the same for every
// resource it depends on. Resources already in exclude are skipped, which
// also stops dependency cycles.
func (r *Resource) AddReferencedFileNamesTo(names FileSet, exclude map[*Resource]bool) {
	if exclude[r] {
		return
	}
	exclude[r] = true
	var addFiles func(files []*File)
	addFiles = func(files []*File) {
		for _, f := range files {
			names.Add(f.FullHref())
			addFiles(f.Files)
		}
	}
	addFiles(r.Files)

	m := r.Manifest()
	if m == nil {
		return
	}
	for _, d := range r.Dependencies {
		if dep := m.ResourceByID(d.IdentifierRef); dep != nil {
			dep.AddReferencedFileNamesTo(names, exclude)
		}
	}
}

// DependencyClosure returns the resource followed by every resource it
// transitively depends on, each once, in discovery order.
func (r *Resource) DependencyClosure() []*Resource {
	seen := map[*Resource]bool{}
	var out []*Resource
	var visit func(*Resource)
	visit = func(res *Resource) {
		if seen[res] {
			return
		}
		seen[res] = true
		out = append(out, res)
		m := res.Manifest()
		if m == nil {
			return
		}
		for _, d := range res.Dependencies {
			if dep := m.ResourceByID(d.IdentifierRef); dep != nil {
				visit(dep)
			}
		}
	}
	visit(r)
	return out
}
