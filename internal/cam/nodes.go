// Package cam models the SCORM Content Aggregation Model: the typed tree
// behind an imsmanifest.xml, its validation and its resource closure.
package cam

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Kind names the manifest element a node was parsed from.
type Kind int

const (
	KindManifest Kind = iota
	KindMetadata
	KindOrganizations
	KindOrganization
	KindItem
	KindResources
	KindResource
	KindFile
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindManifest:
		return "manifest"
	case KindMetadata:
		return "metadata"
	case KindOrganizations:
		return "organizations"
	case KindOrganization:
		return "organization"
	case KindItem:
		return "item"
	case KindResources:
		return "resources"
	case KindResource:
		return "resource"
	case KindFile:
		return "file"
	case KindDependency:
		return "dependency"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Node is one element of a parsed manifest. The set of implementations is
// closed: *Manifest, *Metadata, *Organizations, *Organization, *Item,
// *Resources, *Resource, *File and *Dependency.
type Node interface {
	Kind() Kind
	Identifier() string
	// Path locates the node inside its document, e.g.
	// "manifest/organizations/organization[0]/item[2]".
	Path() string
	Parent() Node
	Children() []Node
	// Warnings are non-fatal anomalies noticed while parsing.
	Warnings() []string
	camNode()
}

type base struct {
	path     string
	parent   Node
	warnings []string
}

func (b *base) Path() string       { return b.path }
func (b *base) Parent() Node       { return b.parent }
func (b *base) Warnings() []string { return b.warnings }
func (*base) camNode()             {}

func (b *base) warnf(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// Structure values of an organization.
const (
	StructureHierarchical = "hierarchical"
	StructureLayered      = "layered"
)

// SCORM types of a resource.
const (
	ScormTypeAsset = "asset"
	ScormTypeSCO   = "sco"
)

// ResourceTypeWebContent is the only resource type SCORM content uses.
const ResourceTypeWebContent = "webcontent"

type Manifest struct {
	base
	ID            string
	Version       string
	XMLBase       string
	Metadata      *Metadata
	Organizations *Organizations
	Resources     *Resources
	SubManifests  []*Manifest
}

func (m *Manifest) Kind() Kind         { return KindManifest }
func (m *Manifest) Identifier() string { return m.ID }
func (m *Manifest) Children() []Node {
	var out []Node
	if m.Metadata != nil {
		out = append(out, m.Metadata)
	}
	if m.Organizations != nil {
		out = append(out, m.Organizations)
	}
	if m.Resources != nil {
		out = append(out, m.Resources)
	}
	for _, s := range m.SubManifests {
		out = append(out, s)
	}
	return out
}

// Root returns the document root the manifest belongs to.
func (m *Manifest) Root() *Manifest {
	if r, ok := Root(m).(*Manifest); ok {
		return r
	}
	return m
}

// ResourceByID looks a resource up anywhere in the document.
func (m *Manifest) ResourceByID(id string) *Resource {
	if id == "" {
		return nil
	}
	var found *Resource
	Walk(m.Root(), func(n Node) {
		if r, ok := n.(*Resource); ok && found == nil && r.ID == id {
			found = r
		}
	})
	return found
}

// Metadata carries the schema declaration and an optional external
// metadata file reference (adlcp:location).
type Metadata struct {
	base
	Schema        string
	SchemaVersion string
	Location      string
}

func (m *Metadata) Kind() Kind         { return KindMetadata }
func (m *Metadata) Identifier() string { return "" }
func (m *Metadata) Children() []Node   { return nil }

// LocationHref is the location resolved against the enclosing xml:base chain.
func (m *Metadata) LocationHref() string {
	if m.Location == "" {
		return ""
	}
	return consolidate(m, m.Location)
}

type Organizations struct {
	base
	Default string
	Items   []*Organization
}

func (o *Organizations) Kind() Kind         { return KindOrganizations }
func (o *Organizations) Identifier() string { return "" }
func (o *Organizations) Children() []Node {
	out := make([]Node, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, it)
	}
	return out
}

// ByID returns the direct child organization with the identifier.
func (o *Organizations) ByID(id string) *Organization {
	for _, it := range o.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// DefaultOrganization resolves the default attribute, falling back to the
// first organization when the attribute is empty.
func (o *Organizations) DefaultOrganization() *Organization {
	if o.Default != "" {
		return o.ByID(o.Default)
	}
	if len(o.Items) > 0 {
		return o.Items[0]
	}
	return nil
}

type Organization struct {
	base
	ID        string
	Structure string
	Title     string
	Metadata  *Metadata
	Items     []*Item
}

func (o *Organization) Kind() Kind         { return KindOrganization }
func (o *Organization) Identifier() string { return o.ID }
func (o *Organization) Children() []Node {
	var out []Node
	if o.Metadata != nil {
		out = append(out, o.Metadata)
	}
	for _, it := range o.Items {
		out = append(out, it)
	}
	return out
}

// Manifest returns the manifest owning the organization.
func (o *Organization) Manifest() *Manifest { return owningManifest(o) }

type Item struct {
	base
	ID            string
	IdentifierRef string
	IsVisible     bool
	Parameters    string
	Title         string
	Metadata      *Metadata
	Items         []*Item

	Prerequisites   string
	MaxTimeAllowed  string
	TimeLimitAction string
	DataFromLMS     string
	MasteryScore    string
}

func (i *Item) Kind() Kind         { return KindItem }
func (i *Item) Identifier() string { return i.ID }
func (i *Item) Children() []Node {
	var out []Node
	if i.Metadata != nil {
		out = append(out, i.Metadata)
	}
	for _, it := range i.Items {
		out = append(out, it)
	}
	return out
}

type Resources struct {
	base
	XMLBase string
	Items   []*Resource
}

func (r *Resources) Kind() Kind         { return KindResources }
func (r *Resources) Identifier() string { return "" }
func (r *Resources) Children() []Node {
	out := make([]Node, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, it)
	}
	return out
}

// ByID returns the direct child resource with the identifier.
func (r *Resources) ByID(id string) *Resource {
	for _, it := range r.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

type Resource struct {
	base
	ID           string
	Type         string
	ScormType    string
	Href         string
	XMLBase      string
	Metadata     *Metadata
	Files        []*File
	Dependencies []*Dependency
}

func (r *Resource) Kind() Kind         { return KindResource }
func (r *Resource) Identifier() string { return r.ID }
func (r *Resource) Children() []Node {
	var out []Node
	if r.Metadata != nil {
		out = append(out, r.Metadata)
	}
	for _, f := range r.Files {
		out = append(out, f)
	}
	for _, d := range r.Dependencies {
		out = append(out, d)
	}
	return out
}

// FullHref is the launch href resolved against xml:base, without its query
// or fragment. Empty when the resource has no href.
func (r *Resource) FullHref() string {
	if r.Href == "" {
		return ""
	}
	h := r.Href
	if i := strings.IndexAny(h, "?#"); i >= 0 {
		h = h[:i]
	}
	return consolidate(r, h)
}

// Manifest returns the manifest owning the resource.
func (r *Resource) Manifest() *Manifest { return owningManifest(r) }

type File struct {
	base
	Href     string
	Metadata *Metadata
	Files    []*File
}

func (f *File) Kind() Kind         { return KindFile }
func (f *File) Identifier() string { return "" }
func (f *File) Children() []Node {
	var out []Node
	if f.Metadata != nil {
		out = append(out, f.Metadata)
	}
	for _, c := range f.Files {
		out = append(out, c)
	}
	return out
}

// FullHref is the href resolved against the enclosing xml:base chain.
func (f *File) FullHref() string { return consolidate(f, f.Href) }

type Dependency struct {
	base
	IdentifierRef string
}

func (d *Dependency) Kind() Kind         { return KindDependency }
func (d *Dependency) Identifier() string { return "" }
func (d *Dependency) Children() []Node   { return nil }

// Walk visits n and all of its descendants in document order.
func Walk(n Node, fn func(Node)) {
	fn(n)
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// Root follows parent links up to the document root.
func Root(n Node) Node {
	for n.Parent() != nil {
		n = n.Parent()
	}
	return n
}

func owningManifest(n Node) *Manifest {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if m, ok := p.(*Manifest); ok {
			return m
		}
	}
	return nil
}

// consolidate joins every xml:base from the root down to n with href,
// URL-unescapes the result and cleans it into a package-relative name.
func consolidate(n Node, href string) string {
	var bases []string
	for p := n; p != nil; p = p.Parent() {
		var b string
		switch v := p.(type) {
		case *Manifest:
			b = v.XMLBase
		case *Resources:
			b = v.XMLBase
		case *Resource:
			b = v.XMLBase
		}
		if b != "" {
			bases = append(bases, b)
		}
	}
	parts := make([]string, 0, len(bases)+1)
	for i := len(bases) - 1; i >= 0; i-- {
		parts = append(parts, bases[i])
	}
	parts = append(parts, href)
	return CleanName(path.Join(parts...))
}

// CleanName normalizes a package entry name: URL escapes are decoded,
// backslashes become slashes and leading "./" or "/" are dropped.
func CleanName(name string) string {
	if u, err := url.PathUnescape(name); err == nil {
		name = u
	}
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean(name)
	name = strings.TrimPrefix(name, "/")
	if name == "." {
		return ""
	}
	return name
}
