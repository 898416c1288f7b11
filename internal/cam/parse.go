package cam

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Namespaces understood by the parser.
const (
	NamespaceIMSCP112 = "http://www.imsproject.org/xsd/imscp_rootv1p1p2"
	NamespaceIMSCP114 = "http://www.imsglobal.org/xsd/imscp_v1p1"
	NamespaceADLCP12  = "http://www.adlnet.org/xsd/adlcp_rootv1p2"
	NamespaceADLCP13  = "http://www.adlnet.org/xsd/adlcp_v1p3"
	NamespaceXML      = "http://www.w3.org/XML/1998/namespace"
)

// ManifestName is the entry name of the manifest inside a package.
const ManifestName = "imsmanifest.xml"

// FormatError reports an element that does not match the content
// packaging schema.
type FormatError struct {
	Path string
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return "imsmanifest: " + e.Msg
	}
	return fmt.Sprintf("imsmanifest: %s: %s", e.Path, e.Msg)
}

// element is a namespace-resolved DOM node built from the token stream.
type element struct {
	name     xml.Name
	attrs    []xml.Attr
	children []*element
	text     strings.Builder
}

func readDOM(r io.Reader) (*element, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	var stack []*element
	var root *element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FormatError{Msg: err.Error()}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			e := &element{name: t.Name, attrs: t.Copy().Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, &FormatError{Msg: "multiple root elements"}
				}
				root = e
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, e)
			}
			stack = append(stack, e)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, &FormatError{Msg: "empty document"}
	}
	return root, nil
}

func isCP(space string) bool {
	return space == NamespaceIMSCP112 || space == NamespaceIMSCP114
}

func isADL(space string) bool {
	return space == NamespaceADLCP12 || space == NamespaceADLCP13 || space == "adlcp"
}

func (e *element) is(local string) bool { return isCP(e.name.Space) && e.name.Local == local }

func (e *element) attr(local string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func (e *element) adlAttr(locals ...string) (string, bool) {
	for _, a := range e.attrs {
		if !isADL(a.Name.Space) {
			continue
		}
		for _, l := range locals {
			if a.Name.Local == l {
				return a.Value, true
			}
		}
	}
	return "", false
}

func (e *element) xmlBase() string {
	for _, a := range e.attrs {
		if (a.Name.Space == NamespaceXML || a.Name.Space == "xml") && a.Name.Local == "base" {
			return a.Value
		}
	}
	return ""
}

func (e *element) trimmedText() string { return strings.TrimSpace(e.text.String()) }

func expect(e *element, local, path string) error {
	if e.is(local) {
		return nil
	}
	return &FormatError{
		Path: path,
		Msg:  fmt.Sprintf("expected {%s}%s, found {%s}%s", NamespaceIMSCP112, local, e.name.Space, e.name.Local),
	}
}

// Parse reads an imsmanifest.xml document into a typed tree. Unknown
// elements are skipped; unexpected attribute values are recorded as node
// warnings.
func Parse(r io.Reader) (*Manifest, error) {
	root, err := readDOM(r)
	if err != nil {
		return nil, err
	}
	return parseManifest(root, nil, "manifest")
}

func parseManifest(e *element, parent Node, p string) (*Manifest, error) {
	if err := expect(e, "manifest", p); err != nil {
		return nil, err
	}
	m := &Manifest{base: base{path: p, parent: parent}}
	m.ID, _ = e.attr("identifier")
	m.Version, _ = e.attr("version")
	m.XMLBase = e.xmlBase()
	if m.ID == "" {
		m.warnf("manifest has no identifier")
	}
	subs := 0
	for _, c := range e.children {
		switch {
		case c.is("metadata"):
			m.Metadata = parseMetadata(c, m, p+"/metadata")
		case c.is("organizations"):
			orgs, err := parseOrganizations(c, m, p+"/organizations")
			if err != nil {
				return nil, err
			}
			m.Organizations = orgs
		case c.is("resources"):
			res, err := parseResources(c, m, p+"/resources")
			if err != nil {
				return nil, err
			}
			m.Resources = res
		case c.is("manifest"):
			sub, err := parseManifest(c, m, fmt.Sprintf("%s/manifest[%d]", p, subs))
			if err != nil {
				return nil, err
			}
			subs++
			m.SubManifests = append(m.SubManifests, sub)
		}
	}
	if m.Organizations == nil {
		return nil, &FormatError{Path: p, Msg: "missing organizations element"}
	}
	if m.Resources == nil {
		return nil, &FormatError{Path: p, Msg: "missing resources element"}
	}
	return m, nil
}

func parseMetadata(e *element, parent Node, p string) *Metadata {
	md := &Metadata{base: base{path: p, parent: parent}}
	for _, c := range e.children {
		switch {
		case c.is("schema"):
			md.Schema = c.trimmedText()
		case c.is("schemaversion"):
			md.SchemaVersion = c.trimmedText()
		case isADL(c.name.Space) && c.name.Local == "location":
			md.Location = c.trimmedText()
		}
	}
	return md
}

func parseOrganizations(e *element, parent Node, p string) (*Organizations, error) {
	if err := expect(e, "organizations", p); err != nil {
		return nil, err
	}
	o := &Organizations{base: base{path: p, parent: parent}}
	o.Default, _ = e.attr("default")
	for _, c := range e.children {
		if !c.is("organization") {
			continue
		}
		org, err := parseOrganization(c, o, fmt.Sprintf("%s/organization[%d]", p, len(o.Items)))
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, org)
	}
	return o, nil
}

func parseOrganization(e *element, parent Node, p string) (*Organization, error) {
	if err := expect(e, "organization", p); err != nil {
		return nil, err
	}
	o := &Organization{base: base{path: p, parent: parent}}
	o.ID, _ = e.attr("identifier")
	if o.ID == "" {
		o.warnf("organization has no identifier")
	}
	o.Structure = StructureHierarchical
	if s, ok := e.attr("structure"); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case StructureHierarchical:
		case StructureLayered:
			o.Structure = StructureLayered
		default:
			o.warnf("unknown structure %q, using %q", s, StructureHierarchical)
		}
	}
	for _, c := range e.children {
		switch {
		case c.is("title"):
			o.Title = c.trimmedText()
		case c.is("metadata"):
			o.Metadata = parseMetadata(c, o, p+"/metadata")
		case c.is("item"):
			it, err := parseItem(c, o, fmt.Sprintf("%s/item[%d]", p, len(o.Items)))
			if err != nil {
				return nil, err
			}
			o.Items = append(o.Items, it)
		}
	}
	return o, nil
}

func parseItem(e *element, parent Node, p string) (*Item, error) {
	if err := expect(e, "item", p); err != nil {
		return nil, err
	}
	it := &Item{base: base{path: p, parent: parent}, IsVisible: true}
	it.ID, _ = e.attr("identifier")
	if it.ID == "" {
		it.warnf("item has no identifier")
	}
	it.IdentifierRef, _ = e.attr("identifierref")
	it.Parameters, _ = e.attr("parameters")
	if v, ok := e.attr("isvisible"); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1":
		case "false", "0":
			it.IsVisible = false
		default:
			it.warnf("invalid isvisible value %q", v)
		}
	}
	for _, c := range e.children {
		switch {
		case c.is("title"):
			it.Title = c.trimmedText()
		case c.is("metadata"):
			it.Metadata = parseMetadata(c, it, p+"/metadata")
		case c.is("item"):
			child, err := parseItem(c, it, fmt.Sprintf("%s/item[%d]", p, len(it.Items)))
			if err != nil {
				return nil, err
			}
			it.Items = append(it.Items, child)
		case isADL(c.name.Space):
			switch strings.ToLower(c.name.Local) {
			case "prerequisites":
				it.Prerequisites = c.trimmedText()
			case "maxtimeallowed":
				it.MaxTimeAllowed = c.trimmedText()
			case "timelimitaction":
				it.TimeLimitAction = c.trimmedText()
			case "datafromlms":
				it.DataFromLMS = c.trimmedText()
			case "masteryscore":
				it.MasteryScore = c.trimmedText()
			}
		}
	}
	return it, nil
}

func parseResources(e *element, parent Node, p string) (*Resources, error) {
	if err := expect(e, "resources", p); err != nil {
		return nil, err
	}
	rs := &Resources{base: base{path: p, parent: parent}, XMLBase: e.xmlBase()}
	for _, c := range e.children {
		if !c.is("resource") {
			continue
		}
		r, err := parseResource(c, rs, fmt.Sprintf("%s/resource[%d]", p, len(rs.Items)))
		if err != nil {
			return nil, err
		}
		rs.Items = append(rs.Items, r)
	}
	return rs, nil
}

func parseResource(e *element, parent Node, p string) (*Resource, error) {
	if err := expect(e, "resource", p); err != nil {
		return nil, err
	}
	r := &Resource{base: base{path: p, parent: parent}, XMLBase: e.xmlBase()}
	r.ID, _ = e.attr("identifier")
	if r.ID == "" {
		r.warnf("resource has no identifier")
	}
	r.Href, _ = e.attr("href")
	r.Type, _ = e.attr("type")
	if r.Type != ResourceTypeWebContent {
		r.warnf("unsupported resource type %q", r.Type)
	}
	st, ok := e.adlAttr("scormtype", "scormType")
	switch strings.ToLower(strings.TrimSpace(st)) {
	case ScormTypeAsset:
		r.ScormType = ScormTypeAsset
	case ScormTypeSCO:
		r.ScormType = ScormTypeSCO
	default:
		r.ScormType = ScormTypeAsset
		if ok {
			r.warnf("invalid adlcp:scormtype %q, using %q", st, ScormTypeAsset)
		} else {
			r.warnf("missing adlcp:scormtype, using %q", ScormTypeAsset)
		}
	}
	for _, c := range e.children {
		switch {
		case c.is("metadata"):
			r.Metadata = parseMetadata(c, r, p+"/metadata")
		case c.is("file"):
			f, err := parseFile(c, r, fmt.Sprintf("%s/file[%d]", p, len(r.Files)))
			if err != nil {
				return nil, err
			}
			r.Files = append(r.Files, f)
		case c.is("dependency"):
			d := &Dependency{base: base{path: fmt.Sprintf("%s/dependency[%d]", p, len(r.Dependencies)), parent: r}}
			d.IdentifierRef, _ = c.attr("identifierref")
			if d.IdentifierRef == "" {
				d.warnf("dependency has no identifierref")
			}
			r.Dependencies = append(r.Dependencies, d)
		}
	}
	return r, nil
}

func parseFile(e *element, parent Node, p string) (*File, error) {
	if err := expect(e, "file", p); err != nil {
		return nil, err
	}
	f := &File{base: base{path: p, parent: parent}}
	f.Href, _ = e.attr("href")
	if f.Href == "" {
		f.warnf("file has no href")
	}
	for _, c := range e.children {
		switch {
		case c.is("metadata"):
			f.Metadata = parseMetadata(c, f, p+"/metadata")
		case c.is("file"):
			child, err := parseFile(c, f, fmt.Sprintf("%s/file[%d]", p, len(f.Files)))
			if err != nil {
				return nil, err
			}
			f.Files = append(f.Files, child)
		}
	}
	return f, nil
}
