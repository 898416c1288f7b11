package cam

import "fmt"

// Link sets parent pointers and paths on a tree assembled in code, using the
// same path scheme Parse produces. It must be called before such a tree is
// validated or its hrefs are resolved.
func Link(m *Manifest) { linkManifest(m, nil, "manifest") }

func linkManifest(m *Manifest, parent Node, p string) {
	m.base.path, m.base.parent = p, parent
	if m.Metadata != nil {
		linkMetadata(m.Metadata, m, p+"/metadata")
	}
	if o := m.Organizations; o != nil {
		o.base.path, o.base.parent = p+"/organizations", m
		for i, org := range o.Items {
			linkOrganization(org, o, fmt.Sprintf("%s/organization[%d]", o.path, i))
		}
	}
	if rs := m.Resources; rs != nil {
		rs.base.path, rs.base.parent = p+"/resources", m
		for i, r := range rs.Items {
			linkResource(r, rs, fmt.Sprintf("%s/resource[%d]", rs.path, i))
		}
	}
	for i, s := range m.SubManifests {
		linkManifest(s, m, fmt.Sprintf("%s/manifest[%d]", p, i))
	}
}

func linkMetadata(md *Metadata, parent Node, p string) {
	md.base.path, md.base.parent = p, parent
}

func linkOrganization(o *Organization, parent Node, p string) {
	o.base.path, o.base.parent = p, parent
	if o.Metadata != nil {
		linkMetadata(o.Metadata, o, p+"/metadata")
	}
	for i, it := range o.Items {
		linkItem(it, o, fmt.Sprintf("%s/item[%d]", p, i))
	}
}

func linkItem(it *Item, parent Node, p string) {
	it.base.path, it.base.parent = p, parent
	if it.Metadata != nil {
		linkMetadata(it.Metadata, it, p+"/metadata")
	}
	for i, c := range it.Items {
		linkItem(c, it, fmt.Sprintf("%s/item[%d]", p, i))
	}
}

func linkResource(r *Resource, parent Node, p string) {
	r.base.path, r.base.parent = p, parent
	if r.Metadata != nil {
		linkMetadata(r.Metadata, r, p+"/metadata")
	}
	for i, f := range r.Files {
		linkFile(f, r, fmt.Sprintf("%s/file[%d]", p, i))
	}
	for i, d := range r.Dependencies {
		d.base.path, d.base.parent = fmt.Sprintf("%s/dependency[%d]", p, i), r
	}
}

func linkFile(f *File, parent Node, p string) {
	f.base.path, f.base.parent = p, parent
	if f.Metadata != nil {
		linkMetadata(f.Metadata, f, p+"/metadata")
	}
	for i, c := range f.Files {
		linkFile(c, f, fmt.Sprintf("%s/file[%d]", p, i))
	}
}
