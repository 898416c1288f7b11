package cam

import (
	"encoding/xml"
	"io"
)

const schemaLocation = NamespaceIMSCP112 + " imscp_rootv1p1p2.xsd " +
	"http://www.imsglobal.org/xsd/imsmd_rootv1p2p1 imsmd_rootv1p2p1.xsd " +
	NamespaceADLCP12 + " adlcp_rootv1p2.xsd"

// --- XML model used for output only (IMS CP 1.1.2 + ADL SCORM 1.2) ---

type xmlManifest struct {
	XMLName        xml.Name         `xml:"manifest"`
	Identifier     string           `xml:"identifier,attr"`
	Version        string           `xml:"version,attr,omitempty"`
	Xmlns          string           `xml:"xmlns,attr,omitempty"`
	XmlnsADLCP     string           `xml:"xmlns:adlcp,attr,omitempty"`
	XmlnsXSI       string           `xml:"xmlns:xsi,attr,omitempty"`
	SchemaLocation string           `xml:"xsi:schemaLocation,attr,omitempty"`
	Base           string           `xml:"xml:base,attr,omitempty"`
	Metadata       *xmlMetadata     `xml:"metadata,omitempty"`
	Organizations  xmlOrganizations `xml:"organizations"`
	Resources      xmlResources     `xml:"resources"`
	Manifests      []xmlManifest    `xml:"manifest,omitempty"`
}

type xmlMetadata struct {
	Schema        string `xml:"schema,omitempty"`
	SchemaVersion string `xml:"schemaversion,omitempty"`
	Location      string `xml:"adlcp:location,omitempty"`
}

type xmlOrganizations struct {
	Default       string            `xml:"default,attr,omitempty"`
	Organizations []xmlOrganization `xml:"organization"`
}

type xmlOrganization struct {
	Identifier string       `xml:"identifier,attr"`
	Structure  string       `xml:"structure,attr,omitempty"`
	Title      string       `xml:"title,omitempty"`
	Items      []xmlItem    `xml:"item"`
	Metadata   *xmlMetadata `xml:"metadata,omitempty"`
}

type xmlItem struct {
	Identifier      string       `xml:"identifier,attr"`
	IdentifierRef   string       `xml:"identifierref,attr,omitempty"`
	IsVisible       string       `xml:"isvisible,attr,omitempty"`
	Parameters      string       `xml:"parameters,attr,omitempty"`
	Title           string       `xml:"title,omitempty"`
	Items           []xmlItem    `xml:"item"`
	Metadata        *xmlMetadata `xml:"metadata,omitempty"`
	Prerequisites   string       `xml:"adlcp:prerequisites,omitempty"`
	MaxTimeAllowed  string       `xml:"adlcp:maxtimeallowed,omitempty"`
	TimeLimitAction string       `xml:"adlcp:timelimitaction,omitempty"`
	DataFromLMS     string       `xml:"adlcp:datafromlms,omitempty"`
	MasteryScore    string       `xml:"adlcp:masteryscore,omitempty"`
}

type xmlResources struct {
	Base      string        `xml:"xml:base,attr,omitempty"`
	Resources []xmlResource `xml:"resource"`
}

type xmlResource struct {
	Identifier   string          `xml:"identifier,attr"`
	Type         string          `xml:"type,attr"`
	ScormType    string          `xml:"adlcp:scormtype,attr"`
	Href         string          `xml:"href,attr,omitempty"`
	Base         string          `xml:"xml:base,attr,omitempty"`
	Metadata     *xmlMetadata    `xml:"metadata,omitempty"`
	Files        []xmlFile       `xml:"file"`
	Dependencies []xmlDependency `xml:"dependency"`
}

type xmlFile struct {
	Href     string       `xml:"href,attr"`
	Metadata *xmlMetadata `xml:"metadata,omitempty"`
	Files    []xmlFile    `xml:"file"`
}

type xmlDependency struct {
	IdentifierRef string `xml:"identifierref,attr"`
}

// WriteManifest serializes m as an IMS CP 1.1.2 / ADL SCORM 1.2 document.
func WriteManifest(w io.Writer, m *Manifest) error {
	out := toXMLManifest(m)
	out.Xmlns = NamespaceIMSCP112
	out.XmlnsADLCP = NamespaceADLCP12
	out.XmlnsXSI = "http://www.w3.org/2001/XMLSchema-instance"
	out.SchemaLocation = schemaLocation
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func toXMLManifest(m *Manifest) xmlManifest {
	out := xmlManifest{
		Identifier: m.ID,
		Version:    m.Version,
		Base:       m.XMLBase,
		Metadata:   toXMLMetadata(m.Metadata),
	}
	if m.Organizations != nil {
		out.Organizations.Default = m.Organizations.Default
		for _, o := range m.Organizations.Items {
			out.Organizations.Organizations = append(out.Organizations.Organizations, xmlOrganization{
				Identifier: o.ID,
				Structure:  o.Structure,
				Title:      o.Title,
				Items:      toXMLItems(o.Items),
				Metadata:   toXMLMetadata(o.Metadata),
			})
		}
	}
	if m.Resources != nil {
		out.Resources.Base = m.Resources.XMLBase
		for _, r := range m.Resources.Items {
			xr := xmlResource{
				Identifier: r.ID,
				Type:       r.Type,
				ScormType:  r.ScormType,
				Href:       r.Href,
				Base:       r.XMLBase,
				Metadata:   toXMLMetadata(r.Metadata),
				Files:      toXMLFiles(r.Files),
			}
			for _, d := range r.Dependencies {
				xr.Dependencies = append(xr.Dependencies, xmlDependency{IdentifierRef: d.IdentifierRef})
			}
			out.Resources.Resources = append(out.Resources.Resources, xr)
		}
	}
	for _, s := range m.SubManifests {
		out.Manifests = append(out.Manifests, toXMLManifest(s))
	}
	return out
}

func toXMLMetadata(md *Metadata) *xmlMetadata {
	if md == nil {
		return nil
	}
	return &xmlMetadata{Schema: md.Schema, SchemaVersion: md.SchemaVersion, Location: md.Location}
}

func toXMLItems(items []*Item) []xmlItem {
	out := make([]xmlItem, 0, len(items))
	for _, it := range items {
		xi := xmlItem{
			Identifier:      it.ID,
			IdentifierRef:   it.IdentifierRef,
			Parameters:      it.Parameters,
			Title:           it.Title,
			Items:           toXMLItems(it.Items),
			Metadata:        toXMLMetadata(it.Metadata),
			Prerequisites:   it.Prerequisites,
			MaxTimeAllowed:  it.MaxTimeAllowed,
			TimeLimitAction: it.TimeLimitAction,
			DataFromLMS:     it.DataFromLMS,
			MasteryScore:    it.MasteryScore,
		}
		if !it.IsVisible {
			xi.IsVisible = "false"
		}
		out = append(out, xi)
	}
	return out
}

func toXMLFiles(files []*File) []xmlFile {
	out := make([]xmlFile, 0, len(files))
	for _, f := range files {
		out = append(out, xmlFile{Href: f.Href, Metadata: toXMLMetadata(f.Metadata), Files: toXMLFiles(f.Files)})
	}
	return out
}
