package cam

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `<?xml version="1.0" encoding="UTF-8"?>
<manifest identifier="MANIFEST1" version="1.0"
    xmlns="http://www.imsproject.org/xsd/imscp_rootv1p1p2"
    xmlns:adlcp="http://www.adlnet.org/xsd/adlcp_rootv1p2">
  <metadata>
    <schema>ADL SCORM</schema>
    <schemaversion>1.2</schemaversion>
  </metadata>
  <organizations default="ORG1">
    <organization identifier="ORG1" structure="hierarchical">
      <title>Course</title>
      <item identifier="ITEM1" identifierref="RES1">
        <title>Intro</title>
        <adlcp:masteryscore>80</adlcp:masteryscore>
      </item>
      <item identifier="ITEM2">
        <title>Chapter</title>
        <item identifier="ITEM3" identifierref="RES2" isvisible="false" parameters="?a=1">
          <title>Lesson</title>
        </item>
      </item>
      <unknownElement foo="bar"/>
    </organization>
  </organizations>
  <resources xml:base="content/">
    <resource identifier="RES1" type="webcontent" adlcp:scormtype="sco" href="intro.html?x=1">
      <file href="intro.html"/>
      <dependency identifierref="COMMON"/>
    </resource>
    <resource identifier="RES2" type="webcontent" adlcp:scormtype="sco" href="lesson%201.html">
      <file href="lesson%201.html"/>
      <dependency identifierref="COMMON"/>
    </resource>
    <resource identifier="COMMON" type="webcontent" adlcp:scormtype="asset" xml:base="common/">
      <file href="api.js">
        <file href="api-extra.js"/>
      </file>
    </resource>
  </resources>
</manifest>`

func sampleFiles() FileSet {
	return NewFileSet(
		"imsmanifest.xml",
		"content/intro.html",
		"content/lesson 1.html",
		"content/common/api.js",
		"content/common/api-extra.js",
	)
}

func mustParse(t *testing.T, doc string) *Manifest {
	t.Helper()
	m, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return m
}

func TestParseBuildsTypedTree(t *testing.T) {
	m := mustParse(t, sampleManifest)

	assert.Equal(t, "MANIFEST1", m.ID)
	require.NotNil(t, m.Metadata)
	assert.Equal(t, "1.2", m.Metadata.SchemaVersion)
	assert.Equal(t, "ORG1", m.Organizations.Default)

	require.Len(t, m.Organizations.Items, 1)
	org := m.Organizations.Items[0]
	assert.Equal(t, "Course", org.Title)
	require.Len(t, org.Items, 2)
	assert.Equal(t, "80", org.Items[0].MasteryScore)

	lesson := org.Items[1].Items[0]
	assert.Equal(t, "ITEM3", lesson.ID)
	assert.False(t, lesson.IsVisible)
	assert.Equal(t, "?a=1", lesson.Parameters)
	assert.Equal(t, "manifest/organizations/organization[0]/item[1]/item[0]", lesson.Path())
	assert.Same(t, org.Items[1], lesson.Parent())

	require.Len(t, m.Resources.Items, 3)
	res := m.Resources.Items[0]
	assert.Equal(t, ScormTypeSCO, res.ScormType)
	assert.Equal(t, "content/intro.html", res.FullHref())
	assert.Equal(t, "content/lesson 1.html", m.Resources.Items[1].FullHref())
	assert.Equal(t, "content/common/api-extra.js", m.Resources.Items[2].Files[0].Files[0].FullHref())
	assert.Empty(t, res.Warnings())
}

func TestParseRejectsWrongNamespace(t *testing.T) {
	_, err := Parse(strings.NewReader(`<manifest identifier="M"><organizations/><resources/></manifest>`))
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "manifest", fe.Path)
}

func TestParseRecordsWarnings(t *testing.T) {
	m := mustParse(t, `<manifest identifier="M" xmlns="http://www.imsproject.org/xsd/imscp_rootv1p1p2">
  <organizations><organization identifier="O" structure="grid"/></organizations>
  <resources>
    <resource identifier="R" type="text/plain"/>
  </resources>
</manifest>`)

	org := m.Organizations.Items[0]
	assert.Equal(t, StructureHierarchical, org.Structure)
	assert.Len(t, org.Warnings(), 1)

	res := m.Resources.Items[0]
	assert.Equal(t, ScormTypeAsset, res.ScormType)
	assert.Len(t, res.Warnings(), 2)
}

func TestValidateCleanPackage(t *testing.T) {
	m := mustParse(t, sampleManifest)
	rep := Validate(m, sampleFiles())
	assert.True(t, rep.Valid(), "%+v", rep.Issues())
	assert.Len(t, rep.Nodes(), 17)
}

func TestValidateDuplicateIdentifiers(t *testing.T) {
	doc := strings.Replace(sampleManifest, `identifier="ITEM2"`, `identifier="RES1"`, 1)
	m := mustParse(t, doc)
	rep := Validate(m, sampleFiles())

	assert.False(t, rep.Valid())
	for _, p := range rep.Nodes() {
		var n Node
		Walk(m, func(c Node) {
			if c.Path() == p {
				n = c
			}
		})
		require.NotNil(t, n)
		dup := n.Identifier() == "RES1"
		assert.Equal(t, !dup, rep.IdentifierValid(p), p)
	}
}

func TestValidateReferences(t *testing.T) {
	doc := strings.NewReplacer(
		`identifierref="RES2"`, `identifierref="NOPE"`,
		`<dependency identifierref="COMMON"/>
    </resource>
    <resource identifier="COMMON"`, `<dependency identifierref="GONE"/>
    </resource>
    <resource identifier="COMMON"`,
		`default="ORG1"`, `default="ORGX"`,
	).Replace(sampleManifest)
	m := mustParse(t, doc)
	rep := Validate(m, sampleFiles())

	assert.False(t, rep.NodeValid("manifest/organizations"))
	assert.False(t, rep.NodeValid("manifest/organizations/organization[0]/item[1]/item[0]"))
	assert.False(t, rep.NodeValid("manifest/resources/resource[1]/dependency[0]"))
	assert.True(t, rep.NodeValid("manifest/resources/resource[0]/dependency[0]"))
}

func TestValidateFiles(t *testing.T) {
	m := mustParse(t, sampleManifest)
	files := sampleFiles()
	files.Remove("content/common/api-extra.js")
	files.Add("content/stray.css")
	files.Add("imscp_rootv1p1p2.xsd")

	rep := Validate(m, files)
	assert.False(t, rep.NodeValid("manifest/resources/resource[2]/file[0]/file[0]"))

	stray := rep.For("manifest/resources")
	require.Len(t, stray, 1)
	assert.Equal(t, RuleUnreferencedFile, stray[0].Rule)
	assert.Contains(t, stray[0].Message, "content/stray.css")
	assert.NotContains(t, stray[0].Message, ".xsd")
}

func TestValidateContinuesPastInvalidAncestors(t *testing.T) {
	doc := strings.Replace(sampleManifest, `identifier="ITEM2"`, `identifier="ITEM1"`, 1)
	doc = strings.Replace(doc, `identifierref="RES2"`, `identifierref="MISSING"`, 1)
	m := mustParse(t, doc)
	rep := Validate(m, sampleFiles())

	assert.False(t, rep.IdentifierValid("manifest/organizations/organization[0]/item[1]"))
	assert.False(t, rep.NodeValid("manifest/organizations/organization[0]/item[1]/item[0]"))
}

func TestAddReferencedFileNamesToHandlesCycles(t *testing.T) {
	m := mustParse(t, `<manifest identifier="M" xmlns="http://www.imsproject.org/xsd/imscp_rootv1p1p2"
    xmlns:adlcp="http://www.adlnet.org/xsd/adlcp_rootv1p2">
  <organizations/>
  <resources>
    <resource identifier="A" type="webcontent" adlcp:scormtype="sco" href="a.html">
      <file href="a.html"/>
      <file href="shared.js"/>
      <dependency identifierref="B"/>
    </resource>
    <resource identifier="B" type="webcontent" adlcp:scormtype="asset">
      <file href="b.css"/>
      <file href="shared.js"/>
      <dependency identifierref="A"/>
    </resource>
  </resources>
</manifest>`)

	a := m.Resources.ByID("A")
	names := NewFileSet()
	a.AddReferencedFileNamesTo(names, map[*Resource]bool{})
	assert.Equal(t, []string{"a.html", "b.css", "shared.js"}, names.Sorted())

	closure := a.DependencyClosure()
	require.Len(t, closure, 2)
	assert.Equal(t, "B", closure[1].ID)

	rep := Validate(m, NewFileSet("a.html", "b.css", "shared.js"))
	assert.True(t, rep.Valid())
	assert.Equal(t, 1, rep.Warnings())
	assert.Equal(t, RuleDependencyCycle, rep.For("manifest/resources/resource[1]")[0].Rule)
}

func TestReferencedResources(t *testing.T) {
	m := mustParse(t, sampleManifest)
	org := m.Organizations.DefaultOrganization()
	res := org.ReferencedResources()
	require.Len(t, res, 2)
	assert.Equal(t, "RES1", res[0].ID)
	assert.Equal(t, "RES2", res[1].ID)

	names := NewFileSet()
	exclude := map[*Resource]bool{}
	for _, r := range res {
		r.AddReferencedFileNamesTo(names, exclude)
	}
	assert.Equal(t, []string{
		"content/common/api-extra.js",
		"content/common/api.js",
		"content/intro.html",
		"content/lesson 1.html",
	}, names.Sorted())
}

func TestDistinctColumnTitles(t *testing.T) {
	m := mustParse(t, `<manifest identifier="M" xmlns="http://www.imsproject.org/xsd/imscp_rootv1p1p2">
  <organizations>
    <organization identifier="O" structure="layered">
      <item identifier="R1"><item identifier="C1"><title>Read</title></item><item identifier="C2"><title>Quiz</title></item></item>
      <item identifier="R2"><item identifier="C3"><title>Quiz</title></item><item identifier="C4"><title>Lab</title></item></item>
    </organization>
  </organizations>
  <resources/>
</manifest>`)
	org := m.Organizations.Items[0]
	assert.Equal(t, StructureLayered, org.Structure)
	assert.Equal(t, []string{"Read", "Quiz", "Lab"}, org.DistinctColumnTitles())
}

func TestWriteManifestRoundTrip(t *testing.T) {
	m := mustParse(t, sampleManifest)

	var buf bytes.Buffer
	require.NoError(t, WriteManifest(&buf, m))

	again, err := Parse(&buf)
	require.NoError(t, err)

	var before, after []string
	Walk(m, func(n Node) { before = append(before, n.Path()+"|"+n.Identifier()) })
	Walk(again, func(n Node) { after = append(after, n.Path()+"|"+n.Identifier()) })
	assert.Equal(t, before, after)

	lesson := again.Organizations.Items[0].Items[1].Items[0]
	assert.False(t, lesson.IsVisible)
	assert.Equal(t, "80", again.Organizations.Items[0].Items[0].MasteryScore)
	assert.Equal(t, "content/common/api-extra.js", again.Resources.Items[2].Files[0].Files[0].FullHref())
	assert.True(t, Validate(again, sampleFiles()).Valid())
}

func TestLinkAssembledTree(t *testing.T) {
	lesson := &Item{ID: "I2", IdentifierRef: "R1", IsVisible: true, Title: "Lesson"}
	unit := &Item{ID: "I1", IsVisible: true, Title: "Unit", Items: []*Item{lesson}}
	res := &Resource{ID: "R1", Type: ResourceTypeWebContent, ScormType: ScormTypeSCO, XMLBase: "pages/", Href: "one.html?x=1",
		Files:        []*File{{Href: "one.html"}},
		Dependencies: []*Dependency{{IdentifierRef: "R2"}}}
	lib := &Resource{ID: "R2", Type: ResourceTypeWebContent, ScormType: ScormTypeAsset, Files: []*File{{Href: "lib.js"}}}
	m := &Manifest{
		ID:            "M",
		Organizations: &Organizations{Default: "O", Items: []*Organization{{ID: "O", Title: "Course", Items: []*Item{unit}}}},
		Resources:     &Resources{Items: []*Resource{res, lib}},
	}
	Link(m)

	assert.Equal(t, "manifest/organizations/organization[0]/item[0]/item[0]", lesson.Path())
	assert.Same(t, unit, lesson.Parent())
	assert.Equal(t, "manifest/resources/resource[0]/dependency[0]", res.Dependencies[0].Path())
	assert.Equal(t, "pages/one.html", res.FullHref())
	assert.Equal(t, "pages/one.html", res.Files[0].FullHref())

	rep := Validate(m, NewFileSet(ManifestName, "pages/one.html", "lib.js"))
	assert.True(t, rep.Valid(), "%v", rep.Issues())

	rep = Validate(m, NewFileSet(ManifestName, "pages/one.html"))
	require.False(t, rep.Valid())
	assert.False(t, rep.NodeValid(lib.Files[0].Path()))
}
