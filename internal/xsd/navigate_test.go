package xsd

import (
	"testing"

	"aqwari.net/xml/xmltree"
)

func parse(t *testing.T, doc string) *xmltree.Element {
	t.Helper()
	root, err := xmltree.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return root
}

func TestOccurrences(t *testing.T) {
	doc := parse(t, `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="plain"/>
  <xs:element name="bounded" minOccurs="2" maxOccurs="4"/>
  <xs:element name="open" minOccurs="0" maxOccurs="unbounded"/>
  <xs:attribute name="opt" use="optional"/>
  <xs:attribute name="never" use="prohibited"/>
  <xs:attribute name="must" use="required"/>
  <xs:attribute name="dflt"/>
</xs:schema>`)

	cases := []struct {
		name    string
		isAttr  bool
		min     int
		max     int
		kindTag string
	}{
		{"plain", false, 1, 1, "element"},
		{"bounded", false, 2, 4, "element"},
		{"open", false, 0, Unbounded, "element"},
		{"opt", true, 0, 1, "attribute"},
		{"never", true, 0, 0, "attribute"},
		{"must", true, 1, 1, "attribute"},
		{"dflt", true, 1, 1, "attribute"},
	}
	for _, tc := range cases {
		var el *xmltree.Element
		for _, candidate := range ChildrenNamed(doc, tc.kindTag) {
			if candidate.Attr("", "name") == tc.name {
				el = candidate
			}
		}
		if el == nil {
			t.Fatalf("fixture missing %q", tc.name)
		}
		min, max := Occurrences(el, tc.isAttr)
		if min != tc.min || max != tc.max {
			t.Fatalf("%s: got (%d,%d), want (%d,%d)", tc.name, min, max, tc.min, tc.max)
		}
	}
}

func TestAppInfoRecognizedDirectives(t *testing.T) {
	doc := parse(t, `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="country">
    <xs:annotation>
      <xs:appinfo>
        <label>Country</label>
        <placeholder>Pick one</placeholder>
        <module>/modules/country?mode=iso</module>
        <mystery>ignored</mystery>
      </xs:appinfo>
    </xs:annotation>
  </xs:element>
</xs:schema>`)

	el := ChildrenNamed(doc, "element")[0]
	info := AppInfo(el, "")
	if info["label"] != "Country" || info["placeholder"] != "Pick one" {
		t.Fatalf("display directives missing: %v", info)
	}
	if info["module"] != "/modules/country?mode=iso" {
		t.Fatalf("module directive missing: %v", info)
	}
	if _, ok := info["mystery"]; ok {
		t.Fatalf("unrecognized directive leaked through: %v", info)
	}
}

type pathSet map[string]struct{}

func (p pathSet) Has(path string) bool {
	_, ok := p[path]
	return ok
}

func TestModuleReferenceGatedByCatalog(t *testing.T) {
	doc := parse(t, `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="country">
    <xs:annotation><xs:appinfo><module>/modules/country?mode=iso</module></xs:appinfo></xs:annotation>
  </xs:element>
</xs:schema>`)
	el := ChildrenNamed(doc, "element")[0]

	if _, _, ok := ModuleReference(el, "", pathSet{}); ok {
		t.Fatalf("unregistered module path must be ignored")
	}

	path, params, ok := ModuleReference(el, "", pathSet{"/modules/country": {}})
	if !ok {
		t.Fatalf("registered module path not resolved")
	}
	if path != "/modules/country" || params != "mode=iso" {
		t.Fatalf("got path=%q params=%q", path, params)
	}
}

func TestBuildXPathQualification(t *testing.T) {
	cases := []struct {
		name      string
		base      string
		tag       string
		elName    string
		targetNS  string
		prefix    string
		isRef     bool
		qualified bool
		want      string
	}{
		{"root is always qualified", "", "element", "root", "urn:x", "ex", false, false, "/ex:root"},
		{"qualified child", "/ex:root", "element", "child", "urn:x", "ex", false, true, "/ex:root/ex:child"},
		{"unqualified child", "/ex:root", "element", "child", "urn:x", "ex", false, false, "/ex:root/*[local-name()='child']"},
		{"no namespace", "/root", "element", "child", "", "", false, false, "/root/child"},
		{"ref is qualified", "/ex:root", "element", "other", "urn:x", "ex", true, false, "/ex:root/ex:other"},
		{"attribute", "/ex:root", "attribute", "id", "urn:x", "ex", false, false, "/ex:root/@id"},
		{"qualified attribute", "/ex:root", "attribute", "id", "urn:x", "ex", false, true, "/ex:root/@ex:id"},
	}
	for _, tc := range cases {
		got := BuildXPath(tc.base, tc.tag, tc.elName, tc.targetNS, tc.prefix, tc.isRef, tc.qualified)
		if got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFormDefaults(t *testing.T) {
	doc := parse(t, `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" elementFormDefault="qualified"/>`)
	eq, aq := FormDefaults(doc)
	if !eq || aq {
		t.Fatalf("got elements=%v attributes=%v", eq, aq)
	}
}
