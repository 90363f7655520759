package xsd

import (
	"testing"

	"aqwari.net/xml/xmltree"
)

const instanceDoc = `<root xmlns="urn:x" xmlns:ex="urn:x" version="2">
  <a>x</a>
  <a>y</a>
  <b><c>deep</c></b>
</root>`

func instanceRoot(t *testing.T) *xmltree.Element {
	t.Helper()
	root, err := xmltree.Parse([]byte(instanceDoc))
	if err != nil {
		t.Fatalf("parse instance: %v", err)
	}
	return root
}

func TestFindElementsCountsSiblings(t *testing.T) {
	root := instanceRoot(t)
	ns := map[string]string{"ex": "urn:x"}

	matches := FindElements(root, "/ex:root/ex:a", ns)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if ElementText(matches[0]) != "x" || ElementText(matches[1]) != "y" {
		t.Fatalf("unexpected leaf texts %q %q", ElementText(matches[0]), ElementText(matches[1]))
	}
}

func TestFindElementsPositionalIndex(t *testing.T) {
	root := instanceRoot(t)
	ns := map[string]string{"ex": "urn:x"}

	matches := FindElements(root, "/ex:root/ex:a[2]", ns)
	if len(matches) != 1 || ElementText(matches[0]) != "y" {
		t.Fatalf("expected second sibling, got %v", matches)
	}
}

func TestFindElementsWildcardStep(t *testing.T) {
	root := instanceRoot(t)

	matches := FindElements(root, "/*[local-name()='root']/*[local-name()='b']/*[local-name()='c']", nil)
	if len(matches) != 1 || ElementText(matches[0]) != "deep" {
		t.Fatalf("wildcard path did not match, got %v", matches)
	}
}

func TestFindAttributeValues(t *testing.T) {
	root := instanceRoot(t)
	ns := map[string]string{"ex": "urn:x"}

	values := FindAttributeValues(root, "/ex:root/@version", ns)
	if len(values) != 1 || values[0] != "2" {
		t.Fatalf("expected version=2, got %v", values)
	}
}

func TestStripIndex(t *testing.T) {
	if got := StripIndex("/a/b[3]"); got != "/a/b" {
		t.Fatalf("got %q", got)
	}
	if got := StripIndex("/a/*[local-name()='b'][2]"); got != "/a/*[local-name()='b']" {
		t.Fatalf("got %q", got)
	}
	if got := StripIndex("/a/b"); got != "/a/b" {
		t.Fatalf("got %q", got)
	}
}
