// Package xsd holds the stateless helpers the generation engine uses to
// navigate an in-memory schema document: occurrence extraction, annotation
// app-info, namespace and qualification rules, and cross-document type/ref
// resolution.
package xsd

import (
	"encoding/xml"
	"net/url"
	"strconv"
	"strings"

	"aqwari.net/xml/xmltree"
)

// Namespace is the XML Schema namespace URI.
const Namespace = "http://www.w3.org/2001/XMLSchema"

// InstanceNamespace is the XML Schema instance namespace (xsi).
const InstanceNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// Unbounded encodes maxOccurs="unbounded".
const Unbounded = -1

// DefaultModuleTag is the app-info directive name binding a schema position
// to a module widget.
const DefaultModuleTag = "module"

// Recognized app-info directive names besides the module tag.
const (
	AppInfoLabel       = "label"
	AppInfoPlaceholder = "placeholder"
	AppInfoTooltip     = "tooltip"
	AppInfoUse         = "use"
	AppInfoDefault     = "default"
)

// Occurrences extracts the occurrence bounds of an element or attribute
// declaration. Elements default to (1,1) with maxOccurs="unbounded" mapping
// to Unbounded. Attributes derive bounds from the use attribute.
func Occurrences(el *xmltree.Element, isAttribute bool) (min, max int) {
	if isAttribute {
		switch el.Attr("", "use") {
		case "optional":
			return 0, 1
		case "prohibited":
			return 0, 0
		case "required":
			return 1, 1
		default:
			return 1, 1
		}
	}

	min, max = 1, 1
	if raw := el.Attr("", "minOccurs"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			min = v
		}
	}
	if raw := el.Attr("", "maxOccurs"); raw != "" {
		if raw == "unbounded" {
			max = Unbounded
		} else if v, err := strconv.Atoi(raw); err == nil {
			max = v
		}
	}
	return min, max
}

// AppInfo collects recognized annotation directives found under the
// element's annotation/appinfo children. Unrecognized directives are
// ignored.
func AppInfo(el *xmltree.Element, moduleTag string) map[string]string {
	if moduleTag == "" {
		moduleTag = DefaultModuleTag
	}
	out := map[string]string{}
	for i := range el.Children {
		annotation := &el.Children[i]
		if annotation.Name.Space != Namespace || annotation.Name.Local != "annotation" {
			continue
		}
		for j := range annotation.Children {
			appinfo := &annotation.Children[j]
			if appinfo.Name.Space != Namespace || appinfo.Name.Local != "appinfo" {
				continue
			}
			for k := range appinfo.Children {
				directive := &appinfo.Children[k]
				switch directive.Name.Local {
				case AppInfoLabel, AppInfoPlaceholder, AppInfoTooltip, AppInfoUse, AppInfoDefault, moduleTag:
					out[directive.Name.Local] = strings.TrimSpace(string(directive.Content))
				}
			}
		}
	}
	return out
}

// PathSet is the read surface of the module catalog navigation needs.
type PathSet interface {
	Has(path string) bool
}

// ModuleReference reads the module directive from the element's app-info and
// returns its path and query parameters, but only when the path is present
// in the registered module catalog. A stray directive pointing at an
// unregistered path is ignored, not fatal.
func ModuleReference(el *xmltree.Element, moduleTag string, registered PathSet) (path, params string, ok bool) {
	info := AppInfo(el, moduleTag)
	if moduleTag == "" {
		moduleTag = DefaultModuleTag
	}
	raw, found := info[moduleTag]
	if !found || raw == "" {
		return "", "", false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}
	if registered == nil || !registered.Has(parsed.Path) {
		return "", "", false
	}
	return parsed.Path, parsed.RawQuery, true
}

// TargetNamespace returns the document's target namespace, or empty.
func TargetNamespace(doc *xmltree.Element) string {
	return doc.Attr("", "targetNamespace")
}

// FormDefaults reports the document's element/attribute qualification rules.
func FormDefaults(doc *xmltree.Element) (elementsQualified, attributesQualified bool) {
	return doc.Attr("", "elementFormDefault") == "qualified",
		doc.Attr("", "attributeFormDefault") == "qualified"
}

// NamespacePrefix returns the prefix the document declares for the given
// namespace, or empty when only the default declaration covers it.
func NamespacePrefix(doc *xmltree.Element, ns string) string {
	if ns == "" {
		return ""
	}
	qname := doc.Prefix(xml.Name{Space: ns, Local: "x"})
	if idx := strings.Index(qname, ":"); idx > 0 {
		return qname[:idx]
	}
	return ""
}

// IsBuiltin reports whether a resolved type name belongs to the XSD builtin
// vocabulary.
func IsBuiltin(name xml.Name) bool {
	return name.Space == Namespace
}

// childrenNamed returns the element's direct children with the given XSD
// local name.
func childrenNamed(el *xmltree.Element, local string) []*xmltree.Element {
	var out []*xmltree.Element
	for i := range el.Children {
		c := &el.Children[i]
		if c.Name.Space == Namespace && c.Name.Local == local {
			out = append(out, c)
		}
	}
	return out
}

// FirstChildNamed returns the first direct child with the given XSD local
// name, or nil.
func FirstChildNamed(el *xmltree.Element, local string) *xmltree.Element {
	children := childrenNamed(el, local)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// ChildrenNamed returns the element's direct children with the given XSD
// local name.
func ChildrenNamed(el *xmltree.Element, local string) []*xmltree.Element {
	return childrenNamed(el, local)
}
