package parser

import (
	"fmt"
	"net/url"
	"strings"

	"aqwari.net/xml/xmltree"

	"github.com/goliatone/go-xsdform/internal/xsd"
	"github.com/goliatone/go-xsdform/pkg/formtree"
	"github.com/goliatone/go-xsdform/pkg/modules"
)

// manageKeyKeyref records xs:key and xs:keyref constraints declared on an
// element. The selector and field xpaths are joined onto the element's
// instance path and normalized, so later positions can be matched against
// them regardless of prefixes or occurrence indices.
func (p *Parser) manageKeyKeyref(g *genContext, el *xmltree.Element, xmlPath string) {
	if !p.autoKeyKeyref {
		return
	}
	for _, child := range xsd.ChildrenNamed(el, "key") {
		name, path := constraintTarget(child, xmlPath)
		if name == "" || path == "" {
			continue
		}
		if _, dup := g.keys[name]; dup {
			p.log.V(1).Info("duplicate key name, keeping first", "key", name)
			continue
		}
		g.keys[name] = &formtree.Key{XPath: path}
	}
	for _, child := range xsd.ChildrenNamed(el, "keyref") {
		name, path := constraintTarget(child, xmlPath)
		refer := child.Attr("", "refer")
		if name == "" || path == "" || refer == "" {
			continue
		}
		refer = localPart(refer)
		if _, dup := g.keyrefs[name]; dup {
			p.log.V(1).Info("duplicate keyref name, keeping first", "keyref", name)
			continue
		}
		g.keyrefs[name] = &formtree.Keyref{XPath: path, Refer: refer}
	}
}

// constraintTarget extracts the constraint name and its absolute normalized
// target path from a key/keyref declaration.
func constraintTarget(constraint *xmltree.Element, xmlPath string) (name, path string) {
	name = constraint.Attr("", "name")
	selector := xsd.FirstChildNamed(constraint, "selector")
	field := xsd.FirstChildNamed(constraint, "field")
	if selector == nil || field == nil {
		return name, ""
	}
	sel := strings.TrimPrefix(selector.Attr("", "xpath"), "./")
	fld := strings.TrimPrefix(field.Attr("", "xpath"), "./")
	if sel == "" || fld == "" {
		return name, ""
	}
	return name, formtree.NormalizeXPath(xmlPath + "/" + sel + "/" + fld)
}

// autoWire checks whether the position being generated is the target of a
// previously recorded key or keyref and, if so, binds the matching built-in
// widget. A hit without the widget registered is a configuration error, not
// a fallback.
func (p *Parser) autoWire(g *genContext, xmlPath string) (path, params string, multiple bool, err error) {
	normalized := formtree.NormalizeXPath(xmlPath)

	for name, key := range g.keys {
		if key.XPath != normalized {
			continue
		}
		if !p.catalog.Has(modules.AutoKeyPath) {
			return "", "", false, fmt.Errorf("%w: %s", ErrModuleUnresolved, modules.AutoKeyPath)
		}
		return modules.AutoKeyPath, url.Values{"name": {name}}.Encode(), false, nil
	}
	for name, keyref := range g.keyrefs {
		if keyref.XPath != normalized {
			continue
		}
		if !p.catalog.Has(modules.AutoKeyrefPath) {
			return "", "", false, fmt.Errorf("%w: %s", ErrModuleUnresolved, modules.AutoKeyrefPath)
		}
		return modules.AutoKeyrefPath, url.Values{"name": {name}}.Encode(), false, nil
	}
	return "", "", false, nil
}

// candidateElementNames lists every element name that can appear directly
// under a content particle, descending through nested sequence/choice
// groups.
func candidateElementNames(particle *xmltree.Element) []string {
	var out []string
	switch particle.Name.Local {
	case "element":
		name := particle.Attr("", "name")
		if name == "" {
			if ref := particle.Attr("", "ref"); ref != "" {
				name = localPart(ref)
			}
		}
		if name != "" {
			out = append(out, name)
		}
	case "sequence", "choice":
		for _, child := range particleChildren(particle) {
			out = append(out, candidateElementNames(child)...)
		}
	}
	return out
}
