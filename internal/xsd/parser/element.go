package parser

import (
	"context"
	"errors"
	"fmt"

	"aqwari.net/xml/xmltree"

	"github.com/goliatone/go-xsdform/internal/xsd"
	"github.com/goliatone/go-xsdform/pkg/formtree"
)

// elemParams carries the positional context of an element or attribute
// declaration inside the recursive descent.
type elemParams struct {
	isAttribute bool
	xsdBase     string
	xmlBase     string

	// shellOnly suppresses deep generation for alternatives of a choice
	// that are not currently selected. The shell keeps enough addressing
	// state to be materialized on demand later.
	shellOnly bool
}

// instVal is the instance-side data matched to one occurrence: a leaf
// element while editing, or a bare attribute value.
type instVal struct {
	el    *xmltree.Element
	value string
	has   bool
}

func (iv instVal) text() string {
	if iv.el != nil {
		return xsd.ElementText(iv.el)
	}
	return iv.value
}

func (p *Parser) generateElement(ctx context.Context, g *genContext, el *xmltree.Element, prm elemParams) (*formtree.Node, error) {
	// Occurrence bounds live on the referencing particle, so read them
	// before any ref swap.
	min, max := xsd.Occurrences(el, prm.isAttribute)

	isRef := false
	if ref := el.Attr("", "ref"); ref != "" {
		tag := "element"
		if prm.isAttribute {
			tag = "attribute"
		}
		target, doc, location, err := xsd.ResolveRef(ctx, g.doc, ref, tag, g.resolver)
		if err != nil {
			if errors.Is(err, xsd.ErrDownloadDisabled) {
				return nil, err
			}
			// Intentional data-loss path: a dangling ref skips the
			// construct entirely.
			p.log.V(1).Info("skipping unresolvable ref", "ref", ref, "reason", err.Error())
			return nil, nil
		}
		if doc != g.doc {
			g = g.forDoc(doc, location)
		}
		el = target
		isRef = true
	}

	name := el.Attr("", "name")
	if name == "" {
		p.log.V(1).Info("skipping unnamed declaration", "tag", el.Name.Local)
		return nil, nil
	}

	tag := formtree.TagElement
	qualified := g.elementsQual
	if prm.isAttribute {
		tag = formtree.TagAttribute
		qualified = g.attributesQual
	}

	node, err := p.newNode(g, tag)
	if err != nil {
		return nil, err
	}
	node.Value = name
	node.Options.Min, node.Options.Max = min, max
	node.Options.Xmlns = g.targetNS
	node.Options.NSPrefix = g.nsPrefix
	node.Options.XSDPath = prm.xsdBase + "/" + name
	node.Options.XMLPath = xsd.BuildXPath(prm.xmlBase, string(tag), name, g.targetNS, g.nsPrefix, isRef, qualified)

	info := xsd.AppInfo(el, p.moduleTag)
	node.Options.Label = info[xsd.AppInfoLabel]
	node.Options.Placeholder = info[xsd.AppInfoPlaceholder]
	node.Options.Tooltip = info[xsd.AppInfoTooltip]
	node.Options.Use = info[xsd.AppInfoUse]
	if p.collapse && !prm.isAttribute {
		node.Options.Collapse = true
	}

	p.manageKeyKeyref(g, el, node.Options.XMLPath)

	if prm.shellOnly && p.minTree && !g.force {
		return node, nil
	}
	if err := p.fillElement(ctx, g, el, node, prm, info); err != nil {
		return nil, err
	}
	return node, nil
}

// fillElement materializes the iteration layer and content of an element or
// attribute node whose shell already exists. Absent-subtree regeneration
// calls this directly against persisted shells.
func (p *Parser) fillElement(ctx context.Context, g *genContext, el *xmltree.Element, node *formtree.Node, prm elemParams, info map[string]string) error {
	modPath, modParams, modMultiple, err := p.moduleFor(g, el, node.Options.XMLPath)
	if err != nil {
		return err
	}

	count, matches, values, placeholder := p.occurrenceCount(g, prm.isAttribute, node.Options.Min, node.Options.Max, node.Options.XMLPath)

	for i := 0; i < count; i++ {
		iter, err := p.newNode(g, formtree.TagElemIter)
		if err != nil {
			return err
		}
		iterXML := node.Options.XMLPath
		if !prm.isAttribute {
			iterXML = fmt.Sprintf("%s[%d]", iterXML, i+1)
		}
		iter.Options.XMLPath = iterXML
		iter.Options.XSDPath = node.Options.XSDPath
		if placeholder {
			iter.Options.Use = "empty"
		}
		node.Append(iter)

		var iv instVal
		if g.editing && !placeholder {
			if prm.isAttribute {
				if i < len(values) {
					iv = instVal{value: values[i], has: true}
				}
			} else if i < len(matches) {
				iv = instVal{el: matches[i], has: true}
			}
		}

		if modPath != "" {
			if err := p.generateModule(g, el, iter, iv, modPath, modParams, modMultiple, node.Options.XSDPath, iterXML); err != nil {
				return err
			}
			continue
		}
		if err := p.generateType(ctx, g, el, iter, iv, info, node.Options.XSDPath, iterXML, prm.isAttribute); err != nil {
			return err
		}
	}
	return nil
}

// occurrenceCount decides how many iterations to materialize. Editing
// counts instance matches; otherwise the min-tree optimization materializes
// a single iteration for required constructs and nothing for optional ones.
// A required construct with no data still gets one placeholder iteration so
// the user always sees a slot.
func (p *Parser) occurrenceCount(g *genContext, isAttr bool, min, max int, xmlPath string) (count int, matches []*xmltree.Element, values []string, placeholder bool) {
	if max == 0 {
		return 0, nil, nil, false
	}

	switch {
	case g.editing:
		if isAttr {
			values = xsd.FindAttributeValues(g.instance, xmlPath, g.namespaces)
			count = len(values)
		} else {
			matches = xsd.FindElements(g.instance, xsd.StripIndex(xmlPath), g.namespaces)
			count = len(matches)
		}
		if max == 1 && count > 1 {
			count = 1
		}
	case p.minTree && !g.force:
		if min >= 1 {
			count = 1
		}
	default:
		count = min
		if count < 1 {
			count = 1
		}
	}

	if max != xsd.Unbounded && count > max {
		count = max
	}
	if count == 0 && min >= 1 {
		count = 1
		placeholder = true
	}
	return count, matches, values, placeholder
}

// moduleFor resolves the module bound to this schema position: an explicit
// app-info directive validated against the catalog, or a key/keyref
// auto-wired widget. An empty path means type-driven generation proceeds.
func (p *Parser) moduleFor(g *genContext, el *xmltree.Element, xmlPath string) (path, params string, multiple bool, err error) {
	if p.ignoreModules || p.catalog == nil {
		return "", "", false, nil
	}
	if refPath, refParams, ok := xsd.ModuleReference(el, p.moduleTag, p.catalog); ok {
		d, _ := p.catalog.ResolveByPath(refPath)
		return refPath, refParams, d.Multiple, nil
	}
	if !p.autoKeyKeyref {
		return "", "", false, nil
	}
	return p.autoWire(g, xmlPath)
}

func (p *Parser) generateModule(g *genContext, el *xmltree.Element, parent *formtree.Node, iv instVal, path, params string, multiple bool, xsdPath, xmlPath string) error {
	mod, err := p.newNode(g, formtree.TagModule)
	if err != nil {
		return err
	}
	mod.Options.ModuleURL = path
	mod.Options.ModuleParams = params
	mod.Options.ModuleMultiple = multiple
	mod.Options.XSDPath = xsdPath
	mod.Options.XMLPath = xmlPath
	if iv.has {
		mod.Options.ModuleData = iv.text()
	} else if def := el.Attr("", "default"); def != "" {
		mod.Options.ModuleData = def
	}
	parent.Append(mod)
	return nil
}
