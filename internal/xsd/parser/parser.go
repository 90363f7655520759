package parser

import (
	"context"
	"fmt"

	"aqwari.net/xml/xmltree"

	"github.com/goliatone/go-xsdform/internal/xsd"
	"github.com/goliatone/go-xsdform/pkg/formtree"
)

// GenerateForm turns a schema document (plus an optional existing XML
// instance) into a form-structure tree. Any failure during the walk is
// logged with context and surfaced as a single ParseError; callers must
// treat an error as "no usable tree".
func (p *Parser) GenerateForm(ctx context.Context, schemaBytes, instanceBytes []byte) (*formtree.Node, error) {
	root, err := p.generate(ctx, schemaBytes, instanceBytes)
	if err != nil {
		p.log.Error(err, "form generation failed")
		return nil, &ParseError{Err: err}
	}
	return root, nil
}

func (p *Parser) generate(ctx context.Context, schemaBytes, instanceBytes []byte) (*formtree.Node, error) {
	doc, instance, err := p.parseInputs(ctx, schemaBytes, instanceBytes)
	if err != nil {
		return nil, err
	}

	resolver := xsd.NewDocResolver(p.fetcher, p.flattener, p.downloadDeps, p.log)
	g := p.newContext(doc, instance, resolver)

	root, err := p.generateRoot(ctx, g)
	if err != nil {
		return nil, err
	}

	if p.autoKeyKeyref {
		if len(g.keys) > 0 {
			root.Options.Keys = g.keys
		}
		if len(g.keyrefs) > 0 {
			root.Options.Keyrefs = g.keyrefs
		}
	}
	return root, nil
}

func (p *Parser) parseInputs(ctx context.Context, schemaBytes, instanceBytes []byte) (*xmltree.Element, *xmltree.Element, error) {
	if len(schemaBytes) == 0 {
		return nil, nil, fmt.Errorf("xsd parser: schema is empty")
	}
	flat := schemaBytes
	if p.flattener != nil {
		var err error
		if flat, err = p.flattener.Flatten(ctx, schemaBytes, ""); err != nil {
			return nil, nil, fmt.Errorf("xsd parser: flatten schema: %w", err)
		}
	}
	doc, err := xmltree.Parse(flat)
	if err != nil {
		return nil, nil, fmt.Errorf("xsd parser: parse schema: %w", err)
	}

	var instance *xmltree.Element
	if len(instanceBytes) > 0 {
		if instance, err = xmltree.Parse(instanceBytes); err != nil {
			return nil, nil, fmt.Errorf("xsd parser: parse instance: %w", err)
		}
	}
	return doc, instance, nil
}

// generateRoot determines the document's root shape: one global element
// descends directly, several become an implicit choice among them, none
// falls back to global types, and an empty schema fails.
func (p *Parser) generateRoot(ctx context.Context, g *genContext) (*formtree.Node, error) {
	elements := xsd.ChildrenNamed(g.doc, "element")
	switch len(elements) {
	case 1:
		return p.generateElement(ctx, g, elements[0], elemParams{})
	case 0:
		return p.generateRootFromTypes(ctx, g)
	default:
		return p.generateRootChoice(ctx, g, elements)
	}
}

func (p *Parser) generateRootChoice(ctx context.Context, g *genContext, candidates []*xmltree.Element) (*formtree.Node, error) {
	choice, err := p.newNode(g, formtree.TagChoice)
	if err != nil {
		return nil, err
	}
	choice.Options.Min, choice.Options.Max = 1, 1

	iter, err := p.newNode(g, formtree.TagChoiceIter)
	if err != nil {
		return nil, err
	}
	choice.Append(iter)

	selected := p.pickRootCandidate(g, candidates)
	for i, candidate := range candidates {
		shell := i != selected && p.minTree && !g.force
		node, err := p.generateElement(ctx, g, candidate, elemParams{shellOnly: shell})
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		iter.Append(node)
		if i == selected {
			iter.Value = node.ID
		}
	}
	if len(iter.Children) == 0 {
		return nil, ErrNoRoot
	}
	if iter.Value == "" {
		iter.Value = iter.Children[0].ID
	}
	return choice, nil
}

// pickRootCandidate honors the instance root name while editing, then an
// explicit "default" annotation, then document order.
func (p *Parser) pickRootCandidate(g *genContext, candidates []*xmltree.Element) int {
	if g.editing && g.instance != nil {
		for i, candidate := range candidates {
			if candidate.Attr("", "name") == g.instance.Name.Local {
				return i
			}
		}
	}
	for i, candidate := range candidates {
		if info := xsd.AppInfo(candidate, p.moduleTag); info[xsd.AppInfoDefault] != "" {
			return i
		}
	}
	return 0
}

// generateRootFromTypes hangs the form on a global complex or simple type
// when the schema declares no global element.
func (p *Parser) generateRootFromTypes(ctx context.Context, g *genContext) (*formtree.Node, error) {
	var types []*xmltree.Element
	types = append(types, xsd.ChildrenNamed(g.doc, "complexType")...)
	types = append(types, xsd.ChildrenNamed(g.doc, "simpleType")...)
	if len(types) == 0 {
		return nil, ErrNoRoot
	}

	chosen := types[0]
	for _, candidate := range types {
		if info := xsd.AppInfo(candidate, p.moduleTag); info[xsd.AppInfoDefault] != "" {
			chosen = candidate
			break
		}
	}

	name := chosen.Attr("", "name")
	if name == "" {
		return nil, ErrNoRoot
	}

	root, err := p.newNode(g, formtree.TagElement)
	if err != nil {
		return nil, err
	}
	root.Value = name
	root.Options.Min, root.Options.Max = 1, 1
	root.Options.Xmlns = g.targetNS
	root.Options.NSPrefix = g.nsPrefix
	root.Options.XSDPath = "/" + name
	root.Options.XMLPath = xsd.BuildXPath("", "element", name, g.targetNS, g.nsPrefix, false, true)

	iter, err := p.newNode(g, formtree.TagElemIter)
	if err != nil {
		return nil, err
	}
	iter.Options.XMLPath = root.Options.XMLPath
	root.Append(iter)

	instEl := p.instanceRootFor(g, root.Options.XMLPath)
	iv := instVal{el: instEl, has: instEl != nil}
	if chosen.Name.Local == "simpleType" {
		err = p.generateSimpleType(ctx, g, chosen, iter, iv, root.Options.XSDPath, root.Options.XMLPath)
	} else {
		err = p.generateComplexType(ctx, g, chosen, iter, iv, root.Options.XSDPath, root.Options.XMLPath)
	}
	if err != nil {
		return nil, err
	}
	return root, nil
}

func (p *Parser) instanceRootFor(g *genContext, xmlPath string) *xmltree.Element {
	if !g.editing || g.instance == nil {
		return nil
	}
	matches := xsd.FindElements(g.instance, xsd.StripIndex(xmlPath), g.namespaces)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}
