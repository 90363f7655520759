package parser

import (
	"fmt"

	"aqwari.net/xml/xmltree"

	"github.com/goliatone/go-xsdform/internal/xsd"
	"github.com/goliatone/go-xsdform/pkg/formtree"
)

// genContext is the per-pass state threaded explicitly through every
// recursive call. Nothing here lives on the Parser, so independent
// generations can run concurrently in one process.
type genContext struct {
	editing  bool
	instance *xmltree.Element

	// Current schema document and how it qualifies names. These change
	// when type resolution crosses an import boundary.
	doc            *xmltree.Element
	schemaLocation string
	targetNS       string
	nsPrefix       string
	elementsQual   bool
	attributesQual bool

	// Prefix bindings for evaluating generated xpaths against the
	// instance document.
	namespaces map[string]string

	keys    map[string]*formtree.Key
	keyrefs map[string]*formtree.Keyref

	resolver *xsd.DocResolver
	counter  *int

	// force overrides min-tree suppression when a previously absent
	// branch is materialized on demand.
	force bool
}

func (p *Parser) newContext(doc *xmltree.Element, instance *xmltree.Element, resolver *xsd.DocResolver) *genContext {
	counter := 0
	g := &genContext{
		editing:    instance != nil,
		instance:   instance,
		keys:       map[string]*formtree.Key{},
		keyrefs:    map[string]*formtree.Keyref{},
		resolver:   resolver,
		counter:    &counter,
		namespaces: map[string]string{},
	}
	g.enterDoc(doc, "")
	return g
}

// enterDoc points the context at a (possibly imported) schema document and
// recomputes namespace and qualification state.
func (g *genContext) enterDoc(doc *xmltree.Element, location string) {
	g.doc = doc
	g.schemaLocation = location
	g.targetNS = xsd.TargetNamespace(doc)
	g.nsPrefix = xsd.NamespacePrefix(doc, g.targetNS)
	g.elementsQual, g.attributesQual = xsd.FormDefaults(doc)
	if g.nsPrefix != "" && g.targetNS != "" {
		g.namespaces[g.nsPrefix] = g.targetNS
	}
}

// forDoc returns a copy of the context scoped to another schema document,
// sharing the accumulators and counter.
func (g *genContext) forDoc(doc *xmltree.Element, location string) *genContext {
	child := *g
	child.enterDoc(doc, location)
	return &child
}

// forced returns a copy with min-tree suppression overridden.
func (g *genContext) forced() *genContext {
	child := *g
	child.force = true
	return &child
}

// newNode constructs a tree node, charging it against the generation
// budget. The check runs before any expensive work so pathological schemas
// abort within ceiling + O(1) nodes.
func (p *Parser) newNode(g *genContext, tag formtree.Tag) (*formtree.Node, error) {
	if *g.counter >= p.nodeBudget {
		return nil, fmt.Errorf("%w (limit %d)", ErrNodeBudget, p.nodeBudget)
	}
	*g.counter++
	node := formtree.NewNode(tag)
	if g.schemaLocation != "" {
		node.Options.SchemaLocation = g.schemaLocation
	}
	return node, nil
}
