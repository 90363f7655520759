package parser

import (
	"context"
	"fmt"
	"strings"

	"aqwari.net/xml/xmltree"

	"github.com/goliatone/go-xsdform/internal/xsd"
	"github.com/goliatone/go-xsdform/pkg/formtree"
)

// Absent-subtree regeneration. Min-tree generation leaves optional
// occurrences and unselected choice branches out of the persisted tree;
// the operations here materialize them later, on demand, by re-deriving
// the schema position from the node's stored xsd xpath and generating
// with suppression overridden. There is no suspended generator state:
// each call is an independent pass over the schema.

// GenerateElementAbsent adds one occurrence to a persisted element or
// attribute node and returns the declaration with the new iteration in
// place, so a partial re-render shows the updated occurrence block and its
// affordances. A pending placeholder slot is claimed before any new
// iteration is added.
func (p *Parser) GenerateElementAbsent(ctx context.Context, store formtree.Store, schemaBytes []byte, nodeID string) (*formtree.Node, error) {
	node, err := store.Get(nodeID)
	if err != nil {
		return nil, err
	}
	if node.Tag != formtree.TagElement && node.Tag != formtree.TagAttribute {
		return nil, fmt.Errorf("xsd parser: node %q is a %s, not an element or attribute", nodeID, node.Tag)
	}

	iters := node.Iterations()
	if last := len(iters) - 1; last >= 0 && iters[last].Options.Use == "empty" {
		iters[last].Options.Use = ""
		if err := store.Update(iters[last]); err != nil {
			return nil, err
		}
		return node, nil
	}
	if node.Options.Max != formtree.Unbounded && len(iters) >= node.Options.Max {
		return nil, fmt.Errorf("%w (max %d)", ErrOccurrenceLimit, node.Options.Max)
	}

	g, err := p.absentContext(ctx, schemaBytes, node)
	if err != nil {
		return nil, err
	}
	isAttr := node.Tag == formtree.TagAttribute
	decl, g, err := p.declarationAt(ctx, g, node.Options.XSDPath, isAttr)
	if err != nil {
		return nil, err
	}

	if _, err := p.appendIteration(ctx, g.forced(), decl, node, len(iters)+1, isAttr); err != nil {
		return nil, err
	}
	if err := store.Update(node); err != nil {
		return nil, err
	}
	return node, nil
}

// GenerateSequenceAbsent adds one iteration to a persisted sequence node,
// fully generating the sequence's content model into it.
func (p *Parser) GenerateSequenceAbsent(ctx context.Context, store formtree.Store, schemaBytes []byte, nodeID string) (*formtree.Node, error) {
	node, err := store.Get(nodeID)
	if err != nil {
		return nil, err
	}
	if node.Tag != formtree.TagSequence {
		return nil, fmt.Errorf("xsd parser: node %q is a %s, not a sequence", nodeID, node.Tag)
	}
	if node.Options.Max != formtree.Unbounded && len(node.Iterations()) >= node.Options.Max {
		return nil, fmt.Errorf("%w (max %d)", ErrOccurrenceLimit, node.Options.Max)
	}

	g, err := p.absentContext(ctx, schemaBytes, node)
	if err != nil {
		return nil, err
	}
	particle, g, err := p.particleAt(ctx, g, node.Options.XSDPath, "sequence", "all")
	if err != nil {
		return nil, err
	}

	iter, err := p.newNode(g, formtree.TagSequenceIter)
	if err != nil {
		return nil, err
	}
	iter.Options.XSDPath = node.Options.XSDPath
	iter.Options.XMLPath = node.Options.XMLPath
	if err := p.generateParticleChildren(ctx, g.forced(), particle, iter, instVal{}, node.Options.XSDPath, node.Options.XMLPath); err != nil {
		return nil, err
	}
	node.Append(iter)
	if err := store.Update(node); err != nil {
		return nil, err
	}
	return iter, nil
}

// GenerateChoiceAbsent adds one iteration to a persisted choice node. The
// first alternative is deep-generated and selected; the rest stay shells
// until MaterializeAlternative switches to them.
func (p *Parser) GenerateChoiceAbsent(ctx context.Context, store formtree.Store, schemaBytes []byte, nodeID string) (*formtree.Node, error) {
	node, err := store.Get(nodeID)
	if err != nil {
		return nil, err
	}
	if node.Tag != formtree.TagChoice {
		return nil, fmt.Errorf("xsd parser: node %q is a %s, not a choice", nodeID, node.Tag)
	}
	if node.Options.Max != formtree.Unbounded && len(node.Iterations()) >= node.Options.Max {
		return nil, fmt.Errorf("%w (max %d)", ErrOccurrenceLimit, node.Options.Max)
	}

	g, err := p.absentContext(ctx, schemaBytes, node)
	if err != nil {
		return nil, err
	}
	particle, g, err := p.particleAt(ctx, g, node.Options.XSDPath, "choice")
	if err != nil {
		return nil, err
	}

	iter, err := p.appendChoiceIteration(ctx, g, particle, node)
	if err != nil {
		return nil, err
	}
	if err := store.Update(node); err != nil {
		return nil, err
	}
	return iter, nil
}

// MaterializeAlternative switches a choice iteration's selection to the
// given child, deep-generating it first if it is still an unexpanded
// shell.
func (p *Parser) MaterializeAlternative(ctx context.Context, store formtree.Store, schemaBytes []byte, iterID, altID string) (*formtree.Node, error) {
	iter, err := store.Get(iterID)
	if err != nil {
		return nil, err
	}
	if iter.Tag != formtree.TagChoiceIter {
		return nil, fmt.Errorf("xsd parser: node %q is a %s, not a choice iteration", iterID, iter.Tag)
	}
	alt := iter.Child(altID)
	if alt == nil {
		return nil, fmt.Errorf("xsd parser: node %q is not an alternative of %q", altID, iterID)
	}

	if len(alt.Children) == 0 {
		if err := p.fillAlternative(ctx, schemaBytes, alt); err != nil {
			return nil, err
		}
	}
	iter.Value = alt.ID
	if err := store.Update(iter); err != nil {
		return nil, err
	}
	return alt, nil
}

func (p *Parser) fillAlternative(ctx context.Context, schemaBytes []byte, alt *formtree.Node) error {
	g, err := p.absentContext(ctx, schemaBytes, alt)
	if err != nil {
		return err
	}

	switch alt.Tag {
	case formtree.TagElement, formtree.TagAttribute:
		isAttr := alt.Tag == formtree.TagAttribute
		decl, g, err := p.declarationAt(ctx, g, alt.Options.XSDPath, isAttr)
		if err != nil {
			return err
		}
		return p.fillElement(ctx, g.forced(), decl, alt, elemParams{isAttribute: isAttr}, xsd.AppInfo(decl, p.moduleTag))

	case formtree.TagComplexType, formtree.TagSimpleType:
		typeEl := findNamedTypeIn(g.doc, alt.Options.TypeName)
		if typeEl == nil {
			return fmt.Errorf("%w: type %q", xsd.ErrNotFound, alt.Options.TypeName)
		}
		return p.fillTypeAlternative(ctx, g.forced(), typeEl, alt, instVal{}, alt.Options.XSDPath, alt.Options.XMLPath)

	case formtree.TagSequence, formtree.TagChoice:
		// A nested group inside a choice alternative. Locate the owning
		// choice particle and take its first sub-group of the same kind.
		owner, g, err := p.particleAt(ctx, g, alt.Options.XSDPath, "choice")
		if err != nil {
			return err
		}
		nested := findParticle(owner, string(alt.Tag))
		if nested == nil {
			return fmt.Errorf("%w: nested %s group", xsd.ErrNotFound, alt.Tag)
		}
		if alt.Tag == formtree.TagSequence {
			return p.generateParticleChildren(ctx, g.forced(), nested, alt, instVal{}, alt.Options.XSDPath, alt.Options.XMLPath)
		}
		_, err = p.appendChoiceIteration(ctx, g, nested, alt)
		return err

	default:
		return fmt.Errorf("xsd parser: cannot materialize a %s alternative", alt.Tag)
	}
}

// appendIteration materializes a single new occurrence of an element or
// attribute, mirroring one pass of fillElement's iteration loop at the
// given index.
func (p *Parser) appendIteration(ctx context.Context, g *genContext, el *xmltree.Element, node *formtree.Node, index int, isAttr bool) (*formtree.Node, error) {
	info := xsd.AppInfo(el, p.moduleTag)
	modPath, modParams, modMultiple, err := p.moduleFor(g, el, node.Options.XMLPath)
	if err != nil {
		return nil, err
	}

	iter, err := p.newNode(g, formtree.TagElemIter)
	if err != nil {
		return nil, err
	}
	iterXML := node.Options.XMLPath
	if !isAttr {
		iterXML = fmt.Sprintf("%s[%d]", iterXML, index)
	}
	iter.Options.XMLPath = iterXML
	iter.Options.XSDPath = node.Options.XSDPath
	node.Append(iter)

	if modPath != "" {
		return iter, p.generateModule(g, el, iter, instVal{}, modPath, modParams, modMultiple, node.Options.XSDPath, iterXML)
	}
	return iter, p.generateType(ctx, g, el, iter, instVal{}, info, node.Options.XSDPath, iterXML, isAttr)
}

// appendChoiceIteration adds one choice-iter under node: first alternative
// deep-generated and selected, the rest shells.
func (p *Parser) appendChoiceIteration(ctx context.Context, g *genContext, choiceEl *xmltree.Element, node *formtree.Node) (*formtree.Node, error) {
	iter, err := p.newNode(g, formtree.TagChoiceIter)
	if err != nil {
		return nil, err
	}
	iter.Options.XSDPath = node.Options.XSDPath
	iter.Options.XMLPath = node.Options.XMLPath
	node.Append(iter)

	for j, particle := range particleChildren(choiceEl) {
		ag := g
		if j == 0 {
			ag = g.forced()
		}
		alt, err := p.generateParticle(ctx, ag, particle, instVal{}, node.Options.XSDPath, node.Options.XMLPath, j != 0)
		if err != nil {
			return nil, err
		}
		if alt == nil {
			continue
		}
		iter.Append(alt)
		if iter.Value == "" {
			iter.Value = alt.ID
		}
	}
	return iter, nil
}

// absentContext builds a fresh generation context for an absent-subtree
// pass, pointed at the schema document the node came from.
func (p *Parser) absentContext(ctx context.Context, schemaBytes []byte, node *formtree.Node) (*genContext, error) {
	doc, _, err := p.parseInputs(ctx, schemaBytes, nil)
	if err != nil {
		return nil, err
	}
	resolver := xsd.NewDocResolver(p.fetcher, p.flattener, p.downloadDeps, p.log)
	g := p.newContext(doc, nil, resolver)
	if loc := node.Options.SchemaLocation; loc != "" {
		imported, err := resolver.Resolve(ctx, loc)
		if err != nil {
			return nil, fmt.Errorf("xsd parser: reload schema %q: %w", loc, err)
		}
		g = g.forDoc(imported, loc)
	}
	return g, nil
}

// declarationAt walks a stored xsd xpath back to the schema declaration it
// was generated from. Intermediate segments are always element steps; the
// final one is an attribute when wantAttr is set.
func (p *Parser) declarationAt(ctx context.Context, g *genContext, xsdPath string, wantAttr bool) (*xmltree.Element, *genContext, error) {
	segments := strings.Split(strings.Trim(xsdPath, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return nil, g, fmt.Errorf("xsd parser: node has no schema path")
	}

	var current *xmltree.Element
	for _, el := range xsd.ChildrenNamed(g.doc, "element") {
		if el.Attr("", "name") == segments[0] {
			current = el
			break
		}
	}
	if current == nil {
		// Synthetic roots hang directly on a global type.
		current = findNamedTypeIn(g.doc, segments[0])
	}
	if current == nil {
		return nil, g, fmt.Errorf("%w: global declaration %q", xsd.ErrNotFound, segments[0])
	}

	for i := 1; i < len(segments); i++ {
		scope, g2, err := p.contentTypeOf(ctx, g, current)
		if err != nil {
			return nil, g, err
		}
		g = g2
		attr := wantAttr && i == len(segments)-1
		decl, g2, err := p.searchDecl(ctx, g, scope, segments[i], attr)
		if err != nil {
			return nil, g, err
		}
		if decl == nil {
			return nil, g, fmt.Errorf("%w: %q under %q", xsd.ErrNotFound, segments[i], segments[i-1])
		}
		current, g = decl, g2
	}
	return current, g, nil
}

// particleAt resolves the owning element of an xsd xpath and returns the
// first matching group particle of its content model.
func (p *Parser) particleAt(ctx context.Context, g *genContext, xsdPath string, kinds ...string) (*xmltree.Element, *genContext, error) {
	decl, g, err := p.declarationAt(ctx, g, xsdPath, false)
	if err != nil {
		return nil, g, err
	}
	scope, g, err := p.contentTypeOf(ctx, g, decl)
	if err != nil {
		return nil, g, err
	}
	particle := findParticle(scope, kinds...)
	if particle == nil {
		return nil, g, fmt.Errorf("%w: %s group under %q", xsd.ErrNotFound, strings.Join(kinds, "/"), xsdPath)
	}
	return particle, g, nil
}

// contentTypeOf returns the type element whose content model declares an
// element's children, resolving named and imported types as needed.
func (p *Parser) contentTypeOf(ctx context.Context, g *genContext, decl *xmltree.Element) (*xmltree.Element, *genContext, error) {
	switch decl.Name.Local {
	case "complexType", "simpleType":
		return decl, g, nil
	}
	tr, err := xsd.ResolveType(ctx, decl, g.doc, "type", g.resolver)
	if err != nil {
		return nil, g, fmt.Errorf("xsd parser: resolve type of %q: %w", decl.Attr("", "name"), err)
	}
	if tr.Doc != g.doc {
		g = g.forDoc(tr.Doc, tr.SchemaLocation)
	}
	return tr.Type, g, nil
}

// searchDecl looks for a named element or attribute declaration inside a
// type's content model, descending through group particles and derivation
// wrappers, including extension base types.
func (p *Parser) searchDecl(ctx context.Context, g *genContext, scope *xmltree.Element, name string, wantAttr bool) (*xmltree.Element, *genContext, error) {
	for i := range scope.Children {
		c := &scope.Children[i]
		if c.Name.Space != xsd.Namespace {
			continue
		}
		switch c.Name.Local {
		case "attribute":
			if !wantAttr {
				continue
			}
			if c.Attr("", "name") == name {
				return c, g, nil
			}
			if ref := c.Attr("", "ref"); ref != "" && localPart(ref) == name {
				return p.resolveDeclRef(ctx, g, ref, "attribute")
			}
		case "element":
			if wantAttr {
				continue
			}
			if c.Attr("", "name") == name {
				return c, g, nil
			}
			if ref := c.Attr("", "ref"); ref != "" && localPart(ref) == name {
				return p.resolveDeclRef(ctx, g, ref, "element")
			}
		case "sequence", "choice", "all", "complexContent", "simpleContent", "restriction":
			decl, g2, err := p.searchDecl(ctx, g, c, name, wantAttr)
			if err != nil || decl != nil {
				return decl, g2, err
			}
		case "extension":
			decl, g2, err := p.searchDecl(ctx, g, c, name, wantAttr)
			if err != nil || decl != nil {
				return decl, g2, err
			}
			if base := c.Attr("", "base"); base != "" {
				resolved := c.ResolveDefault(base, g.targetNS)
				if !xsd.IsBuiltin(resolved) {
					if baseType := findNamedTypeIn(g.doc, resolved.Local); baseType != nil {
						decl, g2, err := p.searchDecl(ctx, g, baseType, name, wantAttr)
						if err != nil || decl != nil {
							return decl, g2, err
						}
					}
				}
			}
		}
	}
	return nil, g, nil
}

func (p *Parser) resolveDeclRef(ctx context.Context, g *genContext, ref, tag string) (*xmltree.Element, *genContext, error) {
	target, doc, location, err := xsd.ResolveRef(ctx, g.doc, ref, tag, g.resolver)
	if err != nil {
		return nil, g, err
	}
	if doc != g.doc {
		g = g.forDoc(doc, location)
	}
	return target, g, nil
}

// findParticle returns the first group particle of one of the given kinds
// inside a type element, looking through derivation wrappers.
func findParticle(scope *xmltree.Element, kinds ...string) *xmltree.Element {
	for i := range scope.Children {
		c := &scope.Children[i]
		if c.Name.Space != xsd.Namespace {
			continue
		}
		for _, kind := range kinds {
			if c.Name.Local == kind {
				return c
			}
		}
		switch c.Name.Local {
		case "complexContent", "simpleContent", "extension", "restriction":
			if found := findParticle(c, kinds...); found != nil {
				return found
			}
		}
	}
	return nil
}

func localPart(ref string) string {
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
