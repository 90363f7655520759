package parser

import (
	"context"

	"aqwari.net/xml/xmltree"

	"github.com/goliatone/go-xsdform/internal/xsd"
	"github.com/goliatone/go-xsdform/pkg/formtree"
)

func (p *Parser) generateSequence(ctx context.Context, g *genContext, seqEl *xmltree.Element, parent *formtree.Node, iv instVal, xsdPath, xmlPath string) error {
	node, err := p.newNode(g, formtree.TagSequence)
	if err != nil {
		return err
	}
	min, max := xsd.Occurrences(seqEl, false)
	node.Options.Min, node.Options.Max = min, max
	node.Options.XSDPath = xsdPath
	node.Options.XMLPath = xmlPath
	parent.Append(node)

	count := p.particleCount(g, seqEl, min, max, xmlPath)
	for i := 0; i < count; i++ {
		iter, err := p.newNode(g, formtree.TagSequenceIter)
		if err != nil {
			return err
		}
		iter.Options.XSDPath = xsdPath
		iter.Options.XMLPath = xmlPath

		if err := p.generateParticleChildren(ctx, g, seqEl, iter, iv, xsdPath, xmlPath); err != nil {
			return err
		}
		// Under min-tree an iteration whose content is entirely suppressed
		// (all declarations optional, none materialized) stays out of the
		// tree; the slot reappears on demand.
		if p.minTree && !g.force && !g.editing && !iterationHasContent(iter) {
			continue
		}
		node.Append(iter)
	}
	return nil
}

func (p *Parser) generateChoice(ctx context.Context, g *genContext, choiceEl *xmltree.Element, parent *formtree.Node, iv instVal, xsdPath, xmlPath string) error {
	node, err := p.newNode(g, formtree.TagChoice)
	if err != nil {
		return err
	}
	min, max := xsd.Occurrences(choiceEl, false)
	node.Options.Min, node.Options.Max = min, max
	node.Options.XSDPath = xsdPath
	node.Options.XMLPath = xmlPath
	parent.Append(node)

	count := p.particleCount(g, choiceEl, min, max, xmlPath)
	for i := 0; i < count; i++ {
		iter, err := p.newNode(g, formtree.TagChoiceIter)
		if err != nil {
			return err
		}
		iter.Options.XSDPath = xsdPath
		iter.Options.XMLPath = xmlPath
		node.Append(iter)

		selectedIdx := p.selectedAlternative(g, choiceEl, xmlPath)
		particles := particleChildren(choiceEl)
		for j, particle := range particles {
			alt, err := p.generateParticle(ctx, g, particle, iv, xsdPath, xmlPath, j != selectedIdx)
			if err != nil {
				return err
			}
			if alt == nil {
				continue
			}
			iter.Append(alt)
			if j == selectedIdx {
				iter.Value = alt.ID
			}
		}
		if iter.Value == "" && len(iter.Children) > 0 {
			iter.Value = iter.Children[0].ID
		}
	}
	return nil
}

// iterationHasContent reports whether any declaration inside the iteration
// materialized at least one occurrence. Empty shells alone do not count.
func iterationHasContent(iter *formtree.Node) bool {
	for _, child := range iter.Children {
		switch child.Tag {
		case formtree.TagElement, formtree.TagAttribute, formtree.TagSequence, formtree.TagChoice:
			if len(child.Children) > 0 {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// particleCount is the occurrence count of an unnamed sequence/choice
// particle. While editing it falls back to lookupOccurs; otherwise min-tree
// rules apply, with required particles always getting one visible slot.
func (p *Parser) particleCount(g *genContext, particle *xmltree.Element, min, max int, xmlPath string) int {
	var count int
	switch {
	case g.editing:
		count = p.lookupOccurs(g, particle, xmlPath)
		if count == 0 && min >= 1 {
			count = 1
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
	return count
}

// lookupOccurs estimates how many times an unnamed sequence/choice occurs
// in the instance: it counts matches of every possible child element name
// at this structural position and takes the maximum.
//
// Known limitation inherited by design: when sibling content outside the
// particle reuses an element name that also appears inside it, the count
// can be wrong. The documented intent is preserved rather than silently
// corrected; see the design notes.
func (p *Parser) lookupOccurs(g *genContext, particle *xmltree.Element, xmlPath string) int {
	most := 0
	for _, name := range candidateElementNames(particle) {
		path := xsd.BuildXPath(xmlPath, "element", name, g.targetNS, g.nsPrefix, false, g.elementsQual)
		if n := len(xsd.FindElements(g.instance, xsd.StripIndex(path), g.namespaces)); n > most {
			most = n
		}
	}
	return most
}

// selectedAlternative picks which branch of a choice is active: while
// editing, the first alternative with instance data present; otherwise the
// first candidate.
func (p *Parser) selectedAlternative(g *genContext, choiceEl *xmltree.Element, xmlPath string) int {
	if !g.editing || g.instance == nil {
		return 0
	}
	for i, particle := range particleChildren(choiceEl) {
		for _, name := range candidateElementNames(particle) {
			path := xsd.BuildXPath(xmlPath, "element", name, g.targetNS, g.nsPrefix, false, g.elementsQual)
			if len(xsd.FindElements(g.instance, xsd.StripIndex(path), g.namespaces)) > 0 {
				return i
			}
		}
	}
	return 0
}

// generateParticle dispatches one child particle of a choice. Non-selected
// alternatives become shells under min-tree.
func (p *Parser) generateParticle(ctx context.Context, g *genContext, particle *xmltree.Element, iv instVal, xsdPath, xmlPath string, shell bool) (*formtree.Node, error) {
	switch particle.Name.Local {
	case "element":
		return p.generateElement(ctx, g, particle, elemParams{
			xsdBase:   xsdPath,
			xmlBase:   xmlPath,
			shellOnly: shell,
		})
	case "sequence", "choice":
		// Nested anonymous particles inside a choice alternative get a
		// wrapper so selection still addresses a single child node.
		holder, err := p.newNode(g, formtree.Tag(particle.Name.Local))
		if err != nil {
			return nil, err
		}
		holder.Options.XSDPath = xsdPath
		holder.Options.XMLPath = xmlPath
		if shell && p.minTree && !g.force {
			return holder, nil
		}
		var genErr error
		if particle.Name.Local == "sequence" {
			genErr = p.generateParticleChildren(ctx, g, particle, holder, iv, xsdPath, xmlPath)
		} else {
			genErr = p.generateChoice(ctx, g, particle, holder, iv, xsdPath, xmlPath)
		}
		return holder, genErr
	default:
		p.log.V(1).Info("unimplemented particle, skipping", "construct", particle.Name.Local)
		return nil, nil
	}
}

// generateParticleChildren walks a sequence's content in order.
func (p *Parser) generateParticleChildren(ctx context.Context, g *genContext, seqEl *xmltree.Element, parent *formtree.Node, iv instVal, xsdPath, xmlPath string) error {
	for _, particle := range particleChildren(seqEl) {
		switch particle.Name.Local {
		case "element":
			child, err := p.generateElement(ctx, g, particle, elemParams{
				xsdBase: xsdPath,
				xmlBase: xmlPath,
			})
			if err != nil {
				return err
			}
			if child != nil {
				parent.Append(child)
			}
		case "sequence":
			if err := p.generateSequence(ctx, g, particle, parent, iv, xsdPath, xmlPath); err != nil {
				return err
			}
		case "choice":
			if err := p.generateChoice(ctx, g, particle, parent, iv, xsdPath, xmlPath); err != nil {
				return err
			}
		default:
			p.log.V(1).Info("unimplemented particle, skipping", "construct", particle.Name.Local)
		}
	}
	return nil
}

// particleChildren returns the schema children that participate in content
// model layout, skipping annotations.
func particleChildren(el *xmltree.Element) []*xmltree.Element {
	var out []*xmltree.Element
	for i := range el.Children {
		c := &el.Children[i]
		if c.Name.Space != xsd.Namespace {
			continue
		}
		switch c.Name.Local {
		case "element", "sequence", "choice", "group", "any":
			out = append(out, c)
		}
	}
	return out
}
