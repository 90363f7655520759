package parser

import (
	"context"
	"errors"

	"aqwari.net/xml/xmltree"

	"github.com/goliatone/go-xsdform/internal/xsd"
	"github.com/goliatone/go-xsdform/pkg/formtree"
)

// generateType resolves an element/attribute declaration's type and
// dispatches into the matching construct generator. Unresolvable types
// degrade to a plain input; a disabled-but-needed download stays fatal.
func (p *Parser) generateType(ctx context.Context, g *genContext, el *xmltree.Element, parent *formtree.Node, iv instVal, info map[string]string, xsdPath, xmlPath string, isAttr bool) error {
	tr, err := xsd.ResolveType(ctx, el, g.doc, "type", g.resolver)
	if err != nil {
		if errors.Is(err, xsd.ErrDownloadDisabled) {
			return err
		}
		if !errors.Is(err, xsd.ErrNoUserType) {
			p.log.V(1).Info("type not found, rendering plain input", "element", el.Attr("", "name"), "reason", err.Error())
		}
		return p.generateInput(g, el, parent, iv, info, xsdPath, xmlPath)
	}

	if tr.Doc != g.doc {
		g = g.forDoc(tr.Doc, tr.SchemaLocation)
	}
	typeEl := tr.Type

	if typeName := typeEl.Attr("", "name"); typeName != "" && !isAttr {
		if exts := xsd.ExtensionsOf(g.doc, typeName); len(exts) > 0 {
			includeBase := p.complexImplicitBase
			if typeEl.Name.Local == "simpleType" {
				includeBase = p.implicitExtensionBase
			}
			return p.generateChoiceExtensions(ctx, g, typeEl, exts, parent, iv, xsdPath, xmlPath, includeBase)
		}
	}

	switch typeEl.Name.Local {
	case "simpleType":
		return p.generateSimpleType(ctx, g, typeEl, parent, iv, xsdPath, xmlPath)
	case "complexType":
		return p.generateComplexType(ctx, g, typeEl, parent, iv, xsdPath, xmlPath)
	default:
		p.log.V(1).Info("unsupported type construct", "tag", typeEl.Name.Local)
		return p.generateInput(g, el, parent, iv, info, xsdPath, xmlPath)
	}
}

// generateInput emits the plain leaf carrying the occurrence's scalar
// value: instance data while editing, otherwise the schema's default or
// fixed value (or a default app-info directive).
func (p *Parser) generateInput(g *genContext, el *xmltree.Element, parent *formtree.Node, iv instVal, info map[string]string, xsdPath, xmlPath string) error {
	input, err := p.newNode(g, formtree.TagInput)
	if err != nil {
		return err
	}
	input.Options.XSDPath = xsdPath
	input.Options.XMLPath = xmlPath

	switch {
	case iv.has:
		input.Value = iv.text()
	case el != nil && el.Attr("", "fixed") != "":
		input.Options.Fixed = el.Attr("", "fixed")
		input.Value = input.Options.Fixed
	case el != nil && el.Attr("", "default") != "":
		input.Value = el.Attr("", "default")
	case info[xsd.AppInfoDefault] != "":
		input.Value = info[xsd.AppInfoDefault]
	}
	parent.Append(input)
	return nil
}

func (p *Parser) generateSimpleType(ctx context.Context, g *genContext, typeEl *xmltree.Element, parent *formtree.Node, iv instVal, xsdPath, xmlPath string) error {
	node, err := p.newNode(g, formtree.TagSimpleType)
	if err != nil {
		return err
	}
	if p.storeType {
		node.Options.TypeName = typeEl.Attr("", "name")
	}
	node.Options.XSDPath = xsdPath
	node.Options.XMLPath = xmlPath
	parent.Append(node)

	if restriction := xsd.FirstChildNamed(typeEl, "restriction"); restriction != nil {
		return p.generateRestriction(ctx, g, restriction, node, iv, xsdPath, xmlPath)
	}
	if list := xsd.FirstChildNamed(typeEl, "list"); list != nil {
		listNode, err := p.newNode(g, formtree.TagList)
		if err != nil {
			return err
		}
		node.Append(listNode)
		return p.generateInput(g, nil, listNode, iv, nil, xsdPath, xmlPath)
	}
	if union := xsd.FirstChildNamed(typeEl, "union"); union != nil {
		unionNode, err := p.newNode(g, formtree.TagUnion)
		if err != nil {
			return err
		}
		node.Append(unionNode)
		return p.generateInput(g, nil, unionNode, iv, nil, xsdPath, xmlPath)
	}
	return p.generateInput(g, nil, node, iv, nil, xsdPath, xmlPath)
}

// generateRestriction emits an enumeration select when facets include
// xs:enumeration, otherwise a constrained plain input.
func (p *Parser) generateRestriction(ctx context.Context, g *genContext, restr *xmltree.Element, parent *formtree.Node, iv instVal, xsdPath, xmlPath string) error {
	node, err := p.newNode(g, formtree.TagRestriction)
	if err != nil {
		return err
	}
	node.Options.XSDPath = xsdPath
	node.Options.XMLPath = xmlPath
	parent.Append(node)

	enums := xsd.ChildrenNamed(restr, "enumeration")
	if len(enums) == 0 {
		return p.generateInput(g, nil, node, iv, nil, xsdPath, xmlPath)
	}

	node.Value = iv.text()
	for _, enum := range enums {
		option, err := p.newNode(g, formtree.TagEnumeration)
		if err != nil {
			return err
		}
		option.Value = enum.Attr("", "value")
		node.Append(option)
	}
	return nil
}

func (p *Parser) generateComplexType(ctx context.Context, g *genContext, typeEl *xmltree.Element, parent *formtree.Node, iv instVal, xsdPath, xmlPath string) error {
	node, err := p.newNode(g, formtree.TagComplexType)
	if err != nil {
		return err
	}
	if p.storeType {
		node.Options.TypeName = typeEl.Attr("", "name")
	}
	node.Options.XSDPath = xsdPath
	node.Options.XMLPath = xmlPath
	parent.Append(node)

	if sc := xsd.FirstChildNamed(typeEl, "simpleContent"); sc != nil {
		return p.generateSimpleContent(ctx, g, sc, node, iv, xsdPath, xmlPath)
	}
	if cc := xsd.FirstChildNamed(typeEl, "complexContent"); cc != nil {
		return p.generateComplexContent(ctx, g, cc, node, iv, xsdPath, xmlPath)
	}
	return p.generateTypeBody(ctx, g, typeEl, node, iv, xsdPath, xmlPath)
}

// generateTypeBody emits a complex type's direct attribute set and its
// single particle (sequence, choice, or all — the latter treated as an
// unordered sequence). xs:group and xs:any content is unimplemented:
// logged and skipped.
func (p *Parser) generateTypeBody(ctx context.Context, g *genContext, typeEl *xmltree.Element, parent *formtree.Node, iv instVal, xsdPath, xmlPath string) error {
	for _, attrEl := range xsd.ChildrenNamed(typeEl, "attribute") {
		attrNode, err := p.generateElement(ctx, g, attrEl, elemParams{
			isAttribute: true,
			xsdBase:     xsdPath,
			xmlBase:     xmlPath,
		})
		if err != nil {
			return err
		}
		if attrNode != nil {
			parent.Append(attrNode)
		}
	}

	if seq := xsd.FirstChildNamed(typeEl, "sequence"); seq != nil {
		return p.generateSequence(ctx, g, seq, parent, iv, xsdPath, xmlPath)
	}
	if all := xsd.FirstChildNamed(typeEl, "all"); all != nil {
		return p.generateSequence(ctx, g, all, parent, iv, xsdPath, xmlPath)
	}
	if choice := xsd.FirstChildNamed(typeEl, "choice"); choice != nil {
		return p.generateChoice(ctx, g, choice, parent, iv, xsdPath, xmlPath)
	}
	for _, unsupported := range []string{"group", "any", "anyAttribute"} {
		if xsd.FirstChildNamed(typeEl, unsupported) != nil {
			p.log.V(1).Info("unimplemented content model, skipping", "construct", unsupported)
		}
	}
	return nil
}

func (p *Parser) generateSimpleContent(ctx context.Context, g *genContext, scEl *xmltree.Element, parent *formtree.Node, iv instVal, xsdPath, xmlPath string) error {
	node, err := p.newNode(g, formtree.TagSimpleContent)
	if err != nil {
		return err
	}
	parent.Append(node)

	if ext := xsd.FirstChildNamed(scEl, "extension"); ext != nil {
		extNode, err := p.newNode(g, formtree.TagExtension)
		if err != nil {
			return err
		}
		node.Append(extNode)
		for _, attrEl := range xsd.ChildrenNamed(ext, "attribute") {
			attrNode, err := p.generateElement(ctx, g, attrEl, elemParams{
				isAttribute: true,
				xsdBase:     xsdPath,
				xmlBase:     xmlPath,
			})
			if err != nil {
				return err
			}
			if attrNode != nil {
				extNode.Append(attrNode)
			}
		}
		return p.generateInput(g, nil, extNode, iv, nil, xsdPath, xmlPath)
	}
	if restr := xsd.FirstChildNamed(scEl, "restriction"); restr != nil {
		return p.generateRestriction(ctx, g, restr, node, iv, xsdPath, xmlPath)
	}
	return p.generateInput(g, nil, node, iv, nil, xsdPath, xmlPath)
}

func (p *Parser) generateComplexContent(ctx context.Context, g *genContext, ccEl *xmltree.Element, parent *formtree.Node, iv instVal, xsdPath, xmlPath string) error {
	node, err := p.newNode(g, formtree.TagComplexContent)
	if err != nil {
		return err
	}
	parent.Append(node)

	if ext := xsd.FirstChildNamed(ccEl, "extension"); ext != nil {
		return p.generateExtension(ctx, g, ext, node, iv, xsdPath, xmlPath)
	}
	if restr := xsd.FirstChildNamed(ccEl, "restriction"); restr != nil {
		restrNode, err := p.newNode(g, formtree.TagRestriction)
		if err != nil {
			return err
		}
		node.Append(restrNode)
		return p.generateTypeBody(ctx, g, restr, restrNode, iv, xsdPath, xmlPath)
	}
	return nil
}

// generateExtension flattens base-type content ahead of the extending
// type's own particle, mirroring how the instance document lays fields
// out.
func (p *Parser) generateExtension(ctx context.Context, g *genContext, ext *xmltree.Element, parent *formtree.Node, iv instVal, xsdPath, xmlPath string) error {
	node, err := p.newNode(g, formtree.TagExtension)
	if err != nil {
		return err
	}
	parent.Append(node)

	base := ext.Attr("", "base")
	if base != "" {
		resolved := ext.ResolveDefault(base, g.targetNS)
		if !xsd.IsBuiltin(resolved) {
			baseType := findNamedTypeIn(g.doc, resolved.Local)
			if baseType == nil {
				p.log.V(1).Info("extension base not found, continuing with own content", "base", base)
			} else if err := p.generateTypeBody(ctx, g, baseType, node, iv, xsdPath, xmlPath); err != nil {
				return err
			}
		}
	}
	return p.generateTypeBody(ctx, g, ext, node, iv, xsdPath, xmlPath)
}

// generateChoiceExtensions synthesizes the implicit choice over a named
// type and every type extension-derived from it, mirroring xsi:type
// substitution. The selected alternative follows the instance's xsi:type
// attribute while editing.
func (p *Parser) generateChoiceExtensions(ctx context.Context, g *genContext, baseType *xmltree.Element, exts []*xmltree.Element, parent *formtree.Node, iv instVal, xsdPath, xmlPath string, includeBase bool) error {
	choice, err := p.newNode(g, formtree.TagChoice)
	if err != nil {
		return err
	}
	choice.Options.Min, choice.Options.Max = 1, 1
	choice.Options.XSDPath = xsdPath
	choice.Options.XMLPath = xmlPath
	parent.Append(choice)

	iter, err := p.newNode(g, formtree.TagChoiceIter)
	if err != nil {
		return err
	}
	choice.Append(iter)

	candidates := exts
	if includeBase {
		candidates = append([]*xmltree.Element{baseType}, exts...)
	}

	selectedName := ""
	if iv.el != nil {
		if xsiType := iv.el.Attr(xsd.InstanceNamespace, "type"); xsiType != "" {
			selectedName = iv.el.Resolve(xsiType).Local
		}
	}
	selectedIdx := 0
	if selectedName != "" {
		for i, candidate := range candidates {
			if candidate.Attr("", "name") == selectedName {
				selectedIdx = i
				break
			}
		}
	}

	for i, candidate := range candidates {
		alt, err := p.generateTypeAlternative(ctx, g, candidate, iv, xsdPath, xmlPath, i == selectedIdx)
		if err != nil {
			return err
		}
		iter.Append(alt)
		if i == selectedIdx {
			iter.Value = alt.ID
		}
	}
	return nil
}

// generateTypeAlternative produces one alternative of an implicit
// extension choice: deep-generated when selected, an addressable shell
// otherwise (under min-tree).
func (p *Parser) generateTypeAlternative(ctx context.Context, g *genContext, typeEl *xmltree.Element, iv instVal, xsdPath, xmlPath string, selected bool) (*formtree.Node, error) {
	tag := formtree.TagComplexType
	if typeEl.Name.Local == "simpleType" {
		tag = formtree.TagSimpleType
	}
	node, err := p.newNode(g, tag)
	if err != nil {
		return nil, err
	}
	node.Options.TypeName = typeEl.Attr("", "name")
	node.Options.XSDPath = xsdPath
	node.Options.XMLPath = xmlPath

	if !selected && p.minTree && !g.force {
		return node, nil
	}
	return node, p.fillTypeAlternative(ctx, g, typeEl, node, iv, xsdPath, xmlPath)
}

// fillTypeAlternative deep-generates the content of one extension-choice
// alternative into an existing (possibly shell) node.
func (p *Parser) fillTypeAlternative(ctx context.Context, g *genContext, typeEl *xmltree.Element, node *formtree.Node, iv instVal, xsdPath, xmlPath string) error {
	if node.Tag == formtree.TagSimpleType {
		if restriction := xsd.FirstChildNamed(typeEl, "restriction"); restriction != nil {
			return p.generateRestriction(ctx, g, restriction, node, iv, xsdPath, xmlPath)
		}
		return p.generateInput(g, nil, node, iv, nil, xsdPath, xmlPath)
	}

	if sc := xsd.FirstChildNamed(typeEl, "simpleContent"); sc != nil {
		return p.generateSimpleContent(ctx, g, sc, node, iv, xsdPath, xmlPath)
	}
	if cc := xsd.FirstChildNamed(typeEl, "complexContent"); cc != nil {
		return p.generateComplexContent(ctx, g, cc, node, iv, xsdPath, xmlPath)
	}
	return p.generateTypeBody(ctx, g, typeEl, node, iv, xsdPath, xmlPath)
}

func findNamedTypeIn(doc *xmltree.Element, local string) *xmltree.Element {
	for _, kind := range []string{"complexType", "simpleType"} {
		for _, candidate := range xsd.ChildrenNamed(doc, kind) {
			if candidate.Attr("", "name") == local {
				return candidate
			}
		}
	}
	return nil
}
