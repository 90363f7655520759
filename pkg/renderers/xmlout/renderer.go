// Package xmlout serializes a form-structure tree back into an XML
// document. Every element occurrence is assembled from three channels the
// subtree contributes: attribute text, inner content, and an optional outer
// replacement produced by modules that manage their own repeated wrapper.
package xmlout

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/goliatone/go-xsdform/pkg/formtree"
	"github.com/goliatone/go-xsdform/pkg/modules"
	"github.com/goliatone/go-xsdform/pkg/render"
)

// InstanceNamespace is the xsi namespace declared when any implicit
// extension selection serializes as an xsi:type attribute.
const InstanceNamespace = "http://www.w3.org/2001/XMLSchema-instance"

type Option func(*Renderer)

// WithCatalog injects the module catalog widgets serialize through.
func WithCatalog(catalog *modules.Catalog) Option {
	return func(r *Renderer) { r.catalog = catalog }
}

// WithLogger injects the logger used for skipped-subtree warnings.
func WithLogger(log logr.Logger) Option {
	return func(r *Renderer) { r.log = log }
}

// Renderer is the XML serialization renderer.
type Renderer struct {
	catalog *modules.Catalog
	log     logr.Logger
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the XML renderer applying any provided options.
func New(options ...Option) *Renderer {
	r := &Renderer{log: logr.Discard()}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Renderer) Name() string {
	return "xml"
}

func (r *Renderer) ContentType() string {
	return "application/xml; charset=utf-8"
}

func (r *Renderer) Render(ctx context.Context, node *formtree.Node, options render.RenderOptions) ([]byte, []render.Warning, error) {
	if node == nil {
		return nil, nil, fmt.Errorf("xml renderer: node is required")
	}
	w := &walker{renderer: r, options: options}

	var body string
	switch node.Tag {
	case formtree.TagElement:
		occurrences, err := w.renderElement(ctx, node, "", true)
		if err != nil {
			return nil, nil, err
		}
		body = strings.Join(occurrences, "")
	case formtree.TagChoice:
		// An implicit root choice serializes only its active alternative.
		parts, err := w.collectChoice(ctx, node, "", true)
		if err != nil {
			return nil, nil, err
		}
		body = strings.Join(parts.elements, "")
	default:
		if !options.Partial {
			return nil, nil, fmt.Errorf("xml renderer: cannot serialize a %s as document root", node.Tag)
		}
		parts, err := w.collect(ctx, node, "", false)
		if err != nil {
			return nil, nil, err
		}
		body = strings.Join(parts.elements, "") + w.escapeValue(parts.inner)
	}

	var out strings.Builder
	if !options.Partial {
		out.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	}
	out.WriteString(body)

	for _, warning := range w.warnings {
		r.log.V(1).Info("skipped unrecognized node", "node", warning.NodeID, "tag", warning.Tag)
	}
	return []byte(out.String()), w.warnings, nil
}

type walker struct {
	renderer *Renderer
	options  render.RenderOptions
	warnings []render.Warning
	usedXsi  bool
}

// parts is what a subtree contributes to its owning element occurrence.
type parts struct {
	attrs    []string // serialized attribute fragments, leading space included
	inner    string   // text content
	elements []string // serialized child elements
	outer    string   // full replacement emitted by a multiple module
}

func (p *parts) merge(other parts) {
	p.attrs = append(p.attrs, other.attrs...)
	p.inner += other.inner
	p.elements = append(p.elements, other.elements...)
	if other.outer != "" {
		p.outer = other.outer
	}
}

func (w *walker) warn(node *formtree.Node, format string, args ...any) {
	w.warnings = append(w.warnings, render.Warning{
		NodeID:  node.ID,
		Tag:     node.Tag,
		Message: fmt.Sprintf(format, args...),
	})
}

// renderElement serializes every occurrence of an element node. The start
// tag is assembled after the subtree is collected so attribute channels and
// the root's deferred xsi declaration are complete.
func (w *walker) renderElement(ctx context.Context, node *formtree.Node, inheritedNS string, root bool) ([]string, error) {
	name, prefix := elementName(node)
	var occurrences []string

	for _, iter := range node.Iterations() {
		if iter.Tag != formtree.TagElemIter {
			w.warn(iter, "unexpected %q under element", iter.Tag)
			continue
		}
		// Placeholder slots carry no instance data.
		if iter.Options.Use == "empty" {
			continue
		}
		collected, err := w.collect(ctx, iter, node.Options.Xmlns, false)
		if err != nil {
			return nil, err
		}
		if collected.outer != "" {
			occurrences = append(occurrences, collected.outer)
			continue
		}

		var b strings.Builder
		b.WriteByte('<')
		b.WriteString(qualify(prefix, name))
		if ns := node.Options.Xmlns; ns != "" && ns != inheritedNS {
			if prefix != "" {
				fmt.Fprintf(&b, ` xmlns:%s="%s"`, prefix, escapeAttr(ns))
			} else {
				fmt.Fprintf(&b, ` xmlns="%s"`, escapeAttr(ns))
			}
		}
		if root && w.usedXsi {
			fmt.Fprintf(&b, ` xmlns:xsi="%s"`, InstanceNamespace)
		}
		for _, attr := range collected.attrs {
			b.WriteString(attr)
		}

		content := w.escapeValue(collected.inner) + strings.Join(collected.elements, "")
		if content == "" {
			b.WriteString("/>")
		} else {
			b.WriteByte('>')
			b.WriteString(content)
			b.WriteString("</")
			b.WriteString(qualify(prefix, name))
			b.WriteByte('>')
		}
		occurrences = append(occurrences, b.String())
	}
	return occurrences, nil
}

// collect gathers the three output channels a node's subtree contributes to
// its owning element occurrence.
func (w *walker) collect(ctx context.Context, node *formtree.Node, ownerNS string, includeSelf bool) (parts, error) {
	var out parts

	visit := func(child *formtree.Node) error {
		collected, err := w.collectNode(ctx, child, ownerNS)
		if err != nil {
			return err
		}
		out.merge(collected)
		return nil
	}

	if includeSelf {
		if err := visit(node); err != nil {
			return parts{}, err
		}
		return out, nil
	}
	for _, child := range node.Children {
		if err := visit(child); err != nil {
			return parts{}, err
		}
	}
	return out, nil
}

func (w *walker) collectNode(ctx context.Context, node *formtree.Node, ownerNS string) (parts, error) {
	switch node.Tag {
	case formtree.TagElement:
		occurrences, err := w.renderElement(ctx, node, ownerNS, false)
		if err != nil {
			return parts{}, err
		}
		return parts{elements: occurrences}, nil

	case formtree.TagAttribute:
		return w.collectAttribute(ctx, node, ownerNS)

	case formtree.TagInput:
		// Raw here; the inner channel is escaped once, at final placement,
		// so values landing in an attribute are not escaped twice.
		return parts{inner: node.Value}, nil

	case formtree.TagRestriction:
		return w.collectRestriction(ctx, node, ownerNS)

	case formtree.TagModule:
		return w.collectModule(ctx, node)

	case formtree.TagSequence:
		var out parts
		for _, iter := range node.Iterations() {
			collected, err := w.collect(ctx, iter, ownerNS, false)
			if err != nil {
				return parts{}, err
			}
			out.merge(collected)
		}
		return out, nil

	case formtree.TagChoice:
		return w.collectChoice(ctx, node, ownerNS, false)

	case formtree.TagComplexType, formtree.TagSimpleType, formtree.TagSimpleContent,
		formtree.TagComplexContent, formtree.TagExtension, formtree.TagList, formtree.TagUnion:
		return w.collect(ctx, node, ownerNS, false)

	default:
		w.warn(node, "unrecognized tag %q", node.Tag)
		return parts{}, nil
	}
}

// collectChoice serializes at most one alternative per iteration: the one
// the iteration's value selects. An implicit extension selection adds an
// xsi:type attribute for the chosen subtype.
func (w *walker) collectChoice(ctx context.Context, node *formtree.Node, ownerNS string, root bool) (parts, error) {
	var out parts
	for _, iter := range node.Iterations() {
		if iter.Tag != formtree.TagChoiceIter {
			w.warn(iter, "unexpected %q under choice", iter.Tag)
			continue
		}
		selected := iter.Child(iter.Value)
		if selected == nil {
			continue
		}
		if typeName := selected.Options.TypeName; typeName != "" &&
			(selected.Tag == formtree.TagComplexType || selected.Tag == formtree.TagSimpleType) {
			w.usedXsi = true
			out.attrs = append(out.attrs, fmt.Sprintf(` xsi:type="%s"`, escapeAttr(typeName)))
		}
		if root && selected.Tag == formtree.TagElement {
			occurrences, err := w.renderElement(ctx, selected, ownerNS, true)
			if err != nil {
				return parts{}, err
			}
			out.elements = append(out.elements, occurrences...)
			continue
		}
		collected, err := w.collect(ctx, selected, ownerNS, true)
		if err != nil {
			return parts{}, err
		}
		out.merge(collected)
	}
	return out, nil
}

// collectAttribute reduces an attribute node to a serialized attribute
// fragment. Attributes with no materialized occurrence contribute nothing.
func (w *walker) collectAttribute(ctx context.Context, node *formtree.Node, ownerNS string) (parts, error) {
	iters := node.Iterations()
	if len(iters) == 0 {
		return parts{}, nil
	}
	iter := iters[0]
	if iter.Options.Use == "empty" {
		return parts{}, nil
	}

	collected, err := w.collect(ctx, iter, ownerNS, false)
	if err != nil {
		return parts{}, err
	}
	// A module bound to the attribute position contributes through the
	// attrs channel directly.
	if len(collected.attrs) > 0 && collected.inner == "" {
		return parts{attrs: collected.attrs}, nil
	}

	name := node.Value
	switch {
	case attributeQualified(node):
		name = node.Options.NSPrefix + ":" + name
	case node.Options.Xmlns != "" && node.Options.Xmlns != ownerNS:
		// Foreign-namespace attribute with no declared prefix: bind a
		// synthetic one on the owning element.
		return parts{attrs: []string{
			fmt.Sprintf(` xmlns:ns0="%s"`, escapeAttr(node.Options.Xmlns)),
			fmt.Sprintf(` ns0:%s="%s"`, name, escapeAttr(collected.inner)),
		}}, nil
	}
	return parts{attrs: []string{fmt.Sprintf(` %s="%s"`, name, escapeAttr(collected.inner))}}, nil
}

func (w *walker) collectRestriction(ctx context.Context, node *formtree.Node, ownerNS string) (parts, error) {
	for _, child := range node.Children {
		if child.Tag == formtree.TagEnumeration {
			return parts{inner: node.Value}, nil
		}
	}
	return w.collect(ctx, node, ownerNS, false)
}

// collectModule delegates to the registered widget's XML contract. A
// multiple module's outer output replaces the owning element occurrence
// entirely.
func (w *walker) collectModule(ctx context.Context, node *formtree.Node) (parts, error) {
	if w.renderer.catalog == nil {
		return parts{}, fmt.Errorf("xml renderer: module %q: no catalog configured", node.Options.ModuleURL)
	}
	descriptor, ok := w.renderer.catalog.ResolveByPath(node.Options.ModuleURL)
	if !ok {
		return parts{}, fmt.Errorf("xml renderer: module %q is not registered", node.Options.ModuleURL)
	}
	attrs, inner, outer, err := descriptor.Renderer.RenderXML(ctx, node)
	if err != nil {
		return parts{}, fmt.Errorf("xml renderer: module %q: %w", node.Options.ModuleURL, err)
	}
	if node.Options.ModuleMultiple && outer != "" {
		return parts{outer: outer}, nil
	}
	out := parts{inner: inner}
	if attrs != "" {
		if !strings.HasPrefix(attrs, " ") {
			attrs = " " + attrs
		}
		out.attrs = []string{attrs}
	}
	return out, nil
}

func (w *walker) escapeValue(value string) string {
	if !w.options.Escape() {
		return value
	}
	return escapeText(value)
}

// elementName derives the serialized name and prefix from the element's
// stored xpath step: only prefixed (qualified) steps serialize with a
// prefix.
func elementName(node *formtree.Node) (name, prefix string) {
	step := lastStep(node.Options.XMLPath)
	if i := strings.Index(step, ":"); i > 0 && !strings.HasPrefix(step, "*") {
		return node.Value, step[:i]
	}
	return node.Value, ""
}

func attributeQualified(node *formtree.Node) bool {
	return node.Options.NSPrefix != "" && strings.Contains(lastStep(node.Options.XMLPath), ":")
}

func lastStep(path string) string {
	step := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		step = path[i+1:]
	}
	if i := strings.LastIndex(step, "["); i > 0 && strings.HasSuffix(step, "]") && !strings.HasPrefix(step, "*") {
		step = step[:i]
	}
	return strings.TrimPrefix(step, "@")
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + ":" + name
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}
