// Package list renders a form-structure tree as interactive, collapsible
// nested HTML lists. It is the primary editing surface: every node carries
// its identifier as a data attribute so client interactions can address
// targeted regeneration calls.
package list

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-logr/logr"

	"github.com/goliatone/go-xsdform/pkg/formtree"
	"github.com/goliatone/go-xsdform/pkg/modules"
	"github.com/goliatone/go-xsdform/pkg/render"
)

type Option func(*Renderer)

// WithCatalog injects the module catalog widgets render through. A tree
// containing module nodes cannot render without it.
func WithCatalog(catalog *modules.Catalog) Option {
	return func(r *Renderer) { r.catalog = catalog }
}

// WithCollapse marks nested sections collapsed by default.
func WithCollapse(enabled bool) Option {
	return func(r *Renderer) { r.collapse = enabled }
}

// WithLogger injects the logger used for skipped-subtree warnings.
func WithLogger(log logr.Logger) Option {
	return func(r *Renderer) { r.log = log }
}

// Renderer is the interactive list HTML renderer.
type Renderer struct {
	catalog  *modules.Catalog
	collapse bool
	log      logr.Logger
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the list renderer applying any provided options.
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
	return "list"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

func (r *Renderer) Render(ctx context.Context, node *formtree.Node, options render.RenderOptions) ([]byte, []render.Warning, error) {
	if node == nil {
		return nil, nil, fmt.Errorf("list renderer: node is required")
	}
	w := &walker{renderer: r, options: options}

	wrapper := "xsdform"
	if options.Partial {
		wrapper = "xsdform-partial"
	}
	fmt.Fprintf(&w.b, `<ul class="%s" data-node="%s">`, wrapper, html.EscapeString(node.ID))
	if err := w.walk(ctx, node); err != nil {
		return nil, nil, err
	}
	w.b.WriteString(`</ul>`)

	for _, warning := range w.warnings {
		r.log.V(1).Info("skipped unrecognized node", "node", warning.NodeID, "tag", warning.Tag)
	}
	return []byte(w.b.String()), w.warnings, nil
}

type walker struct {
	renderer *Renderer
	options  render.RenderOptions
	b        strings.Builder
	warnings []render.Warning
}

func (w *walker) warn(node *formtree.Node, format string, args ...any) {
	w.warnings = append(w.warnings, render.Warning{
		NodeID:  node.ID,
		Tag:     node.Tag,
		Message: fmt.Sprintf(format, args...),
	})
}

func (w *walker) walk(ctx context.Context, node *formtree.Node) error {
	switch node.Tag {
	case formtree.TagElement, formtree.TagAttribute:
		return w.renderElement(ctx, node)
	case formtree.TagSequence:
		return w.renderSequence(ctx, node)
	case formtree.TagChoice:
		return w.renderChoice(ctx, node)
	case formtree.TagComplexType, formtree.TagSimpleType, formtree.TagSimpleContent,
		formtree.TagComplexContent, formtree.TagExtension, formtree.TagList, formtree.TagUnion:
		return w.walkChildren(ctx, node)
	case formtree.TagElemIter, formtree.TagSequenceIter, formtree.TagChoiceIter:
		// Iteration wrappers reach the walker directly when a regenerated
		// subtree is rendered as a partial.
		return w.walkChildren(ctx, node)
	case formtree.TagRestriction:
		return w.renderRestriction(node)
	case formtree.TagInput:
		w.renderInput(node)
		return nil
	case formtree.TagModule:
		return w.renderModule(ctx, node)
	case formtree.TagError:
		fmt.Fprintf(&w.b, `<li class="xsdform-error">%s</li>`, html.EscapeString(node.Value))
		return nil
	default:
		w.warn(node, "unrecognized tag %q", node.Tag)
		return nil
	}
}

func (w *walker) walkChildren(ctx context.Context, node *formtree.Node) error {
	for _, child := range node.Children {
		if err := w.walk(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

// renderElement emits one labelled section per element/attribute node with
// one block per occurrence and add/delete affordances derived from the
// occurrence bounds.
func (w *walker) renderElement(ctx context.Context, node *formtree.Node) error {
	label := node.Options.Label
	if label == "" {
		label = node.Value
	}
	class := "xsdform-element"
	if node.Tag == formtree.TagAttribute {
		class = "xsdform-attribute"
	}
	if w.renderer.collapse || node.Options.Collapse {
		class += " collapsed"
	}

	fmt.Fprintf(&w.b, `<li class="%s" data-node="%s">`, class, html.EscapeString(node.ID))
	fmt.Fprintf(&w.b, `<span class="xsdform-label">%s</span>`, html.EscapeString(label))
	if tip := node.Options.Tooltip; tip != "" {
		fmt.Fprintf(&w.b, `<span class="xsdform-tooltip" title="%s"></span>`, html.EscapeString(tip))
	}

	iters := node.Iterations()
	w.b.WriteString(`<ul class="xsdform-occurrences">`)
	for _, iter := range iters {
		canDelete := len(iters) > node.Options.Min
		if err := w.renderIteration(ctx, iter, canDelete); err != nil {
			return err
		}
	}
	w.b.WriteString(`</ul>`)

	w.renderAdd(node, len(iters))
	w.b.WriteString(`</li>`)
	return nil
}

func (w *walker) renderIteration(ctx context.Context, iter *formtree.Node, canDelete bool) error {
	fmt.Fprintf(&w.b, `<li class="xsdform-iter" data-node="%s">`, html.EscapeString(iter.ID))
	if err := w.walkChildren(ctx, iter); err != nil {
		return err
	}
	if canDelete {
		fmt.Fprintf(&w.b, `<button type="button" class="xsdform-delete" data-node="%s">&minus;</button>`, html.EscapeString(iter.ID))
	}
	w.b.WriteString(`</li>`)
	return nil
}

// renderAdd emits the add affordance when capacity remains. Unbounded never
// counts as full.
func (w *walker) renderAdd(node *formtree.Node, count int) {
	if node.Options.Max != formtree.Unbounded && count >= node.Options.Max {
		return
	}
	fmt.Fprintf(&w.b, `<button type="button" class="xsdform-add" data-node="%s">+</button>`, html.EscapeString(node.ID))
}

func (w *walker) renderSequence(ctx context.Context, node *formtree.Node) error {
	fmt.Fprintf(&w.b, `<li class="xsdform-sequence" data-node="%s"><ul>`, html.EscapeString(node.ID))
	iters := node.Iterations()
	for _, iter := range iters {
		canDelete := len(iters) > node.Options.Min
		if err := w.renderIteration(ctx, iter, canDelete); err != nil {
			return err
		}
	}
	w.b.WriteString(`</ul>`)
	w.renderAdd(node, len(iters))
	w.b.WriteString(`</li>`)
	return nil
}

// renderChoice emits a selector per iteration with every alternative
// pre-rendered; unselected alternatives stay hidden so switching is a
// client-side toggle until an unmaterialized shell needs the server.
func (w *walker) renderChoice(ctx context.Context, node *formtree.Node) error {
	fmt.Fprintf(&w.b, `<li class="xsdform-choice" data-node="%s">`, html.EscapeString(node.ID))
	iters := node.Iterations()
	for _, iter := range iters {
		if iter.Tag != formtree.TagChoiceIter {
			w.warn(iter, "unexpected %q under choice", iter.Tag)
			continue
		}
		fmt.Fprintf(&w.b, `<select class="xsdform-choice-select" data-node="%s">`, html.EscapeString(iter.ID))
		for _, alt := range iter.Children {
			selected := ""
			if alt.ID == iter.Value {
				selected = ` selected="selected"`
			}
			fmt.Fprintf(&w.b, `<option value="%s"%s>%s</option>`,
				html.EscapeString(alt.ID), selected, html.EscapeString(alternativeLabel(alt)))
		}
		w.b.WriteString(`</select>`)

		for _, alt := range iter.Children {
			hidden := ""
			if alt.ID != iter.Value {
				hidden = ` hidden="hidden"`
			}
			fmt.Fprintf(&w.b, `<ul class="xsdform-alternative" data-node="%s"%s>`, html.EscapeString(alt.ID), hidden)
			if err := w.walk(ctx, alt); err != nil {
				return err
			}
			w.b.WriteString(`</ul>`)
		}
	}
	w.renderAdd(node, len(iters))
	w.b.WriteString(`</li>`)
	return nil
}

// alternativeLabel names a choice alternative for the selector: the element
// name, the type name of an implicit extension alternative, or the tag.
func alternativeLabel(alt *formtree.Node) string {
	if alt.Options.Label != "" {
		return alt.Options.Label
	}
	if alt.Tag == formtree.TagElement || alt.Tag == formtree.TagAttribute {
		return alt.Value
	}
	if alt.Options.TypeName != "" {
		return alt.Options.TypeName
	}
	return string(alt.Tag)
}

// renderRestriction emits a select for enumerated restrictions, otherwise
// descends to the constrained input.
func (w *walker) renderRestriction(node *formtree.Node) error {
	var enums []*formtree.Node
	for _, child := range node.Children {
		if child.Tag == formtree.TagEnumeration {
			enums = append(enums, child)
		}
	}
	if len(enums) == 0 {
		for _, child := range node.Children {
			if child.Tag == formtree.TagInput {
				w.renderInput(child)
			} else {
				w.warn(child, "unrecognized %q under restriction", child.Tag)
			}
		}
		return nil
	}

	fmt.Fprintf(&w.b, `<select class="xsdform-enum" name="%s">`, html.EscapeString(node.ID))
	for _, enum := range enums {
		selected := ""
		if enum.Value == node.Value && node.Value != "" {
			selected = ` selected="selected"`
		}
		fmt.Fprintf(&w.b, `<option value="%s"%s>%s</option>`,
			html.EscapeString(enum.Value), selected, html.EscapeString(enum.Value))
	}
	w.b.WriteString(`</select>`)
	return nil
}

func (w *walker) renderInput(node *formtree.Node) {
	value := node.Value
	if w.options.Escape() {
		value = html.EscapeString(value)
	}
	fmt.Fprintf(&w.b, `<input type="text" class="xsdform-input" name="%s" value="%s"`,
		html.EscapeString(node.ID), value)
	if ph := node.Options.Placeholder; ph != "" {
		fmt.Fprintf(&w.b, ` placeholder="%s"`, html.EscapeString(ph))
	}
	if node.Options.Fixed != "" {
		w.b.WriteString(` readonly="readonly"`)
	}
	w.b.WriteString(`/>`)
}

// renderModule delegates to the registered widget. A module whose path no
// longer resolves is fatal for the whole render: its output is structurally
// required at this position.
func (w *walker) renderModule(ctx context.Context, node *formtree.Node) error {
	if w.renderer.catalog == nil {
		return fmt.Errorf("list renderer: module %q: no catalog configured", node.Options.ModuleURL)
	}
	descriptor, ok := w.renderer.catalog.ResolveByPath(node.Options.ModuleURL)
	if !ok {
		return fmt.Errorf("list renderer: module %q is not registered", node.Options.ModuleURL)
	}
	fragment, err := descriptor.Renderer.RenderHTML(ctx, node)
	if err != nil {
		return fmt.Errorf("list renderer: module %q: %w", node.Options.ModuleURL, err)
	}
	fmt.Fprintf(&w.b, `<li class="xsdform-module" data-node="%s">%s</li>`, html.EscapeString(node.ID), fragment)
	return nil
}
