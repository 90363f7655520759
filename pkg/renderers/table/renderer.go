// Package table renders a form-structure tree as tabular HTML. It is a
// reduced, read-mostly view: the tree is first flattened into plain
// label/value rows, so choices collapse to their active alternative and no
// interactive affordances are emitted. The list renderer remains the
// editing surface.
package table

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

// WithCatalog injects the module catalog. Module rows render their stored
// data, but an unregistered module path still fails the render.
func WithCatalog(catalog *modules.Catalog) Option {
	return func(r *Renderer) { r.catalog = catalog }
}

// WithLogger injects the logger used for skipped-subtree warnings.
func WithLogger(log logr.Logger) Option {
	return func(r *Renderer) { r.log = log }
}

// Renderer is the tabular HTML renderer.
type Renderer struct {
	catalog *modules.Catalog
	log     logr.Logger
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the table renderer applying any provided options.
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
	return "table"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// row is the plain intermediate the tree flattens into before emission.
type row struct {
	label  string
	value  string
	header bool
	depth  int
}

func (r *Renderer) Render(ctx context.Context, node *formtree.Node, options render.RenderOptions) ([]byte, []render.Warning, error) {
	if node == nil {
		return nil, nil, fmt.Errorf("table renderer: node is required")
	}
	w := &flattener{renderer: r, options: options}
	if err := w.flatten(node, 0); err != nil {
		return nil, nil, err
	}

	var b strings.Builder
	b.WriteString(`<table class="xsdform-table">`)
	for _, row := range w.rows {
		class := fmt.Sprintf("xsdform-depth-%d", row.depth)
		if row.header {
			fmt.Fprintf(&b, `<tr class="%s"><th colspan="2">%s</th></tr>`, class, html.EscapeString(row.label))
			continue
		}
		value := row.value
		if options.Escape() {
			value = html.EscapeString(value)
		}
		fmt.Fprintf(&b, `<tr class="%s"><th>%s</th><td>%s</td></tr>`, class, html.EscapeString(row.label), value)
	}
	b.WriteString(`</table>`)

	for _, warning := range w.warnings {
		r.log.V(1).Info("skipped unrecognized node", "node", warning.NodeID, "tag", warning.Tag)
	}
	return []byte(b.String()), w.warnings, nil
}

type flattener struct {
	renderer *Renderer
	options  render.RenderOptions
	rows     []row
	warnings []render.Warning
}

func (w *flattener) warn(node *formtree.Node, format string, args ...any) {
	w.warnings = append(w.warnings, render.Warning{
		NodeID:  node.ID,
		Tag:     node.Tag,
		Message: fmt.Sprintf(format, args...),
	})
}

func (w *flattener) flatten(node *formtree.Node, depth int) error {
	switch node.Tag {
	case formtree.TagElement, formtree.TagAttribute:
		return w.flattenDeclaration(node, depth)
	case formtree.TagSequence, formtree.TagChoice:
		return w.flattenIterated(node, depth)
	case formtree.TagComplexType, formtree.TagSimpleType, formtree.TagSimpleContent,
		formtree.TagComplexContent, formtree.TagExtension, formtree.TagRestriction,
		formtree.TagList, formtree.TagUnion:
		return w.flattenChildren(node, depth)
	case formtree.TagInput, formtree.TagEnumeration, formtree.TagModule:
		// Leaves surface through their owning declaration's row.
		return nil
	default:
		w.warn(node, "unrecognized tag %q", node.Tag)
		return nil
	}
}

func (w *flattener) flattenChildren(node *formtree.Node, depth int) error {
	for _, child := range node.Children {
		if err := w.flatten(child, depth); err != nil {
			return err
		}
	}
	return nil
}

func (w *flattener) flattenDeclaration(node *formtree.Node, depth int) error {
	label := node.Options.Label
	if label == "" {
		label = node.Value
	}
	for _, iter := range node.Iterations() {
		if iter.Options.Use == "empty" {
			continue
		}
		value, isLeaf, err := w.leafValue(iter)
		if err != nil {
			return err
		}
		if isLeaf {
			w.rows = append(w.rows, row{label: label, value: value, depth: depth})
			continue
		}
		w.rows = append(w.rows, row{label: label, header: true, depth: depth})
		if err := w.flattenChildren(iter, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// flattenIterated handles sequence and choice nodes. Choices contribute
// only their active alternative; there is no selector in this view.
func (w *flattener) flattenIterated(node *formtree.Node, depth int) error {
	for _, iter := range node.Iterations() {
		if iter.Tag == formtree.TagChoiceIter {
			selected := iter.Child(iter.Value)
			if selected == nil {
				continue
			}
			if err := w.flatten(selected, depth); err != nil {
				return err
			}
			continue
		}
		if err := w.flattenChildren(iter, depth); err != nil {
			return err
		}
	}
	return nil
}

// leafValue reduces an iteration to a scalar when its subtree carries no
// nested declarations: the input value, the restriction's selected
// enumeration, or a module's stored data.
func (w *flattener) leafValue(iter *formtree.Node) (string, bool, error) {
	value := ""
	leaf := true
	var moduleErr error

	formtree.Walk(iter, func(n *formtree.Node) bool {
		switch n.Tag {
		case formtree.TagElement, formtree.TagAttribute:
			leaf = false
			return false
		case formtree.TagInput:
			value = n.Value
		case formtree.TagRestriction:
			if n.Value != "" {
				value = n.Value
			}
		case formtree.TagModule:
			if w.renderer.catalog == nil || !w.renderer.catalog.Has(n.Options.ModuleURL) {
				moduleErr = fmt.Errorf("table renderer: module %q is not registered", n.Options.ModuleURL)
				return false
			}
			value = n.Options.ModuleData
		}
		return true
	})
	if moduleErr != nil {
		return "", false, moduleErr
	}
	return value, leaf, nil
}
