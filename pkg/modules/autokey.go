package modules

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/goliatone/go-xsdform/pkg/formtree"
	"github.com/goliatone/go-xsdform/pkg/keyref"
)

// Paths of the built-in widgets backing key/keyref auto-wiring. Generation
// assigns these when a field's xpath matches a collected key or keyref
// field declaration.
const (
	AutoKeyPath    = "/modules/auto-key"
	AutoKeyrefPath = "/modules/auto-keyref"
)

// RegisterBuiltins registers the auto-key and auto-keyref widgets against
// the catalog. The store is needed by the keyref widget to read sibling key
// values at render time.
func RegisterBuiltins(catalog *Catalog, store formtree.Store) {
	catalog.MustRegister(Descriptor{
		Name:     "auto-key",
		Path:     AutoKeyPath,
		Renderer: autoKeyModule{},
	})
	catalog.MustRegister(Descriptor{
		Name:     "auto-keyref",
		Path:     AutoKeyrefPath,
		Renderer: autoKeyrefModule{store: store},
	})
}

// autoKeyModule renders a key-producing field as a plain text input whose
// value feeds every keyref dropdown registered under the same key.
type autoKeyModule struct{}

func (autoKeyModule) RenderHTML(_ context.Context, node *formtree.Node) (string, error) {
	var b strings.Builder
	b.WriteString(`<input type="text" class="xsdform-key" name="`)
	b.WriteString(html.EscapeString(node.ID))
	b.WriteString(`" value="`)
	b.WriteString(html.EscapeString(node.Options.ModuleData))
	b.WriteString(`"/>`)
	return b.String(), nil
}

func (autoKeyModule) RenderXML(_ context.Context, node *formtree.Node) (string, string, string, error) {
	return node.Options.ModuleAttrs, node.Options.ModuleData, "", nil
}

// autoKeyrefModule renders a key-consuming field as a select populated with
// the live value set of the referenced key.
type autoKeyrefModule struct {
	store formtree.Store
}

func (m autoKeyrefModule) RenderHTML(ctx context.Context, node *formtree.Node) (string, error) {
	values, err := m.referencedValues(node)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(`<select class="xsdform-keyref" name="`)
	b.WriteString(html.EscapeString(node.ID))
	b.WriteString(`">`)
	for _, value := range values {
		b.WriteString(`<option value="`)
		b.WriteString(html.EscapeString(value))
		b.WriteString(`"`)
		if value == node.Options.ModuleData {
			b.WriteString(` selected`)
		}
		b.WriteString(`>`)
		b.WriteString(html.EscapeString(value))
		b.WriteString(`</option>`)
	}
	b.WriteString(`</select>`)
	return b.String(), nil
}

func (m autoKeyrefModule) RenderXML(_ context.Context, node *formtree.Node) (string, string, string, error) {
	return node.Options.ModuleAttrs, node.Options.ModuleData, "", nil
}

func (m autoKeyrefModule) referencedValues(node *formtree.Node) ([]string, error) {
	if m.store == nil {
		return nil, fmt.Errorf("auto-keyref: tree store is not configured")
	}
	name, err := paramValue(node.Options.ModuleParams, "name")
	if err != nil {
		return nil, err
	}
	_, keyrefs, err := keyref.Init(m.store, node)
	if err != nil {
		return nil, err
	}
	ref, ok := keyrefs[name]
	if !ok {
		return nil, fmt.Errorf("auto-keyref: keyref %q not registered on tree root", name)
	}
	root, err := m.store.Root(node.ID)
	if err != nil {
		return nil, err
	}
	return keyref.Values(root, ref.Refer)
}

func paramValue(params, key string) (string, error) {
	parsed, err := url.ParseQuery(params)
	if err != nil {
		return "", fmt.Errorf("auto-keyref: parse params %q: %w", params, err)
	}
	value := parsed.Get(key)
	if value == "" {
		return "", fmt.Errorf("auto-keyref: params missing %q", key)
	}
	return value, nil
}
