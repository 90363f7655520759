package render

import (
	"context"
	"testing"

	"github.com/goliatone/go-xsdform/pkg/formtree"
)

type stubRenderer struct{ name string }

func (s stubRenderer) Name() string        { return s.name }
func (s stubRenderer) ContentType() string { return "text/plain" }
func (s stubRenderer) Render(context.Context, *formtree.Node, RenderOptions) ([]byte, []Warning, error) {
	return []byte(s.name), nil, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(stubRenderer{name: "list"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(stubRenderer{name: "list"}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
	if err := registry.Register(stubRenderer{}); err == nil {
		t.Fatal("unnamed renderer should fail")
	}

	got, err := registry.Get("list")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name() != "list" {
		t.Fatalf("Name = %q", got.Name())
	}
	if _, err := registry.Get("missing"); err == nil {
		t.Fatal("missing renderer should fail")
	}
}

func TestRegistryList(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(stubRenderer{name: "xml"})
	registry.MustRegister(stubRenderer{name: "list"})

	names := registry.List()
	if len(names) != 2 || names[0] != "list" || names[1] != "xml" {
		t.Fatalf("List = %v, want sorted [list xml]", names)
	}
	if !registry.Has("xml") || registry.Has("table") {
		t.Fatal("Has reported wrong membership")
	}
}

func TestRenderOptionsEscape(t *testing.T) {
	var opts RenderOptions
	if !opts.Escape() {
		t.Fatal("escaping should default on")
	}
	off := false
	opts.EscapeValues = &off
	if opts.Escape() {
		t.Fatal("explicit false should disable escaping")
	}
}
