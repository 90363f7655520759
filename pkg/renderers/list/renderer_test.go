package list

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-xsdform/pkg/formtree"
	"github.com/goliatone/go-xsdform/pkg/modules"
	"github.com/goliatone/go-xsdform/pkg/render"
)

func scalarElement(name, value string, min, max, count int) *formtree.Node {
	el := formtree.NewNode(formtree.TagElement)
	el.Value = name
	el.Options.Min, el.Options.Max = min, max
	for i := 0; i < count; i++ {
		iter := formtree.NewNode(formtree.TagElemIter)
		input := formtree.NewNode(formtree.TagInput)
		input.Value = value
		iter.Append(input)
		el.Append(iter)
	}
	return el
}

func renderString(t *testing.T, r *Renderer, node *formtree.Node, opts render.RenderOptions) (string, []render.Warning) {
	t.Helper()
	out, warnings, err := r.Render(context.Background(), node, opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return string(out), warnings
}

func TestRenderScalarElement(t *testing.T) {
	el := scalarElement("title", `a "quoted" <value>`, 1, 1, 1)

	out, warnings := renderString(t, New(), el, render.RenderOptions{})

	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if !strings.Contains(out, `<span class="xsdform-label">title</span>`) {
		t.Fatalf("missing label in %q", out)
	}
	if !strings.Contains(out, `value="a &#34;quoted&#34; &lt;value&gt;"`) {
		t.Fatalf("value not escaped in %q", out)
	}
	if !strings.Contains(out, `data-node="`+el.ID+`"`) {
		t.Fatal("element id not addressable")
	}
}

func TestEscapeDisabled(t *testing.T) {
	el := scalarElement("title", "<b>", 1, 1, 1)
	off := false

	out, _ := renderString(t, New(), el, render.RenderOptions{EscapeValues: &off})

	if !strings.Contains(out, `value="<b>"`) {
		t.Fatalf("raw value expected with escaping off, got %q", out)
	}
}

func TestAddDeleteAffordances(t *testing.T) {
	tests := []struct {
		name       string
		min, max   int
		count      int
		wantAdd    bool
		wantDelete bool
	}{
		{"room both ways", 2, 4, 3, true, true},
		{"at max", 1, 2, 2, false, true},
		{"at min", 1, 2, 1, true, false},
		{"unbounded never full", 0, formtree.Unbounded, 50, true, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			el := scalarElement("entry", "v", tc.min, tc.max, tc.count)
			out, _ := renderString(t, New(), el, render.RenderOptions{})

			if got := strings.Contains(out, `class="xsdform-add"`); got != tc.wantAdd {
				t.Fatalf("add affordance = %v, want %v", got, tc.wantAdd)
			}
			if got := strings.Contains(out, `class="xsdform-delete"`); got != tc.wantDelete {
				t.Fatalf("delete affordance = %v, want %v", got, tc.wantDelete)
			}
		})
	}
}

func TestChoiceRendering(t *testing.T) {
	choice := formtree.NewNode(formtree.TagChoice)
	choice.Options.Min, choice.Options.Max = 1, 1
	iter := formtree.NewNode(formtree.TagChoiceIter)
	choice.Append(iter)

	email := scalarElement("email", "a@b.c", 1, 1, 1)
	phone := formtree.NewNode(formtree.TagElement)
	phone.Value = "phone"
	iter.Append(email)
	iter.Append(phone)
	iter.Value = email.ID

	out, _ := renderString(t, New(), choice, render.RenderOptions{})

	if !strings.Contains(out, `<option value="`+email.ID+`" selected="selected">email</option>`) {
		t.Fatalf("selected option missing in %q", out)
	}
	if !strings.Contains(out, `<option value="`+phone.ID+`">phone</option>`) {
		t.Fatalf("unselected option missing in %q", out)
	}
	if !strings.Contains(out, `data-node="`+phone.ID+`" hidden="hidden"`) {
		t.Fatal("unselected alternative should be hidden")
	}
	if strings.Contains(out, `data-node="`+email.ID+`" hidden="hidden"`) {
		t.Fatal("selected alternative must not be hidden")
	}
}

func TestEnumerationSelect(t *testing.T) {
	restr := formtree.NewNode(formtree.TagRestriction)
	restr.Value = "closed"
	for _, v := range []string{"open", "closed"} {
		e := formtree.NewNode(formtree.TagEnumeration)
		e.Value = v
		restr.Append(e)
	}

	out, _ := renderString(t, New(), restr, render.RenderOptions{})

	if !strings.Contains(out, `<option value="closed" selected="selected">closed</option>`) {
		t.Fatalf("selected enum missing in %q", out)
	}
	if !strings.Contains(out, `<option value="open">open</option>`) {
		t.Fatalf("enum option missing in %q", out)
	}
}

func TestUnknownTagWarnsAndContinues(t *testing.T) {
	el := scalarElement("note", "v", 1, 1, 1)
	bogus := formtree.NewNode(formtree.Tag("hologram"))
	el.Children[0].Append(bogus)

	out, warnings := renderString(t, New(), el, render.RenderOptions{})

	if len(warnings) != 1 {
		t.Fatalf("warnings = %d, want 1", len(warnings))
	}
	if warnings[0].NodeID != bogus.ID || warnings[0].Tag != formtree.Tag("hologram") {
		t.Fatalf("warning = %+v", warnings[0])
	}
	if !strings.Contains(out, `class="xsdform-input"`) {
		t.Fatal("render should continue past the unknown node")
	}
}

func TestModuleUnresolvedIsFatal(t *testing.T) {
	mod := formtree.NewNode(formtree.TagModule)
	mod.Options.ModuleURL = "/modules/gone"

	_, _, err := New(WithCatalog(modules.NewCatalog())).Render(context.Background(), mod, render.RenderOptions{})
	if err == nil {
		t.Fatal("unresolved module must fail the render")
	}
	if !strings.Contains(err.Error(), "/modules/gone") {
		t.Fatalf("err = %v, want module path named", err)
	}
}

func TestModuleRendersThroughCatalog(t *testing.T) {
	catalog := modules.NewCatalog()
	store := formtree.NewMemoryStore()
	modules.RegisterBuiltins(catalog, store)

	mod := formtree.NewNode(formtree.TagModule)
	mod.Options.ModuleURL = modules.AutoKeyPath
	mod.Options.ModuleData = "k-17"
	if err := store.Create(mod); err != nil {
		t.Fatalf("Create: %v", err)
	}

	out, _ := renderString(t, New(WithCatalog(catalog)), mod, render.RenderOptions{})

	if !strings.Contains(out, `class="xsdform-module"`) {
		t.Fatalf("module wrapper missing in %q", out)
	}
	if !strings.Contains(out, `value="k-17"`) {
		t.Fatalf("widget output missing in %q", out)
	}
}

func TestPartialRenderOfIteration(t *testing.T) {
	el := scalarElement("comment", "ok", 0, 1, 1)
	iter := el.Children[0]

	out, warnings := renderString(t, New(), iter, render.RenderOptions{Partial: true})

	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if !strings.Contains(out, `value="ok"`) {
		t.Fatalf("iteration content missing from partial: %q", out)
	}
}

func TestCollapsedFromNodeOptions(t *testing.T) {
	el := scalarElement("section", "v", 1, 1, 1)
	el.Options.Collapse = true

	out, _ := renderString(t, New(), el, render.RenderOptions{})

	if !strings.Contains(out, `class="xsdform-element collapsed"`) {
		t.Fatalf("collapse option not honored: %q", out)
	}
}

func TestPartialWrapper(t *testing.T) {
	el := scalarElement("note", "v", 1, 1, 1)

	full, _ := renderString(t, New(), el, render.RenderOptions{})
	partial, _ := renderString(t, New(), el, render.RenderOptions{Partial: true})

	if !strings.HasPrefix(full, `<ul class="xsdform"`) {
		t.Fatalf("full render wrapper = %q", full[:40])
	}
	if !strings.HasPrefix(partial, `<ul class="xsdform-partial"`) {
		t.Fatalf("partial render wrapper = %q", partial[:40])
	}
}
