package xmlout

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-xsdform/pkg/formtree"
	"github.com/goliatone/go-xsdform/pkg/modules"
	"github.com/goliatone/go-xsdform/pkg/render"
)

func element(name, xmlPath string) *formtree.Node {
	el := formtree.NewNode(formtree.TagElement)
	el.Value = name
	el.Options.XMLPath = xmlPath
	el.Options.Min, el.Options.Max = 1, 1
	return el
}

func withInput(el *formtree.Node, value string) *formtree.Node {
	iter := formtree.NewNode(formtree.TagElemIter)
	input := formtree.NewNode(formtree.TagInput)
	input.Value = value
	iter.Append(input)
	el.Append(iter)
	return el
}

func renderString(t *testing.T, r *Renderer, node *formtree.Node, opts render.RenderOptions) string {
	t.Helper()
	out, _, err := r.Render(context.Background(), node, opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return string(out)
}

func TestSerializeScalar(t *testing.T) {
	el := withInput(element("note", "/note"), "hi")

	out := renderString(t, New(), el, render.RenderOptions{})

	want := `<?xml version="1.0" encoding="UTF-8"?>` + "\n<note>hi</note>"
	if out != want {
		t.Fatalf("out = %q, want %q", out, want)
	}
}

func TestEmptyElementSelfCloses(t *testing.T) {
	el := element("note", "/note")
	el.Append(formtree.NewNode(formtree.TagElemIter))

	out := renderString(t, New(), el, render.RenderOptions{})

	if !strings.HasSuffix(out, "<note/>") {
		t.Fatalf("out = %q, want self-closing note", out)
	}
}

func TestPlaceholderOccurrenceSkipped(t *testing.T) {
	el := element("note", "/note")
	iter := formtree.NewNode(formtree.TagElemIter)
	iter.Options.Use = "empty"
	input := formtree.NewNode(formtree.TagInput)
	iter.Append(input)
	el.Append(iter)

	out := renderString(t, New(), el, render.RenderOptions{})

	if strings.Contains(out, "<note") {
		t.Fatalf("placeholder occurrence serialized: %q", out)
	}
}

func TestAttributesAndEscaping(t *testing.T) {
	el := element("note", "/note")
	iter := formtree.NewNode(formtree.TagElemIter)
	el.Append(iter)

	attr := formtree.NewNode(formtree.TagAttribute)
	attr.Value = "id"
	attr.Options.XMLPath = "/note/@id"
	attr.Options.Min, attr.Options.Max = 1, 1
	withInput(attr, `a<b"`)
	iter.Append(attr)

	body := formtree.NewNode(formtree.TagInput)
	body.Value = "x&y"
	iter.Append(body)

	out := renderString(t, New(), el, render.RenderOptions{})

	if !strings.Contains(out, `<note id="a&lt;b&quot;">x&amp;y</note>`) {
		t.Fatalf("out = %q", out)
	}
}

func TestRepeatedOccurrences(t *testing.T) {
	el := element("item", "/order/item")
	el.Options.Max = formtree.Unbounded
	withInput(el, "a")
	withInput(el, "b")

	out := renderString(t, New(), el, render.RenderOptions{Partial: true})

	if out != "<item>a</item><item>b</item>" {
		t.Fatalf("out = %q", out)
	}
}

func TestChoiceSerializesOnlySelected(t *testing.T) {
	root := element("contact", "/contact")
	iter := formtree.NewNode(formtree.TagElemIter)
	root.Append(iter)

	choice := formtree.NewNode(formtree.TagChoice)
	citer := formtree.NewNode(formtree.TagChoiceIter)
	choice.Append(citer)
	iter.Append(choice)

	email := withInput(element("email", "/contact/email"), "a@b.c")
	phone := withInput(element("phone", "/contact/phone"), "555")
	citer.Append(email)
	citer.Append(phone)
	citer.Value = email.ID

	out := renderString(t, New(), root, render.RenderOptions{})

	if !strings.Contains(out, "<email>a@b.c</email>") {
		t.Fatalf("selected alternative missing: %q", out)
	}
	if strings.Contains(out, "phone") {
		t.Fatalf("unselected alternative serialized: %q", out)
	}
}

func TestXsiTypeSelection(t *testing.T) {
	root := element("vehicle", "/vehicle")
	iter := formtree.NewNode(formtree.TagElemIter)
	root.Append(iter)

	choice := formtree.NewNode(formtree.TagChoice)
	citer := formtree.NewNode(formtree.TagChoiceIter)
	choice.Append(citer)
	iter.Append(choice)

	car := formtree.NewNode(formtree.TagComplexType)
	car.Options.TypeName = "CarType"
	doors := withInput(element("doors", "/vehicle/doors"), "2")
	car.Append(doors)
	citer.Append(car)
	citer.Value = car.ID

	out := renderString(t, New(), root, render.RenderOptions{})

	if !strings.Contains(out, ` xmlns:xsi="`+InstanceNamespace+`"`) {
		t.Fatalf("xsi namespace not declared at root: %q", out)
	}
	if !strings.Contains(out, ` xsi:type="CarType"`) {
		t.Fatalf("xsi:type missing: %q", out)
	}
	if strings.Count(out, "xmlns:xsi") != 1 {
		t.Fatalf("xsi namespace should be declared exactly once: %q", out)
	}
	if !strings.Contains(out, "<doors>2</doors>") {
		t.Fatalf("selected subtype content missing: %q", out)
	}
}

func TestNamespaceDeclaredOnceAtBoundary(t *testing.T) {
	root := element("root", "/ex:root")
	root.Options.Xmlns = "urn:example"
	root.Options.NSPrefix = "ex"
	iter := formtree.NewNode(formtree.TagElemIter)
	root.Append(iter)

	child := element("child", "/ex:root[1]/ex:child")
	child.Options.Xmlns = "urn:example"
	child.Options.NSPrefix = "ex"
	withInput(child, "v")
	iter.Append(child)

	out := renderString(t, New(), root, render.RenderOptions{})

	if !strings.Contains(out, `<ex:root xmlns:ex="urn:example">`) {
		t.Fatalf("root declaration missing: %q", out)
	}
	if !strings.Contains(out, `<ex:child>v</ex:child>`) {
		t.Fatalf("child should not redeclare the inherited namespace: %q", out)
	}
}

func TestDefaultNamespaceBoundary(t *testing.T) {
	root := element("envelope", "/envelope")
	iter := formtree.NewNode(formtree.TagElemIter)
	root.Append(iter)

	child := element("payload", "/envelope[1]/payload")
	child.Options.Xmlns = "urn:payload"
	withInput(child, "v")
	iter.Append(child)

	out := renderString(t, New(), root, render.RenderOptions{})

	if !strings.Contains(out, `<payload xmlns="urn:payload">v</payload>`) {
		t.Fatalf("unprefixed namespace boundary must declare xmlns: %q", out)
	}
}

type multiModule struct{}

func (multiModule) RenderHTML(context.Context, *formtree.Node) (string, error) {
	return "", nil
}

func (multiModule) RenderXML(context.Context, *formtree.Node) (string, string, string, error) {
	return "", "", "<tag>one</tag><tag>two</tag>", nil
}

func TestMultipleModuleReplacesOuter(t *testing.T) {
	catalog := modules.NewCatalog()
	catalog.MustRegister(modules.Descriptor{
		Name:     "tags",
		Path:     "/modules/tags",
		Multiple: true,
		Renderer: multiModule{},
	})

	el := element("tags", "/doc/tags")
	iter := formtree.NewNode(formtree.TagElemIter)
	el.Append(iter)
	mod := formtree.NewNode(formtree.TagModule)
	mod.Options.ModuleURL = "/modules/tags"
	mod.Options.ModuleMultiple = true
	iter.Append(mod)

	out := renderString(t, New(WithCatalog(catalog)), el, render.RenderOptions{Partial: true})

	if out != "<tag>one</tag><tag>two</tag>" {
		t.Fatalf("out = %q, want the module's outer replacement", out)
	}
}

func TestModuleUnresolvedIsFatal(t *testing.T) {
	el := withInput(element("note", "/note"), "v")
	mod := formtree.NewNode(formtree.TagModule)
	mod.Options.ModuleURL = "/modules/gone"
	el.Children[0].Append(mod)

	_, _, err := New(WithCatalog(modules.NewCatalog())).Render(context.Background(), el, render.RenderOptions{})
	if err == nil {
		t.Fatal("unresolved module must fail the render")
	}
}

func TestUnknownTagWarns(t *testing.T) {
	el := withInput(element("note", "/note"), "v")
	el.Children[0].Append(formtree.NewNode(formtree.Tag("hologram")))

	out, warnings, err := New().Render(context.Background(), el, render.RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %d, want 1", len(warnings))
	}
	if !strings.Contains(string(out), "<note>v</note>") {
		t.Fatalf("render should continue: %q", string(out))
	}
}
