package keyref

import (
	"testing"

	"github.com/goliatone/go-xsdform/pkg/formtree"
)

func keyedTree(t *testing.T) (*formtree.MemoryStore, *formtree.Node, *formtree.Node) {
	t.Helper()
	root := formtree.NewNode(formtree.TagElement)
	root.Value = "catalog"
	root.Options.Keys = map[string]*formtree.Key{
		"productKey": {XPath: "catalog/product/@id"},
	}
	root.Options.Keyrefs = map[string]*formtree.Keyref{
		"productRef": {XPath: "catalog/order/@product", Refer: "productKey"},
	}

	var leaf *formtree.Node
	for _, id := range []string{"p-1", "p-2"} {
		iter := formtree.NewNode(formtree.TagElemIter)
		root.Append(iter)
		input := formtree.NewNode(formtree.TagInput)
		input.Value = id
		input.Options.XMLPath = "catalog[1]/product[1]/@id"
		iter.Append(input)
		leaf = input
	}

	store := formtree.NewMemoryStore()
	if err := store.Create(root); err != nil {
		t.Fatalf("create tree: %v", err)
	}
	return store, root, leaf
}

func TestInitWalksToRoot(t *testing.T) {
	store, root, leaf := keyedTree(t)

	keys, keyrefs, err := Init(store, leaf)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if keys["productKey"] != root.Options.Keys["productKey"] {
		t.Fatalf("keys map not loaded from root")
	}
	if keyrefs["productRef"].Refer != "productKey" {
		t.Fatalf("keyrefs map not loaded from root")
	}
}

func TestRegisterModule(t *testing.T) {
	store, root, leaf := keyedTree(t)

	if err := RegisterModule(store, leaf, "productKey", "widget-1", false); err != nil {
		t.Fatalf("register key module: %v", err)
	}
	if err := RegisterModule(store, leaf, "productKey", "widget-1", false); err != nil {
		t.Fatalf("re-register key module: %v", err)
	}
	if got := root.Options.Keys["productKey"].ModuleIDs; len(got) != 1 || got[0] != "widget-1" {
		t.Fatalf("expected single widget-1 registration, got %v", got)
	}

	if err := RegisterModule(store, leaf, "missing", "widget-2", true); err == nil {
		t.Fatalf("expected error for unknown keyref name")
	}
}

func TestValuesCollectsMatchingFields(t *testing.T) {
	_, root, _ := keyedTree(t)

	values, err := Values(root, "productKey")
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	if len(values) != 2 || values[0] != "p-1" || values[1] != "p-2" {
		t.Fatalf("unexpected value set %v", values)
	}
}
