package formtree

import (
	"testing"
)

func buildSampleTree() *Node {
	root := NewNode(TagElement)
	root.Value = "root"
	iter := NewNode(TagElemIter)
	root.Append(iter)
	input := NewNode(TagInput)
	input.Value = "hello"
	iter.Append(input)
	return root
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	root := buildSampleTree()

	if err := store.Create(root); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Get(root.Children[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Tag != TagElemIter {
		t.Fatalf("expected elem-iter, got %s", got.Tag)
	}
	if got.ParentID != root.ID {
		t.Fatalf("expected parent %q, got %q", root.ID, got.ParentID)
	}
}

func TestMemoryStore_DeleteIsRecursive(t *testing.T) {
	store := NewMemoryStore()
	root := buildSampleTree()
	if err := store.Create(root); err != nil {
		t.Fatalf("create: %v", err)
	}

	iter := root.Children[0]
	leaf := iter.Children[0]
	if err := store.Delete(iter.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.Get(leaf.ID); err == nil {
		t.Fatalf("expected descendant %q to be gone", leaf.ID)
	}
	if len(root.Children) != 0 {
		t.Fatalf("expected iteration detached from parent, got %d children", len(root.Children))
	}
}

func TestMemoryStore_RootWalksParents(t *testing.T) {
	store := NewMemoryStore()
	root := buildSampleTree()
	if err := store.Create(root); err != nil {
		t.Fatalf("create: %v", err)
	}

	leaf := root.Children[0].Children[0]
	got, err := store.Root(leaf.ID)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if got.ID != root.ID {
		t.Fatalf("expected root %q, got %q", root.ID, got.ID)
	}
}

func TestShapeStripsIdentity(t *testing.T) {
	root := buildSampleTree()
	shape := root.Shape()
	ok := Walk(shape, func(n *Node) bool {
		return n.ID == "" && n.ParentID == ""
	})
	if !ok {
		t.Fatalf("shape retained node identity")
	}
	if shape.Children[0].Children[0].Value != "hello" {
		t.Fatalf("shape lost leaf value")
	}
}
