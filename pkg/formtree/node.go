package formtree

import (
	"github.com/google/uuid"
)

// Tag discriminates the kind of structure a Node represents. The vocabulary
// is closed: renderers dispatch on it and treat anything else as a warning.
type Tag string

const (
	TagElement        Tag = "element"
	TagAttribute      Tag = "attribute"
	TagSequence       Tag = "sequence"
	TagSequenceIter   Tag = "sequence-iter"
	TagChoice         Tag = "choice"
	TagChoiceIter     Tag = "choice-iter"
	TagElemIter       Tag = "elem-iter"
	TagComplexType    Tag = "complex_type"
	TagSimpleType     Tag = "simple_type"
	TagSimpleContent  Tag = "simple_content"
	TagComplexContent Tag = "complex_content"
	TagRestriction    Tag = "restriction"
	TagExtension      Tag = "extension"
	TagEnumeration    Tag = "enumeration"
	TagInput          Tag = "input"
	TagList           Tag = "list"
	TagUnion          Tag = "union"
	TagModule         Tag = "module"
	TagError          Tag = "error"
)

// Unbounded is the internal encoding of maxOccurs="unbounded".
const Unbounded = -1

// Node is one piece of generated form structure. Parents exclusively own
// their children; deleting a node deletes its subtree. ParentID is a
// non-owning back reference used for ancestor lookups only.
type Node struct {
	ID       string  `json:"id,omitempty"`
	ParentID string  `json:"-"`
	Tag      Tag     `json:"tag"`
	Value    string  `json:"value,omitempty"`
	Options  Options `json:"options"`
	Children []*Node `json:"children,omitempty"`
}

// NewNode constructs a node with a server-assigned identifier.
func NewNode(tag Tag) *Node {
	return &Node{ID: uuid.NewString(), Tag: tag}
}

// Append adds child to n, wiring the back reference.
func (n *Node) Append(child *Node) {
	if child == nil {
		return
	}
	child.ParentID = n.ID
	n.Children = append(n.Children, child)
}

// Name returns the display name carried by an element/attribute node. It is
// stored in Value for structural nodes that never carry leaf data.
func (n *Node) Name() string {
	return n.Value
}

// Child returns the child with the given id, or nil.
func (n *Node) Child(id string) *Node {
	for _, c := range n.Children {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Iterations returns the children that are occurrence wrappers
// (sequence-iter, choice-iter, elem-iter).
func (n *Node) Iterations() []*Node {
	var out []*Node
	for _, c := range n.Children {
		switch c.Tag {
		case TagSequenceIter, TagChoiceIter, TagElemIter:
			out = append(out, c)
		}
	}
	return out
}

// Shape strips identifiers from the tree, producing the identity-free
// interchange form used by fixtures and round-trip comparisons.
func (n *Node) Shape() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Tag: n.Tag, Value: n.Value, Options: n.Options}
	for _, c := range n.Children {
		out.Children = append(out.Children, c.Shape())
	}
	return out
}

// Walk visits n and every descendant in document order. Returning false from
// fn stops the walk.
func Walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}
