package formtree

import (
	"fmt"
	"sync"
)

// Store persists form-structure trees. Implementations must provide
// at-most-one-writer semantics per tree; the generation and rendering
// engines do not lock on their own.
type Store interface {
	// Create registers node and its whole subtree.
	Create(node *Node) error

	// Get returns the node with the given id.
	Get(id string) (*Node, error)

	// Update re-persists a node after in-place mutation.
	Update(node *Node) error

	// Delete removes the node and, recursively, its subtree. The node is
	// also detached from its parent's child list.
	Delete(id string) error

	// Children returns the ordered child list of the node.
	Children(id string) ([]*Node, error)

	// Root walks parent references up from the node and returns the tree
	// root.
	Root(id string) (*Node, error)
}

// MemoryStore is the in-process Store used by the orchestrator defaults and
// by tests. A single mutex serializes all tree mutation.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nodes: make(map[string]*Node)}
}

func (s *MemoryStore) Create(node *Node) error {
	if node == nil {
		return fmt.Errorf("formtree: node is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var register func(n *Node) error
	register = func(n *Node) error {
		if n.ID == "" {
			return fmt.Errorf("formtree: node without id")
		}
		if _, exists := s.nodes[n.ID]; exists {
			return fmt.Errorf("formtree: node %q already stored", n.ID)
		}
		s.nodes[n.ID] = n
		for _, c := range n.Children {
			c.ParentID = n.ID
			if err := register(c); err != nil {
				return err
			}
		}
		return nil
	}
	return register(node)
}

func (s *MemoryStore) Get(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("formtree: node %q not found", id)
	}
	return node, nil
}

func (s *MemoryStore) Update(node *Node) error {
	if node == nil {
		return fmt.Errorf("formtree: node is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[node.ID]; !ok {
		return fmt.Errorf("formtree: node %q not found", node.ID)
	}
	s.nodes[node.ID] = node

	// Children appended since the last Create/Update need index entries.
	var register func(n *Node)
	register = func(n *Node) {
		for _, c := range n.Children {
			c.ParentID = n.ID
			if _, ok := s.nodes[c.ID]; !ok {
				s.nodes[c.ID] = c
			}
			register(c)
		}
	}
	register(node)
	return nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("formtree: node %q not found", id)
	}

	if parent, ok := s.nodes[node.ParentID]; ok {
		for i, c := range parent.Children {
			if c.ID == id {
				parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
				break
			}
		}
	}

	var unregister func(n *Node)
	unregister = func(n *Node) {
		delete(s.nodes, n.ID)
		for _, c := range n.Children {
			unregister(c)
		}
	}
	unregister(node)
	return nil
}

func (s *MemoryStore) Children(id string) ([]*Node, error) {
	node, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return node.Children, nil
}

func (s *MemoryStore) Root(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("formtree: node %q not found", id)
	}
	seen := make(map[string]struct{})
	for node.ParentID != "" {
		if _, cycle := seen[node.ID]; cycle {
			return nil, fmt.Errorf("formtree: parent cycle at node %q", node.ID)
		}
		seen[node.ID] = struct{}{}
		parent, ok := s.nodes[node.ParentID]
		if !ok {
			break
		}
		node = parent
	}
	return node, nil
}
