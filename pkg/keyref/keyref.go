// Package keyref exposes the query surface over the key/keyref maps the
// generation engine collects: widgets register themselves under a
// constraint name and read the live value set of the fields producing a
// key, so reference dropdowns stay synchronized with their master fields.
package keyref

import (
	"fmt"

	"github.com/goliatone/go-xsdform/pkg/formtree"
)

// Init walks from any node to its tree root and returns the persisted
// keys/keyrefs maps. The maps are written once per generation and read many
// times during module interaction.
func Init(store formtree.Store, node *formtree.Node) (map[string]*formtree.Key, map[string]*formtree.Keyref, error) {
	if store == nil {
		return nil, nil, fmt.Errorf("keyref: tree store is required")
	}
	if node == nil {
		return nil, nil, fmt.Errorf("keyref: node is required")
	}
	root, err := store.Root(node.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("keyref: resolve root: %w", err)
	}
	return root.Options.Keys, root.Options.Keyrefs, nil
}

// RegisterModule appends a module id under the named key or keyref on the
// node's tree root, so later renders can notify every widget bound to the
// constraint.
func RegisterModule(store formtree.Store, node *formtree.Node, name, moduleID string, isKeyref bool) error {
	if store == nil {
		return fmt.Errorf("keyref: tree store is required")
	}
	root, err := store.Root(node.ID)
	if err != nil {
		return fmt.Errorf("keyref: resolve root: %w", err)
	}

	if isKeyref {
		ref, ok := root.Options.Keyrefs[name]
		if !ok {
			return fmt.Errorf("keyref: keyref %q not registered", name)
		}
		ref.ModuleIDs = appendUnique(ref.ModuleIDs, moduleID)
	} else {
		key, ok := root.Options.Keys[name]
		if !ok {
			return fmt.Errorf("keyref: key %q not registered", name)
		}
		key.ModuleIDs = appendUnique(key.ModuleIDs, moduleID)
	}
	return store.Update(root)
}

// Values collects the current value set of every field registered under the
// named key, in document order. Fields are matched by comparing their
// normalized xml xpath against the key's field xpath.
func Values(root *formtree.Node, keyName string) ([]string, error) {
	if root == nil {
		return nil, fmt.Errorf("keyref: root is required")
	}
	key, ok := root.Options.Keys[keyName]
	if !ok {
		return nil, fmt.Errorf("keyref: key %q not registered", keyName)
	}

	var values []string
	formtree.Walk(root, func(n *formtree.Node) bool {
		if formtree.NormalizeXPath(n.Options.XMLPath) != key.XPath {
			return true
		}
		switch n.Tag {
		case formtree.TagInput:
			if n.Value != "" {
				values = append(values, n.Value)
			}
		case formtree.TagModule:
			if n.Options.ModuleData != "" {
				values = append(values, n.Options.ModuleData)
			}
		}
		return true
	})
	return values, nil
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
