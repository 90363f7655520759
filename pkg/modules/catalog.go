// Package modules holds the pluggable-widget boundary: a catalog of
// registered module paths and the render contract a widget implementation
// must satisfy. Generation validates module annotations against the catalog;
// renderers call through it to produce widget output.
package modules

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-xsdform/pkg/formtree"
)

// ModuleRenderer is the contract a widget implementation must support. A
// widget reads its persisted state from the node's module options and may
// write ModuleData/ModuleAttrs back through the tree store.
type ModuleRenderer interface {
	// RenderHTML produces the widget's HTML fragment for the list renderer.
	RenderHTML(ctx context.Context, node *formtree.Node) (string, error)

	// RenderXML produces the widget's XML contribution: an attribute string
	// and inner value for the owning element, or a full outer replacement
	// when the module manages its own repeated wrapper.
	RenderXML(ctx context.Context, node *formtree.Node) (attrs, inner, outer string, err error)
}

// Descriptor describes one registered module.
type Descriptor struct {
	// Name is a stable identifier used in logs and admin surfaces.
	Name string

	// Path is the URL path module annotations are matched against.
	Path string

	// Multiple marks modules that manage their own repeated element
	// wrapper; their XML output replaces the parent's tag emission.
	Multiple bool

	// Renderer implements the module's render contract.
	Renderer ModuleRenderer
}

// Catalog maps module paths to descriptors. Generation only reads it;
// registration happens at startup.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Descriptor
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]Descriptor)}
}

// Register adds a descriptor keyed by its path. Duplicate paths return an
// error.
func (c *Catalog) Register(d Descriptor) error {
	if strings.TrimSpace(d.Path) == "" {
		return fmt.Errorf("modules: descriptor path is required")
	}
	if d.Renderer == nil {
		return fmt.Errorf("modules: descriptor %q renderer is required", d.Path)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[d.Path]; exists {
		return fmt.Errorf("modules: path %q already registered", d.Path)
	}
	c.entries[d.Path] = d
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (c *Catalog) MustRegister(d Descriptor) {
	if err := c.Register(d); err != nil {
		panic(err)
	}
}

// ResolveByPath returns the descriptor registered under path.
func (c *Catalog) ResolveByPath(path string) (Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.entries[path]
	return d, ok
}

// Paths returns the sorted set of registered module paths.
func (c *Catalog) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.entries))
	for path := range c.entries {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Has reports whether a path is registered.
func (c *Catalog) Has(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.entries[path]
	return ok
}
