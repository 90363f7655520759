// Package render defines the contract shared by the tree renderers: a
// Renderer walks a persisted form-structure tree read-only and serializes
// it, collecting non-fatal warnings for constructs it does not recognize.
package render

import (
	"context"

	"github.com/goliatone/go-xsdform/pkg/formtree"
)

// Renderer converts a form-structure (sub)tree into a byte representation
// (HTML fragment or XML document). Renderers never mutate the tree.
//
// Warnings carry the unrecognized-tag skips encountered during the walk;
// they accompany successful output. An error means the render produced no
// usable output, which for module nodes happens when the module's catalog
// entry is gone.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, node *formtree.Node, options RenderOptions) ([]byte, []Warning, error)
}

// Warning records one non-fatal skip during a render walk.
type Warning struct {
	NodeID  string
	Tag     formtree.Tag
	Message string
}
