package xsdform

import (
	"context"

	"github.com/goliatone/go-xsdform/pkg/orchestrator"
	"github.com/goliatone/go-xsdform/pkg/render"
	"github.com/goliatone/go-xsdform/pkg/schema"
)

// RenderOptions describes per-request overrides renderers can use, such as
// disabling value escaping or requesting a partial fragment.
type RenderOptions = render.RenderOptions

// Request aliases the orchestrator request for callers using the root
// package entry points.
type Request = orchestrator.Request

// Result carries the rendered output and the persisted tree root.
type Result = orchestrator.Result

// MaterializeRequest describes an on-demand regeneration of an absent branch.
type MaterializeRequest = orchestrator.MaterializeRequest

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module so callers can wire custom stores, catalogs or renderers.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// GenerateHTML fetches the schema, generates a form tree, and renders it
// using the named renderer ("list" or "table"; empty picks the default). It
// is the simplest entry point for callers that just want HTML output.
func GenerateHTML(ctx context.Context, source schema.Source, rendererName string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	result, err := gen.Generate(ctx, orchestrator.Request{
		Source:   source,
		Renderer: rendererName,
	})
	if err != nil {
		return nil, err
	}
	return result.Output, nil
}

// GenerateHTMLFromSchema renders a form from already-loaded schema bytes,
// bypassing the fetcher stage while still delegating to the orchestrator.
func GenerateHTMLFromSchema(ctx context.Context, schemaBytes []byte, rendererName string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	result, err := gen.Generate(ctx, orchestrator.Request{
		Schema:   schemaBytes,
		Renderer: rendererName,
	})
	if err != nil {
		return nil, err
	}
	return result.Output, nil
}

// SerializeXML reconciles the form against an existing instance (pass nil
// for a fresh document) and serializes the tree back to XML.
func SerializeXML(ctx context.Context, schemaBytes, instanceBytes []byte, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	result, err := gen.Generate(ctx, orchestrator.Request{
		Schema:   schemaBytes,
		Instance: instanceBytes,
		Renderer: "xml",
	})
	if err != nil {
		return nil, err
	}
	return result.Output, nil
}
