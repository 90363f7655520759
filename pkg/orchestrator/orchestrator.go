// Package orchestrator coordinates the full pipeline from schema document
// to rendered form: fetch, flatten, generate, persist, render. It applies
// sensible defaults (in-memory store, built-in modules, the three stock
// renderers) while remaining open to dependency injection.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/goliatone/go-xsdform/internal/xsd/parser"
	"github.com/goliatone/go-xsdform/pkg/formtree"
	"github.com/goliatone/go-xsdform/pkg/modules"
	"github.com/goliatone/go-xsdform/pkg/render"
	"github.com/goliatone/go-xsdform/pkg/renderers/list"
	"github.com/goliatone/go-xsdform/pkg/renderers/table"
	"github.com/goliatone/go-xsdform/pkg/renderers/xmlout"
	"github.com/goliatone/go-xsdform/pkg/schema"
)

const defaultRendererName = "list"

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithFetcher injects a custom schema fetcher.
func WithFetcher(fetcher schema.Fetcher) Option {
	return func(o *Orchestrator) { o.fetcher = fetcher }
}

// WithFlattener injects a custom include flattener.
func WithFlattener(flattener schema.Flattener) Option {
	return func(o *Orchestrator) { o.flattener = flattener }
}

// WithLoader injects the loader that resolves request sources into schema
// documents. When omitted, one is built around the configured fetcher.
func WithLoader(loader *schema.Loader) Option {
	return func(o *Orchestrator) { o.loader = loader }
}

// WithStore injects the tree store generated forms are persisted to.
func WithStore(store formtree.Store) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithCatalog injects the module catalog. When omitted, a catalog holding
// the built-in key/keyref widgets is created.
func WithCatalog(catalog *modules.Catalog) Option {
	return func(o *Orchestrator) { o.catalog = catalog }
}

// WithRegistry injects a renderer registry. When omitted, the list, table
// and xml renderers are registered against the orchestrator's catalog.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) { o.registry = registry }
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) { o.defaultRenderer = name }
}

// WithParserOptions forwards options to the generation engine, on top of
// the collaborators the orchestrator wires in itself.
func WithParserOptions(options ...parser.Option) Option {
	return func(o *Orchestrator) {
		o.parserOptions = append(o.parserOptions, options...)
	}
}

// WithLogger injects the logger shared by the orchestrator's defaults.
func WithLogger(log logr.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// Orchestrator drives schema documents through generation and rendering.
type Orchestrator struct {
	fetcher         schema.Fetcher
	flattener       schema.Flattener
	loader          *schema.Loader
	store           formtree.Store
	catalog         *modules.Catalog
	registry        *render.Registry
	defaultRenderer string
	parserOptions   []parser.Option
	parser          *parser.Parser
	log             logr.Logger
	defaultsApplied bool
}

// New constructs an Orchestrator applying any provided options. Missing
// dependencies are initialised with the built-in implementations so callers
// can start with a single constructor call.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		log:             logr.Discard(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes the inputs required to render a form from a schema.
type Request struct {
	// Source identifies where the schema document lives. Optional when
	// Schema is supplied.
	Source schema.Source

	// Schema allows callers to bypass the fetcher when they already hold
	// the document bytes.
	Schema []byte

	// Instance optionally carries an existing XML document; the generated
	// form is reconciled against it.
	Instance []byte

	// Renderer names the renderer to use. If empty, the orchestrator falls
	// back to the configured default renderer.
	Renderer string

	// RenderOptions carries per-request rendering instructions. When
	// omitted, renderers receive the zero-value struct.
	RenderOptions render.RenderOptions
}

// Result is the outcome of a Generate or Materialize call.
type Result struct {
	// Output holds the rendered bytes.
	Output []byte

	// ContentType is the media type of Output, as reported by the renderer.
	ContentType string

	// Warnings lists the subtrees the renderer skipped.
	Warnings []render.Warning

	// Root is the persisted tree node the output was rendered from. After
	// Generate it is the form root; after Materialize, the regenerated node.
	Root *formtree.Node
}

// Generate executes the fetch → generate → persist → render sequence and
// returns the rendered output together with the persisted tree root.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	schemaBytes, err := o.resolveSchema(ctx, req)
	if err != nil {
		return nil, err
	}

	root, err := o.parser.GenerateForm(ctx, schemaBytes, req.Instance)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: generate form: %w", err)
	}

	if err := o.store.Create(root); err != nil {
		return nil, fmt.Errorf("orchestrator: persist tree: %w", err)
	}

	return o.render(ctx, root, req.Renderer, req.RenderOptions)
}

// Kind selects which absent construct Materialize regenerates.
type Kind string

const (
	// KindElement appends one occurrence of a suppressed or exhausted
	// element or attribute declaration.
	KindElement Kind = "element"
	// KindSequence appends one iteration of a repeating sequence.
	KindSequence Kind = "sequence"
	// KindChoice appends one iteration of a repeating choice.
	KindChoice Kind = "choice"
	// KindAlternative fills a shell alternative in place and selects it.
	KindAlternative Kind = "alternative"
)

// MaterializeRequest describes an on-demand regeneration of a branch the
// initial minimal-tree pass left out.
type MaterializeRequest struct {
	// NodeID addresses the persisted declaration (or, for KindAlternative,
	// the choice iteration) to grow.
	NodeID string

	// AlternativeID selects the shell child to fill. Only meaningful for
	// KindAlternative.
	AlternativeID string

	// Source and Schema locate the schema document, with the same
	// precedence as in Request.
	Source schema.Source
	Schema []byte

	// Kind names the construct being regenerated.
	Kind Kind

	// Renderer and RenderOptions control the partial render of the
	// regenerated branch.
	Renderer      string
	RenderOptions render.RenderOptions
}

// Materialize regenerates an absent branch against the persisted tree and
// returns a partial render of the new node, ready for client-side splicing.
func (o *Orchestrator) Materialize(ctx context.Context, req MaterializeRequest) (*Result, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.NodeID == "" {
		return nil, errors.New("orchestrator: node id is required")
	}

	schemaBytes, err := o.resolveSchema(ctx, Request{Source: req.Source, Schema: req.Schema})
	if err != nil {
		return nil, err
	}

	var node *formtree.Node
	switch req.Kind {
	case KindElement, "":
		node, err = o.parser.GenerateElementAbsent(ctx, o.store, schemaBytes, req.NodeID)
	case KindSequence:
		node, err = o.parser.GenerateSequenceAbsent(ctx, o.store, schemaBytes, req.NodeID)
	case KindChoice:
		node, err = o.parser.GenerateChoiceAbsent(ctx, o.store, schemaBytes, req.NodeID)
	case KindAlternative:
		if req.AlternativeID == "" {
			return nil, errors.New("orchestrator: alternative id is required")
		}
		node, err = o.parser.MaterializeAlternative(ctx, o.store, schemaBytes, req.NodeID, req.AlternativeID)
	default:
		return nil, fmt.Errorf("orchestrator: unknown materialize kind %q", req.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("orchestrator: materialize %s: %w", kindName(req.Kind), err)
	}

	options := req.RenderOptions
	options.Partial = true
	return o.render(ctx, node, req.Renderer, options)
}

func kindName(kind Kind) string {
	if kind == "" {
		return string(KindElement)
	}
	return string(kind)
}

func (o *Orchestrator) render(ctx context.Context, node *formtree.Node, name string, options render.RenderOptions) (*Result, error) {
	renderer, err := o.rendererFor(name)
	if err != nil {
		return nil, err
	}

	output, warnings, err := renderer.Render(ctx, node, options)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}

	return &Result{
		Output:      output,
		ContentType: renderer.ContentType(),
		Warnings:    warnings,
		Root:        node,
	}, nil
}

func (o *Orchestrator) resolveSchema(ctx context.Context, req Request) ([]byte, error) {
	if len(req.Schema) > 0 {
		return req.Schema, nil
	}
	if req.Source == nil {
		return nil, errors.New("orchestrator: source or schema is required")
	}
	doc, err := o.loader.Load(ctx, req.Source)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: fetch schema: %w", err)
	}
	return doc.Raw(), nil
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}

	target := name
	if target == "" {
		target = o.defaultRenderer
	}

	if target != "" {
		renderer, err := o.registry.Get(target)
		if err == nil {
			return renderer, nil
		}
		if name != "" {
			return nil, fmt.Errorf("orchestrator: renderer %q: %w", name, err)
		}
	}

	names := o.registry.List()
	if len(names) == 0 {
		return nil, errors.New("orchestrator: no renderers registered")
	}

	renderer, err := o.registry.Get(names[0])
	if err != nil {
		return nil, fmt.Errorf("orchestrator: renderer %q: %w", names[0], err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyDefaults() {
	if o.defaultsApplied {
		return
	}

	if o.fetcher == nil {
		o.fetcher = schema.NewHTTPFetcher()
	}
	if o.flattener == nil {
		o.flattener = schema.NewIncludeFlattener(o.fetcher)
	}
	if o.loader == nil {
		o.loader = schema.NewLoader(schema.WithLoaderFetcher(o.fetcher))
	}
	if o.store == nil {
		o.store = formtree.NewMemoryStore()
	}
	if o.catalog == nil {
		o.catalog = modules.NewCatalog()
		modules.RegisterBuiltins(o.catalog, o.store)
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		o.registry.MustRegister(list.New(list.WithCatalog(o.catalog), list.WithLogger(o.log)))
		o.registry.MustRegister(table.New(table.WithCatalog(o.catalog), table.WithLogger(o.log)))
		o.registry.MustRegister(xmlout.New(xmlout.WithCatalog(o.catalog), xmlout.WithLogger(o.log)))
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}

	options := append([]parser.Option{
		parser.WithFetcher(o.fetcher),
		parser.WithFlattener(o.flattener),
		parser.WithCatalog(o.catalog),
		parser.WithLogger(o.log),
	}, o.parserOptions...)
	o.parser = parser.New(options...)

	o.defaultsApplied = true
}
