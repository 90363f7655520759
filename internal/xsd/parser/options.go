package parser

import (
	"github.com/go-logr/logr"

	"github.com/goliatone/go-xsdform/internal/xsd"
	"github.com/goliatone/go-xsdform/pkg/modules"
	"github.com/goliatone/go-xsdform/pkg/schema"
)

// DefaultNodeBudget bounds how many tree nodes a single generation pass may
// construct. Schemas whose combinatorial expansion exceeds it fail with
// ErrNodeBudget instead of exhausting memory.
const DefaultNodeBudget = 10000

// Option customises a Parser.
type Option func(*Parser)

// WithMinTree suppresses materializing optional and unselected branches
// until they are requested on demand.
func WithMinTree(enabled bool) Option {
	return func(p *Parser) { p.minTree = enabled }
}

// WithIgnoreModules disables module annotation handling entirely.
func WithIgnoreModules(enabled bool) Option {
	return func(p *Parser) { p.ignoreModules = enabled }
}

// WithCollapse marks generated list sections as collapsed by default.
func WithCollapse(enabled bool) Option {
	return func(p *Parser) { p.collapse = enabled }
}

// WithAutoKeyKeyref enables automatic module wiring of fields matching
// collected key/keyref declarations.
func WithAutoKeyKeyref(enabled bool) Option {
	return func(p *Parser) { p.autoKeyKeyref = enabled }
}

// WithImplicitExtensionBase controls whether the base type is itself offered
// as a selectable alternative when a simple type's extensions become an
// implicit choice. The complex-type path always offers the base; the two
// knobs are intentionally separate, see WithComplexImplicitBase.
func WithImplicitExtensionBase(enabled bool) Option {
	return func(p *Parser) { p.implicitExtensionBase = enabled }
}

// WithComplexImplicitBase controls the same offer on the complex-type path.
func WithComplexImplicitBase(enabled bool) Option {
	return func(p *Parser) { p.complexImplicitBase = enabled }
}

// WithDownloadDependencies permits fetching imported schema documents during
// generation. When disabled, a lookup that would need a fetch fails hard.
func WithDownloadDependencies(enabled bool) Option {
	return func(p *Parser) { p.downloadDeps = enabled }
}

// WithStoreType records resolved type names on generated nodes.
func WithStoreType(enabled bool) Option {
	return func(p *Parser) { p.storeType = enabled }
}

// WithNodeBudget overrides the generation node ceiling.
func WithNodeBudget(budget int) Option {
	return func(p *Parser) {
		if budget > 0 {
			p.nodeBudget = budget
		}
	}
}

// WithModuleTag overrides the app-info directive name that binds modules.
func WithModuleTag(tag string) Option {
	return func(p *Parser) {
		if tag != "" {
			p.moduleTag = tag
		}
	}
}

// WithCatalog injects the module catalog used to validate and resolve
// module annotations.
func WithCatalog(catalog *modules.Catalog) Option {
	return func(p *Parser) { p.catalog = catalog }
}

// WithFetcher injects the schema fetch collaborator.
func WithFetcher(fetcher schema.Fetcher) Option {
	return func(p *Parser) { p.fetcher = fetcher }
}

// WithFlattener injects the include-flattening collaborator.
func WithFlattener(flattener schema.Flattener) Option {
	return func(p *Parser) { p.flattener = flattener }
}

// WithLogger injects the logger used for recovered resolution misses.
func WithLogger(log logr.Logger) Option {
	return func(p *Parser) { p.log = log }
}

// Parser is the generation engine: a recursive descent over a flattened
// schema document, optionally reconciled against an existing XML instance,
// producing a form-structure tree.
type Parser struct {
	minTree               bool
	ignoreModules         bool
	collapse              bool
	autoKeyKeyref         bool
	implicitExtensionBase bool
	complexImplicitBase   bool
	downloadDeps          bool
	storeType             bool
	nodeBudget            int
	moduleTag             string
	catalog               *modules.Catalog
	fetcher               schema.Fetcher
	flattener             schema.Flattener
	log                   logr.Logger
}

// New constructs a Parser with the given options.
func New(options ...Option) *Parser {
	p := &Parser{
		minTree:             true,
		autoKeyKeyref:       true,
		complexImplicitBase: true,
		downloadDeps:        true,
		nodeBudget:          DefaultNodeBudget,
		moduleTag:           xsd.DefaultModuleTag,
		log:                 logr.Discard(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	return p
}
