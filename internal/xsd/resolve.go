package xsd

import (
	"context"
	"errors"
	"fmt"

	"aqwari.net/xml/xmltree"
	"github.com/go-logr/logr"

	"github.com/goliatone/go-xsdform/pkg/schema"
)

// Sentinel results of type/ref resolution. Callers degrade locally instead
// of failing generation: a builtin type becomes a plain input, a miss is
// logged and skipped.
var (
	// ErrNoUserType marks a type attribute naming an XSD builtin.
	ErrNoUserType = errors.New("xsd: no user-defined type")

	// ErrNotFound marks a type or ref lookup that found nothing.
	ErrNotFound = errors.New("xsd: declaration not found")

	// ErrDownloadDisabled marks a lookup that would need a remote fetch
	// while download of dependencies is disabled.
	ErrDownloadDisabled = errors.New("xsd: schema download disabled")
)

// DocResolver fetches and flattens imported schema documents on demand,
// caching by location so a generation pass touches each import once.
type DocResolver struct {
	fetcher   schema.Fetcher
	flattener schema.Flattener
	download  bool
	log       logr.Logger
	cache     map[string]*xmltree.Element
}

// NewDocResolver constructs a resolver. When download is false any attempt
// to fetch returns ErrDownloadDisabled.
func NewDocResolver(fetcher schema.Fetcher, flattener schema.Flattener, download bool, log logr.Logger) *DocResolver {
	return &DocResolver{
		fetcher:   fetcher,
		flattener: flattener,
		download:  download,
		log:       log,
		cache:     make(map[string]*xmltree.Element),
	}
}

// Resolve returns the flattened, parsed schema document at location.
func (r *DocResolver) Resolve(ctx context.Context, location string) (*xmltree.Element, error) {
	if doc, ok := r.cache[location]; ok {
		return doc, nil
	}
	if !r.download {
		return nil, fmt.Errorf("%w: needed %q", ErrDownloadDisabled, location)
	}
	if r.fetcher == nil {
		return nil, fmt.Errorf("xsd: no fetcher configured, needed %q", location)
	}
	data, err := r.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("xsd: fetch %q: %w", location, err)
	}
	if r.flattener != nil {
		if data, err = r.flattener.Flatten(ctx, data, location); err != nil {
			return nil, fmt.Errorf("xsd: flatten %q: %w", location, err)
		}
	}
	doc, err := xmltree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("xsd: parse %q: %w", location, err)
	}
	r.cache[location] = doc
	return doc, nil
}

// TypeRef is the result of a successful type resolution: the type
// declaration, the document it lives in, and the schema location actually
// used when the search crossed an import boundary.
type TypeRef struct {
	Type           *xmltree.Element
	Doc            *xmltree.Element
	SchemaLocation string
}

// ResolveType resolves the element's type: an immediately nested anonymous
// simpleType/complexType when no type attribute is present, otherwise a
// named type searched in the current document and, for foreign prefixes,
// through the matching import. Builtins return ErrNoUserType; a failed
// lookup returns ErrNotFound.
func ResolveType(ctx context.Context, el, doc *xmltree.Element, attrName string, resolver *DocResolver) (TypeRef, error) {
	if attrName == "" {
		attrName = "type"
	}
	typeName := el.Attr("", attrName)
	if typeName == "" {
		if inline := FirstChildNamed(el, "simpleType"); inline != nil {
			return TypeRef{Type: inline, Doc: doc}, nil
		}
		if inline := FirstChildNamed(el, "complexType"); inline != nil {
			return TypeRef{Type: inline, Doc: doc}, nil
		}
		return TypeRef{}, fmt.Errorf("%w: element %q has neither %s attribute nor inline type", ErrNoUserType, el.Attr("", "name"), attrName)
	}

	resolved := el.ResolveDefault(typeName, TargetNamespace(doc))
	if IsBuiltin(resolved) {
		return TypeRef{}, fmt.Errorf("%w: %s", ErrNoUserType, typeName)
	}

	if found := findNamedType(doc, resolved.Local); found != nil {
		return TypeRef{Type: found, Doc: doc}, nil
	}

	if resolved.Space != "" && resolved.Space != TargetNamespace(doc) {
		location, err := importLocation(doc, resolved.Space)
		if err != nil {
			return TypeRef{}, err
		}
		imported, err := resolver.Resolve(ctx, location)
		if err != nil {
			return TypeRef{}, err
		}
		if found := findNamedType(imported, resolved.Local); found != nil {
			return TypeRef{Type: found, Doc: imported, SchemaLocation: location}, nil
		}
		return TypeRef{}, fmt.Errorf("%w: type %q in %q", ErrNotFound, typeName, location)
	}

	return TypeRef{}, fmt.Errorf("%w: type %q", ErrNotFound, typeName)
}

// ResolveRef resolves a ns:name reference to a global declaration with the
// given tag (element, attribute), searching the current document or the
// import matching the reference's namespace.
func ResolveRef(ctx context.Context, doc *xmltree.Element, ref, tag string, resolver *DocResolver) (*xmltree.Element, *xmltree.Element, string, error) {
	resolved := doc.ResolveDefault(ref, TargetNamespace(doc))

	if resolved.Space == "" || resolved.Space == TargetNamespace(doc) {
		if found := findGlobal(doc, tag, resolved.Local); found != nil {
			return found, doc, "", nil
		}
		return nil, nil, "", fmt.Errorf("%w: %s ref %q", ErrNotFound, tag, ref)
	}

	location, err := importLocation(doc, resolved.Space)
	if err != nil {
		return nil, nil, "", err
	}
	imported, err := resolver.Resolve(ctx, location)
	if err != nil {
		return nil, nil, "", err
	}
	if found := findGlobal(imported, tag, resolved.Local); found != nil {
		return found, imported, location, nil
	}
	return nil, nil, "", fmt.Errorf("%w: %s ref %q in %q", ErrNotFound, tag, ref, location)
}

// ExtensionsOf returns every named complexType/simpleType in the document
// declaring an extension whose base resolves to the given type name.
func ExtensionsOf(doc *xmltree.Element, baseLocal string) []*xmltree.Element {
	var out []*xmltree.Element
	for _, kind := range []string{"complexType", "simpleType"} {
		for _, candidate := range ChildrenNamed(doc, kind) {
			if candidate.Attr("", "name") == "" {
				continue
			}
			extensions := candidate.SearchFunc(func(el *xmltree.Element) bool {
				return el.Name.Space == Namespace && el.Name.Local == "extension"
			})
			for _, ext := range extensions {
				base := ext.Resolve(ext.Attr("", "base"))
				if base.Local == baseLocal && !IsBuiltin(base) {
					out = append(out, candidate)
					break
				}
			}
		}
	}
	return out
}

func findNamedType(doc *xmltree.Element, local string) *xmltree.Element {
	for _, kind := range []string{"simpleType", "complexType"} {
		for _, candidate := range ChildrenNamed(doc, kind) {
			if candidate.Attr("", "name") == local {
				return candidate
			}
		}
	}
	return nil
}

func findGlobal(doc *xmltree.Element, tag, local string) *xmltree.Element {
	for _, candidate := range ChildrenNamed(doc, tag) {
		if candidate.Attr("", "name") == local {
			return candidate
		}
	}
	return nil
}

func importLocation(doc *xmltree.Element, ns string) (string, error) {
	for _, imp := range ChildrenNamed(doc, "import") {
		if imp.Attr("", "namespace") == ns {
			location := imp.Attr("", "schemaLocation")
			if location == "" {
				return "", fmt.Errorf("%w: import of %q has no schemaLocation", ErrNotFound, ns)
			}
			return location, nil
		}
	}
	return "", fmt.Errorf("%w: no import for namespace %q", ErrNotFound, ns)
}
