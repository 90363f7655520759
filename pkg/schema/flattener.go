package schema

import (
	"context"
	"fmt"

	"aqwari.net/xml/xmltree"
)

// XSDNamespace is the XML Schema namespace URI.
const XSDNamespace = "http://www.w3.org/2001/XMLSchema"

// Flattener resolves xs:include directives so the generation engine only
// ever sees a single self-contained schema document. Implementations must be
// idempotent: flattening an already flat document is a no-op.
type Flattener interface {
	Flatten(ctx context.Context, doc []byte, baseLocation string) ([]byte, error)
}

// FlattenerFunc adapts a function to the Flattener interface.
type FlattenerFunc func(ctx context.Context, doc []byte, baseLocation string) ([]byte, error)

func (f FlattenerFunc) Flatten(ctx context.Context, doc []byte, baseLocation string) ([]byte, error) {
	return f(ctx, doc, baseLocation)
}

// IncludeFlattener splices the top-level declarations of every included
// document into the including one, recursively. Includes are resolved
// through a Fetcher; a location is fetched at most once per call so include
// cycles terminate.
type IncludeFlattener struct {
	fetcher Fetcher
}

// NewIncludeFlattener constructs a flattener backed by the given fetcher.
func NewIncludeFlattener(fetcher Fetcher) *IncludeFlattener {
	return &IncludeFlattener{fetcher: fetcher}
}

func (f *IncludeFlattener) Flatten(ctx context.Context, doc []byte, baseLocation string) ([]byte, error) {
	root, err := xmltree.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("schema flattener: parse: %w", err)
	}

	seen := map[string]struct{}{}
	if baseLocation != "" {
		seen[baseLocation] = struct{}{}
	}
	if err := f.flattenInto(ctx, root, seen); err != nil {
		return nil, err
	}
	return xmltree.Marshal(root), nil
}

func (f *IncludeFlattener) flattenInto(ctx context.Context, root *xmltree.Element, seen map[string]struct{}) error {
	var merged []xmltree.Element
	for _, child := range root.Children {
		if child.Name.Space != XSDNamespace || child.Name.Local != "include" {
			merged = append(merged, child)
			continue
		}
		location := child.Attr("", "schemaLocation")
		if location == "" {
			continue
		}
		if _, dup := seen[location]; dup {
			continue
		}
		seen[location] = struct{}{}

		if f.fetcher == nil {
			return fmt.Errorf("schema flattener: include %q but no fetcher configured", location)
		}
		data, err := f.fetcher.Fetch(ctx, location)
		if err != nil {
			return fmt.Errorf("schema flattener: include %q: %w", location, err)
		}
		included, err := xmltree.Parse(data)
		if err != nil {
			return fmt.Errorf("schema flattener: parse include %q: %w", location, err)
		}
		if err := f.flattenInto(ctx, included, seen); err != nil {
			return err
		}
		merged = append(merged, included.Children...)
	}
	root.Children = merged
	return nil
}
