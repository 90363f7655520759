package schema

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithLoaderFetcher injects the fetcher used for file and URL sources.
func WithLoaderFetcher(fetcher Fetcher) LoaderOption {
	return func(l *Loader) { l.fetcher = fetcher }
}

// WithLoaderFS supplies the filesystem backing fs sources, typically an
// embed.FS holding bundled schemas.
func WithLoaderFS(fsys fs.FS) LoaderOption {
	return func(l *Loader) { l.fsys = fsys }
}

// Loader resolves a Source into a Document, dispatching on the source kind:
// file and URL sources go through the fetcher, fs sources read from the
// configured filesystem.
type Loader struct {
	fetcher Fetcher
	fsys    fs.FS
}

// NewLoader constructs a Loader applying any provided options. A default
// HTTP + filesystem fetcher is used when none is injected.
func NewLoader(options ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	if l.fetcher == nil {
		l.fetcher = NewHTTPFetcher()
	}
	return l
}

// Load reads the document the source identifies and wraps it with its
// origin metadata.
func (l *Loader) Load(ctx context.Context, src Source) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema loader: source is required")
	}

	var (
		data []byte
		err  error
	)
	switch src.Kind() {
	case SourceKindFS:
		if l.fsys == nil {
			return Document{}, errors.New("schema loader: fs source given but no filesystem configured")
		}
		data, err = fs.ReadFile(l.fsys, src.Location())
	default:
		data, err = l.fetcher.Fetch(ctx, src.Location())
	}
	if err != nil {
		return Document{}, fmt.Errorf("schema loader: load %q: %w", src.Location(), err)
	}
	return NewDocument(src, data)
}
