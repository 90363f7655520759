package schema

import (
	"context"
	"testing"
	"testing/fstest"
)

func TestLoaderFSSource(t *testing.T) {
	fsys := fstest.MapFS{
		"schemas/note.xsd": &fstest.MapFile{Data: []byte("<schema/>")},
	}
	l := NewLoader(WithLoaderFS(fsys))

	doc, err := l.Load(context.Background(), SourceFromFS("schemas/note.xsd"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(doc.Raw()) != "<schema/>" {
		t.Fatalf("Raw = %q", doc.Raw())
	}
	if doc.Location() != "schemas/note.xsd" {
		t.Fatalf("Location = %q", doc.Location())
	}
	if doc.Source().Kind() != SourceKindFS {
		t.Fatalf("Kind = %q", doc.Source().Kind())
	}
}

func TestLoaderFSSourceWithoutFilesystem(t *testing.T) {
	l := NewLoader()

	if _, err := l.Load(context.Background(), SourceFromFS("note.xsd")); err == nil {
		t.Fatal("fs source without a configured filesystem must fail")
	}
}

func TestLoaderDispatchesToFetcher(t *testing.T) {
	var fetched string
	l := NewLoader(WithLoaderFetcher(FetcherFunc(func(ctx context.Context, location string) ([]byte, error) {
		fetched = location
		return []byte("<schema/>"), nil
	})))

	doc, err := l.Load(context.Background(), SourceFromFile("note.xsd"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fetched != "note.xsd" {
		t.Fatalf("fetched = %q", fetched)
	}
	if doc.Source().Kind() != SourceKindFile {
		t.Fatalf("Kind = %q", doc.Source().Kind())
	}
}

func TestLoaderRequiresSource(t *testing.T) {
	if _, err := NewLoader().Load(context.Background(), nil); err == nil {
		t.Fatal("nil source must fail")
	}
}

func TestDocumentValidation(t *testing.T) {
	if _, err := NewDocument(nil, []byte("x")); err == nil {
		t.Fatal("nil source must fail")
	}
	if _, err := NewDocument(SourceFromFile("a.xsd"), nil); err == nil {
		t.Fatal("empty payload must fail")
	}
}

func TestDocumentRawIsACopy(t *testing.T) {
	raw := []byte("<schema/>")
	doc := MustNewDocument(SourceFromFile("a.xsd"), raw)

	got := doc.Raw()
	got[1] = 'X'
	if string(doc.Raw()) != "<schema/>" {
		t.Fatal("Raw must return a defensive copy")
	}
}

func TestSourceFromURLValidation(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("invalid URL must panic")
		}
	}()
	SourceFromURL("://missing-scheme")
}
