package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/goliatone/go-xsdform/pkg/orchestrator"
	"github.com/goliatone/go-xsdform/pkg/schema"
)

func main() {
	schemaFlag := flag.String("schema", "schema.xsd", "schema document path or URL")
	instance := flag.String("instance", "", "existing XML document to edit (optional)")
	renderer := flag.String("renderer", "list", "renderer to use: list, table or xml")
	output := flag.String("out", "", "output file (stdout if empty)")
	flag.Parse()

	ctx := context.Background()

	src := parseSource(*schemaFlag)
	if src == nil {
		log.Fatalf("invalid schema location: %q", *schemaFlag)
	}

	var instanceBytes []byte
	if *instance != "" {
		data, err := os.ReadFile(*instance)
		if err != nil {
			log.Fatalf("Failed to read instance: %v", err)
		}
		instanceBytes = data
	}

	gen := orchestrator.New()

	result, err := gen.Generate(ctx, orchestrator.Request{
		Source:   src,
		Instance: instanceBytes,
		Renderer: *renderer,
	})
	if err != nil {
		log.Fatalf("Failed to generate form: %v", err)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: skipped node %s (%s): %s\n", warning.NodeID, warning.Tag, warning.Message)
	}

	if *output != "" {
		if err := os.WriteFile(*output, result.Output, 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Printf("Form written to %s\n", *output)
	} else {
		fmt.Println(string(result.Output))
	}
}

func parseSource(raw string) schema.Source {
	path := strings.TrimSpace(raw)
	if path == "" {
		return nil
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return schema.SourceFromURL(path)
	}
	return schema.SourceFromFile(path)
}
