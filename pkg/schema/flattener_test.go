package schema

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

const includingSchema = `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:test" xmlns="urn:test">
  <xs:include schemaLocation="types.xsd"/>
  <xs:element name="order" type="OrderType"/>
</xs:schema>`

const includedSchema = `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:test" xmlns="urn:test">
  <xs:complexType name="OrderType">
    <xs:sequence>
      <xs:element name="id" type="xs:string"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`

func TestIncludeFlattener_SplicesDeclarations(t *testing.T) {
	fetcher := FetcherFunc(func(_ context.Context, location string) ([]byte, error) {
		if location != "types.xsd" {
			return nil, fmt.Errorf("unexpected location %q", location)
		}
		return []byte(includedSchema), nil
	})

	flattener := NewIncludeFlattener(fetcher)
	out, err := flattener.Flatten(context.Background(), []byte(includingSchema), "main.xsd")
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}

	flat := string(out)
	if strings.Contains(flat, "include") {
		t.Fatalf("include directive survived flattening:\n%s", flat)
	}
	if !strings.Contains(flat, `name="OrderType"`) {
		t.Fatalf("included declaration missing:\n%s", flat)
	}
	if !strings.Contains(flat, `name="order"`) {
		t.Fatalf("original declaration missing:\n%s", flat)
	}
}

func TestIncludeFlattener_Idempotent(t *testing.T) {
	flattener := NewIncludeFlattener(nil)
	out, err := flattener.Flatten(context.Background(), []byte(includedSchema), "")
	if err != nil {
		t.Fatalf("flatten flat document: %v", err)
	}
	if !strings.Contains(string(out), `name="OrderType"`) {
		t.Fatalf("flat document mangled:\n%s", out)
	}
}

func TestIncludeFlattener_CycleTerminates(t *testing.T) {
	cyclic := `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:include schemaLocation="self.xsd"/>
  <xs:element name="a" type="xs:string"/>
</xs:schema>`
	fetcher := FetcherFunc(func(_ context.Context, _ string) ([]byte, error) {
		return []byte(cyclic), nil
	})

	flattener := NewIncludeFlattener(fetcher)
	out, err := flattener.Flatten(context.Background(), []byte(cyclic), "self.xsd")
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	if strings.Count(string(out), `name="a"`) != 1 {
		t.Fatalf("expected a single declaration after cycle break:\n%s", out)
	}
}
