package parser

import (
	"errors"
	"fmt"
)

// Failure taxonomy surfaced by GenerateForm. Everything else the walk hits
// is either recovered locally (reference misses degrade to plain inputs or
// skipped constructs) or wrapped into a ParseError.
var (
	// ErrNoRoot means the schema offers no global element or type to hang
	// a form on.
	ErrNoRoot = errors.New("xsd parser: no possible root element")

	// ErrNodeBudget means generation hit the configured node ceiling. The
	// message is deliberately distinct so operators know to check the
	// limit rather than the schema.
	ErrNodeBudget = errors.New("xsd parser: node budget exceeded, check the configured generation limit")

	// ErrModuleUnresolved means a structurally required module could not
	// be resolved in the catalog.
	ErrModuleUnresolved = errors.New("xsd parser: module not registered in catalog")

	// ErrOccurrenceLimit means an absent-subtree call tried to add an
	// iteration past the construct's maxOccurs.
	ErrOccurrenceLimit = errors.New("xsd parser: occurrence limit reached")
)

// ParseError is the single caller-visible failure class of a generation
// pass. When it is returned no partial tree is usable.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("xsd parser: generation failed: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
