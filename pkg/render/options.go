package render

// RenderOptions describe per-request data renderers use to customise their
// output without mutating the tree.
type RenderOptions struct {
	// Partial renders from an arbitrary subtree instead of the document
	// root, changing how the top-level wrapper is addressed. Used for
	// incremental re-render after a targeted regeneration.
	Partial bool

	// EscapeValues controls entity escaping of leaf values. Unset means
	// enabled; disabling is only safe for trusted tree content.
	EscapeValues *bool
}

// Escape reports the effective escaping policy.
func (o RenderOptions) Escape() bool {
	return o.EscapeValues == nil || *o.EscapeValues
}
