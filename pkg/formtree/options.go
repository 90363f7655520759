package formtree

// Options carries the tag-specific payload of a Node. The field set is
// closed on purpose: generation writes only the fields relevant to the
// node's tag and renderers read them without string-keyed lookups.
type Options struct {
	// Occurrence bounds. Max == Unbounded means no upper bound.
	Min int `json:"min,omitempty"`
	Max int `json:"max,omitempty"`

	// Paired addressing: where the construct lives in the schema document
	// and where its data lives in the instance document.
	XSDPath string `json:"xsd_xpath,omitempty"`
	XMLPath string `json:"xml_xpath,omitempty"`

	// Namespace of the construct and the prefix it resolves through.
	Xmlns    string `json:"xmlns,omitempty"`
	NSPrefix string `json:"ns_prefix,omitempty"`

	// Display metadata collected from annotation app-info, plus the
	// generation-time collapse default picked up by the list renderer.
	Label       string `json:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Tooltip     string `json:"tooltip,omitempty"`
	Use         string `json:"use,omitempty"`
	Fixed       string `json:"fixed,omitempty"`
	Collapse    bool   `json:"collapse,omitempty"`

	// Module payload, present only on module nodes.
	ModuleURL      string `json:"url,omitempty"`
	ModuleData     string `json:"data,omitempty"`
	ModuleAttrs    string `json:"attributes,omitempty"`
	ModuleParams   string `json:"params,omitempty"`
	ModuleMultiple bool   `json:"multiple,omitempty"`

	// Location of the schema document the construct came from, set when
	// type resolution crossed an import boundary.
	SchemaLocation string `json:"schema_location,omitempty"`

	// Type name selected through an implicit extension choice, rendered
	// back as xsi:type.
	TypeName string `json:"type_name,omitempty"`

	// Collected constraint maps, populated on the tree root only.
	Keys    map[string]*Key    `json:"keys,omitempty"`
	Keyrefs map[string]*Keyref `json:"keyrefs,omitempty"`
}

// Key records one xsd:key declaration: the normalized selector+field xpath
// and the modules registered against it.
type Key struct {
	XPath     string   `json:"xpath"`
	ModuleIDs []string `json:"module_ids"`
	Module    string   `json:"module,omitempty"`
}

// Keyref records one xsd:keyref declaration and the key name it refers to.
type Keyref struct {
	XPath     string   `json:"xpath"`
	Refer     string   `json:"refer"`
	ModuleIDs []string `json:"module_ids"`
}
