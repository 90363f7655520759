package xsd

import "fmt"

// BuildXPath constructs the instance-document xpath step for an element or
// attribute and appends it to base. The output is deterministic: generation
// uses it both to address nodes for re-rendering and to locate matches in an
// existing instance while editing.
//
// Qualification follows the schema's form rules: qualified steps carry the
// target namespace prefix (falling back to a local-name wildcard when the
// document declares no prefix for it), unqualified steps match by local
// name through a wildcard so instance documents with arbitrary prefixes
// still match.
func BuildXPath(base, tag, name, targetNS, prefix string, isRef, qualified bool) string {
	var step string
	switch tag {
	case "attribute":
		step = "@" + name
		if qualified && prefix != "" {
			step = "@" + prefix + ":" + name
		}
	default:
		// Global declarations (the document root, ref targets) are always
		// namespace-qualified regardless of elementFormDefault.
		if base == "" || isRef {
			qualified = true
		}
		switch {
		case targetNS == "":
			step = name
		case qualified && prefix != "":
			step = prefix + ":" + name
		default:
			step = fmt.Sprintf("*[local-name()='%s']", name)
		}
	}
	if base == "" {
		return "/" + step
	}
	return base + "/" + step
}
