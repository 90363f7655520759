package xsd

import (
	"regexp"
	"strconv"
	"strings"

	"aqwari.net/xml/xmltree"
)

// The evaluator below covers exactly the xpath dialect BuildXPath emits:
// absolute paths of element steps (prefixed, bare, or local-name
// wildcards), optional positional indices, and an optional trailing
// attribute step. It is used to reconcile a schema shape against an
// existing instance document while editing.

type pathStep struct {
	local    string
	prefix   string
	wildcard bool
	attr     bool
	index    int // 1-based, 0 means all
}

var wildcardStep = regexp.MustCompile(`^\*\[local-name\(\)='([^']+)'\](?:\[(\d+)\])?$`)
var indexSuffix = regexp.MustCompile(`^(.*?)\[(\d+)\]$`)

func parsePath(path string) []pathStep {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return nil
	}
	// Wildcard steps contain no '/', so a plain split is safe for the
	// dialect we emit.
	parts := strings.Split(trimmed, "/")
	steps := make([]pathStep, 0, len(parts))
	for _, part := range parts {
		var step pathStep
		if m := wildcardStep.FindStringSubmatch(part); m != nil {
			step.wildcard = true
			step.local = m[1]
			if m[2] != "" {
				step.index, _ = strconv.Atoi(m[2])
			}
			steps = append(steps, step)
			continue
		}
		if m := indexSuffix.FindStringSubmatch(part); m != nil {
			part = m[1]
			step.index, _ = strconv.Atoi(m[2])
		}
		if strings.HasPrefix(part, "@") {
			step.attr = true
			part = strings.TrimPrefix(part, "@")
		}
		if idx := strings.Index(part, ":"); idx >= 0 {
			step.prefix = part[:idx]
			part = part[idx+1:]
		}
		step.local = part
		steps = append(steps, step)
	}
	return steps
}

func (s pathStep) matches(el *xmltree.Element, ns map[string]string) bool {
	if el.Name.Local != s.local {
		return false
	}
	if s.prefix != "" {
		if want, ok := ns[s.prefix]; ok {
			return el.Name.Space == want
		}
	}
	return true
}

// FindElements returns the instance elements the path addresses, in
// document order. The first step must match the document root. Positional
// indices select the n-th match among an element's own children.
func FindElements(root *xmltree.Element, path string, ns map[string]string) []*xmltree.Element {
	steps := parsePath(path)
	if len(steps) == 0 || steps[0].attr {
		return nil
	}
	if !steps[0].matches(root, ns) {
		return nil
	}
	current := []*xmltree.Element{root}
	for _, step := range steps[1:] {
		if step.attr {
			return nil
		}
		var next []*xmltree.Element
		for _, parent := range current {
			var matched []*xmltree.Element
			for i := range parent.Children {
				child := &parent.Children[i]
				if step.matches(child, ns) {
					matched = append(matched, child)
				}
			}
			if step.index > 0 {
				if step.index <= len(matched) {
					next = append(next, matched[step.index-1])
				}
				continue
			}
			next = append(next, matched...)
		}
		current = next
		if len(current) == 0 {
			return nil
		}
	}
	return current
}

// FindAttributeValues returns the values of the attribute the path's
// trailing @step addresses, one per matched owner element.
func FindAttributeValues(root *xmltree.Element, path string, ns map[string]string) []string {
	steps := parsePath(path)
	if len(steps) < 2 {
		return nil
	}
	last := steps[len(steps)-1]
	if !last.attr {
		return nil
	}
	ownerPath := path[:strings.LastIndex(path, "/")]
	owners := FindElements(root, ownerPath, ns)
	var out []string
	for _, owner := range owners {
		for _, a := range owner.StartElement.Attr {
			if a.Name.Local == last.local {
				out = append(out, a.Value)
				break
			}
		}
	}
	return out
}

// ElementText returns the text content of a leaf instance element with
// surrounding whitespace trimmed. Elements with child elements return the
// empty string.
func ElementText(el *xmltree.Element) string {
	if el == nil || len(el.Children) > 0 {
		return ""
	}
	return strings.TrimSpace(string(el.Content))
}

// StripIndex removes a trailing positional index from the path, so
// occurrence counting sees every sibling match.
func StripIndex(path string) string {
	if m := indexSuffix.FindStringSubmatch(path); m != nil {
		return m[1]
	}
	return path
}
