package formtree

import (
	"fmt"
	"regexp"
	"strings"
)

var trailingIndex = regexp.MustCompile(`\[(\d+)\]$`)

// RenumberIterations rewrites the positional indices stored in the xml
// xpaths of parent's iteration children after a structural edit (an
// iteration added or removed mid-list). The i-th iteration's subtree gets
// its xpath prefix re-indexed to [i+1].
func RenumberIterations(parent *Node) {
	iters := parent.Iterations()
	for i, iter := range iters {
		oldPrefix := iter.Options.XMLPath
		if oldPrefix == "" {
			continue
		}
		newPrefix := trailingIndex.ReplaceAllString(oldPrefix, fmt.Sprintf("[%d]", i+1))
		if newPrefix == oldPrefix {
			continue
		}
		RewritePathPrefix(iter, oldPrefix, newPrefix)
	}
}

// RewritePathPrefix replaces the xml xpath prefix on n and every descendant
// whose path starts with the old prefix.
func RewritePathPrefix(n *Node, oldPrefix, newPrefix string) {
	Walk(n, func(d *Node) bool {
		if d.Options.XMLPath != "" && strings.HasPrefix(d.Options.XMLPath, oldPrefix) {
			d.Options.XMLPath = newPrefix + strings.TrimPrefix(d.Options.XMLPath, oldPrefix)
		}
		return true
	})
}

// NormalizeXPath strips positional indices and namespace prefixes from a
// compound xpath so that key/keyref field paths compare structurally.
// "ex:order[2]/ex:item/@id" becomes "order/item/@id".
func NormalizeXPath(path string) string {
	steps := strings.Split(path, "/")
	out := make([]string, 0, len(steps))
	for _, step := range steps {
		step = indexAnywhere.ReplaceAllString(step, "")
		if m := wildcardLocal.FindStringSubmatch(step); m != nil {
			out = append(out, m[1])
			continue
		}
		attr := strings.HasPrefix(step, "@")
		step = strings.TrimPrefix(step, "@")
		if idx := strings.Index(step, ":"); idx >= 0 {
			step = step[idx+1:]
		}
		if attr {
			step = "@" + step
		}
		out = append(out, step)
	}
	return strings.Join(out, "/")
}

var indexAnywhere = regexp.MustCompile(`\[\d+\]`)
var wildcardLocal = regexp.MustCompile(`^\*\[local-name\(\)='([^']+)'\]$`)
