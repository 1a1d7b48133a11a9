// Package directive resolves @platform conditional blocks. This is a purely
// textual pass: blocks are identified by matching marker lines, never by
// AST position, so it works on any file the bundler loads regardless of
// whether the file parses.
//
// The pass is line-preserving in both directions. A kept block has its two
// marker lines blanked in place; an erased block becomes the same number of
// blank lines it used to occupy. Either way every line below keeps its
// original line number, which downstream stack traces and source maps
// depend on.
package directive

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/crosswire-dev/crosswire/core/platform"
)

// Marker is the substring every directive line contains. The orchestrator
// uses it as the cheap pre-check before running this pass.
const Marker = "@platform"

// blockPattern matches one whole directive block: a start marker line with
// its quoted tag, the inner text, and the end marker line. Matching is
// first-match and non-overlapping; nested blocks are undefined behavior.
//
// Submatches: 1 = tag, 2 = inner text.
var blockPattern = regexp.MustCompile(`(?m)^[^\n]*@platform[ \t]+"([^"\n]*)"[^\n]*\n((?s:.*?))^[^\n]*@platform[ \t]+end[^\n]*(?:\n|\z)`)

// Resolve applies every directive block in source against target. A block
// whose tag the target accepts is kept (markers blanked in place); any
// other block is erased to blank lines. A start marker without an end
// marker (or vice versa) simply never matches and passes through untouched.
func Resolve(source string, target platform.Target) string {
	if !strings.Contains(source, Marker) {
		return source
	}

	matches := blockPattern.FindAllStringSubmatchIndex(source, -1)
	if matches == nil {
		return source
	}

	var b strings.Builder
	b.Grow(len(source))
	last := 0
	for _, m := range matches {
		matchStart, matchEnd := m[0], m[1]
		tag := source[m[2]:m[3]]
		innerStart, innerEnd := m[4], m[5]

		b.WriteString(source[last:matchStart])
		if platform.Accepts(target, tag) {
			// Keep: inner text stays at its original lines, markers blank.
			b.WriteString(blankLines(source[matchStart:innerStart]))
			b.WriteString(source[innerStart:innerEnd])
			b.WriteString(blankLines(source[innerEnd:matchEnd]))
		} else {
			if !knownTag(tag) {
				logUnknownTag(tag)
			}
			b.WriteString(blankLines(source[matchStart:matchEnd]))
		}
		last = matchEnd
	}
	b.WriteString(source[last:])
	return b.String()
}

// blankLines reduces a region to its newlines, preserving line structure.
func blankLines(region string) string {
	return strings.Repeat("\n", strings.Count(region, "\n"))
}

func knownTag(tag string) bool {
	for _, t := range platform.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}

// logUnknownTag is advisory only: an unknown tag never matches any target,
// so the block is erased either way.
func logUnknownTag(tag string) {
	if closest := platform.SuggestTag(tag); closest != "" {
		slog.Debug("unknown platform tag in directive block", "tag", tag, "closest", closest)
		return
	}
	slog.Debug("unknown platform tag in directive block", "tag", tag)
}
