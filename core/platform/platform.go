// Package platform defines the build targets crosswire can produce and the
// matrix of platform tags each target accepts.
//
// The matrix is the external contract every compilation pass relies on: it
// is total and deterministic, and unknown tags never match any target.
package platform

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Target is a build target, chosen once per build invocation.
type Target int

const (
	// NodeServer is the Node.js server target.
	NodeServer Target = iota
	// EdgeWorker is the edge/serverless worker target.
	EdgeWorker
	// BrowserWeb is the browser target.
	BrowserWeb
	// DesktopWebview is the embedded desktop webview target.
	DesktopWebview
	// MobileWebview is the embedded mobile webview target.
	MobileWebview
	// MobileNative is the native mobile target.
	MobileNative
)

var targetNames = map[Target]string{
	NodeServer:     "node-server",
	EdgeWorker:     "edge-worker",
	BrowserWeb:     "browser-web",
	DesktopWebview: "desktop-webview",
	MobileWebview:  "mobile-webview",
	MobileNative:   "mobile-native",
}

func (t Target) String() string {
	if name, ok := targetNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Target(%d)", int(t))
}

// acceptedTags is the full tag matrix. Bit-exact: other passes depend on
// these rows and nothing else matching.
var acceptedTags = map[Target][]string{
	NodeServer:     {"node", "server"},
	EdgeWorker:     {"edge-worker", "server"},
	BrowserWeb:     {"web", "browser", "client", "user-agent"},
	DesktopWebview: {"desktop-webview", "browser", "client", "user-agent"},
	MobileWebview:  {"mobile-webview", "browser", "client"},
	MobileNative:   {"mobile-native", "user-agent"},
}

// Accepts reports whether target accepts the given platform tag.
// Pure and total: unknown tags return false for every target.
func Accepts(target Target, tag string) bool {
	for _, t := range acceptedTags[target] {
		if t == tag {
			return true
		}
	}
	return false
}

// IsClient reports whether target is client-classified. Client targets get
// the server-boundary sanitizer applied; server targets never do.
func IsClient(target Target) bool {
	switch target {
	case BrowserWeb, DesktopWebview, MobileWebview, MobileNative:
		return true
	}
	return false
}

// AcceptedTags returns the tags target accepts, in matrix order.
// The returned slice is a copy.
func AcceptedTags(target Target) []string {
	tags := acceptedTags[target]
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// Targets returns all targets in declaration order.
func Targets() []Target {
	return []Target{NodeServer, EdgeWorker, BrowserWeb, DesktopWebview, MobileWebview, MobileNative}
}

// Tags returns the fixed tag vocabulary across all targets, deduplicated,
// in first-appearance order. Used for diagnostics only.
func Tags() []string {
	seen := make(map[string]bool)
	var out []string
	for _, target := range Targets() {
		for _, tag := range acceptedTags[target] {
			if !seen[tag] {
				seen[tag] = true
				out = append(out, tag)
			}
		}
	}
	return out
}

// ParseTarget parses a target name as it appears on the command line.
// Unknown names return an error that suggests the closest known target.
func ParseTarget(name string) (Target, error) {
	for target, n := range targetNames {
		if n == name {
			return target, nil
		}
	}

	var known []string
	for _, target := range Targets() {
		known = append(known, target.String())
	}
	if closest := findClosestMatch(name, known); closest != "" {
		return 0, fmt.Errorf("unknown target %q (did you mean %q?)", name, closest)
	}
	return 0, fmt.Errorf("unknown target %q (known targets: %s)", name, strings.Join(known, ", "))
}

// SuggestTag returns the known tag closest to the given unknown tag, or ""
// when nothing is close. Diagnostics only; never affects matching.
func SuggestTag(tag string) string {
	return findClosestMatch(tag, Tags())
}

// findClosestMatch finds the closest string match using fuzzy matching.
func findClosestMatch(target string, candidates []string) string {
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		return ranks[0].Target
	}
	return ""
}
