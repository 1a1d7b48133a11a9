// Package runtime is the entry point for the platform-conditional
// compilation pass. The bundler's file-load hook calls Transform once per
// (file, target) pair; it returns transformed source, or the input
// unchanged when nothing applies or an AST phase fails.
//
// Transform is pure with respect to shared state: nothing is cached across
// invocations and any number of calls may run concurrently.
package runtime

import (
	"log/slog"
	"strings"

	"github.com/crosswire-dev/crosswire/core/platform"
	"github.com/crosswire-dev/crosswire/runtime/directive"
	"github.com/crosswire-dev/crosswire/runtime/rewrite"
	"github.com/crosswire-dev/crosswire/runtime/sanitize"
)

// DefaultNamespace is the well-known dispatch namespace ident.
const DefaultNamespace = "crosswire"

// PhaseStatus reports what one phase did for one file.
type PhaseStatus int

const (
	// PhaseSkipped means the phase's pre-check ruled it out.
	PhaseSkipped PhaseStatus = iota
	// PhaseApplied means the phase ran to completion.
	PhaseApplied
	// PhaseFailed means the phase hit a parse error and was skipped,
	// leaving its input unchanged (fail-open).
	PhaseFailed
)

func (s PhaseStatus) String() string {
	switch s {
	case PhaseApplied:
		return "applied"
	case PhaseFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Result is the outcome of one Transform invocation.
type Result struct {
	Output    string
	Directive PhaseStatus
	Dispatch  PhaseStatus
	Sanitize  PhaseStatus
}

// Failed reports whether any phase failed open.
func (r *Result) Failed() bool {
	return r.Directive == PhaseFailed || r.Dispatch == PhaseFailed || r.Sanitize == PhaseFailed
}

type config struct {
	filename  string
	namespace string
	logger    *slog.Logger
}

// Option configures a Transform invocation.
type Option func(*config)

// WithFilename sets the file path used in diagnostics.
func WithFilename(name string) Option {
	return func(c *config) { c.filename = name }
}

// WithNamespace overrides the dispatch namespace ident.
func WithNamespace(ns string) Option {
	return func(c *config) { c.namespace = ns }
}

// WithLogger routes phase warnings to the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Transform runs the full pass pipeline on source for target: directive
// blocks, then dispatch calls, then the server boundary. It never fails:
// the worst case for any phase is its input passed through unchanged.
func Transform(source string, target platform.Target, opts ...Option) *Result {
	cfg := &config{
		filename:  "<input>",
		namespace: DefaultNamespace,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	res := &Result{Output: source}

	// Whole-pipeline short circuit on the original input: most files
	// mention none of the tokens, and this runs once per file per target
	// across potentially thousands of files.
	hasDirective := strings.Contains(source, directive.Marker)
	hasDispatch := strings.Contains(source, rewrite.Token)
	hasServer := containsServerToken(source)
	if !hasDirective && !hasDispatch && !hasServer {
		return res
	}

	// Phase 1: directive blocks. Textual, cannot fail.
	if hasDirective {
		res.Output = directive.Resolve(res.Output, target)
		res.Directive = PhaseApplied
	}

	// Phase 2: dispatch calls. The pre-check re-reads the current text:
	// phase 1 may have erased the only dispatch call in the file.
	if strings.Contains(res.Output, rewrite.Token) {
		out, err := rewrite.Rewrite(res.Output, target, cfg.namespace)
		if err != nil {
			cfg.logger.Warn("dispatch rewrite failed, passing file through unchanged",
				"file", cfg.filename, "error", err)
			res.Dispatch = PhaseFailed
		} else {
			res.Output = out
			res.Dispatch = PhaseApplied
		}
	}

	// Phase 3: server boundary. Client targets only.
	if platform.IsClient(target) && containsServerToken(res.Output) {
		sres, err := sanitize.Sanitize(res.Output)
		if err != nil {
			cfg.logger.Warn("server-boundary sanitize failed, passing file through unchanged",
				"file", cfg.filename, "error", err)
			res.Sanitize = PhaseFailed
		} else {
			res.Output = sres.Output
			res.Sanitize = PhaseApplied
			if leaked := sres.Leaked(); len(leaked) > 0 {
				// Deliberately counts only: the literals are secrets.
				cfg.logger.Warn("removed server state literals still occur elsewhere in file",
					"file", cfg.filename, "count", len(leaked))
			}
		}
	}

	return res
}

// TransformString is the convenience form: just the output text.
func TransformString(source string, target platform.Target, opts ...Option) string {
	return Transform(source, target, opts...).Output
}

func containsServerToken(source string) bool {
	for _, tok := range sanitize.Tokens {
		if strings.Contains(source, tok) {
			return true
		}
	}
	return false
}
