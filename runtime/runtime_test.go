package runtime

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosswire-dev/crosswire/core/platform"
	"github.com/crosswire-dev/crosswire/runtime/directive"
)

func clientTargets() []platform.Target {
	var out []platform.Target
	for _, t := range platform.Targets() {
		if platform.IsClient(t) {
			out = append(out, t)
		}
	}
	return out
}

func serverTargets() []platform.Target {
	var out []platform.Target
	for _, t := range platform.Targets() {
		if !platform.IsClient(t) {
			out = append(out, t)
		}
	}
	return out
}

// The scenario from the design discussion: a node-only block, a shared
// line, transformed for both sides of the fence.
func TestTransformScenario(t *testing.T) {
	input := "// @platform \"node\"\nconst secret = \"node-only-secret\";\n// @platform end\nconsole.log(\"shared\");\n"

	t.Run("browser-web", func(t *testing.T) {
		res := Transform(input, platform.BrowserWeb)
		assert.NotContains(t, res.Output, "node-only-secret")
		lines := strings.Split(res.Output, "\n")
		require.Len(t, lines, 5) // four lines plus trailing newline split
		assert.Equal(t, "", lines[0])
		assert.Equal(t, "", lines[1])
		assert.Equal(t, "", lines[2])
		assert.Equal(t, `console.log("shared");`, lines[3], "shared line keeps its line number")
	})

	t.Run("node-server", func(t *testing.T) {
		res := Transform(input, platform.NodeServer)
		lines := strings.Split(res.Output, "\n")
		assert.Equal(t, `const secret = "node-only-secret";`, lines[1], "kept line stays in place")
		assert.NotContains(t, res.Output, directive.Marker)
		assert.Equal(t, `console.log("shared");`, lines[3])
	})
}

func TestTransformShortCircuit(t *testing.T) {
	input := "const plain = 1;\nexport default plain;\n"
	res := Transform(input, platform.BrowserWeb)
	assert.Equal(t, input, res.Output)
	assert.Equal(t, PhaseSkipped, res.Directive)
	assert.Equal(t, PhaseSkipped, res.Dispatch)
	assert.Equal(t, PhaseSkipped, res.Sanitize)
}

// Secret non-leakage: a state declaration's embedded literal must not
// appear in the output for any client-classified target.
func TestTransformSecretNonLeakage(t *testing.T) {
	input := `import { api } from "@crosswire/server";
const tok = await api.server.createServerState("sk-live-XYZZY");
export const ping = api.createServerAction("ping", async () => { return check("sk-live-XYZZY-backup"); });`

	for _, target := range clientTargets() {
		res := Transform(input, target)
		assert.NotContains(t, res.Output, "sk-live-XYZZY", "target %s", target)
		assert.False(t, res.Failed(), "target %s", target)
	}
}

// Action identity preservation: the key survives, the handler body does not.
func TestTransformActionIdentity(t *testing.T) {
	input := `const act = api.createServerAction("key1", async (d) => { await audit(d); });`
	for _, target := range clientTargets() {
		res := Transform(input, target)
		assert.Contains(t, res.Output, `createServerAction("key1"`, "target %s", target)
		assert.NotContains(t, res.Output, "audit", "target %s", target)
	}
}

// Server-target fidelity: server builds keep everything.
func TestTransformServerTargetFidelity(t *testing.T) {
	input := `const tok = api.createServerState("sk-live-XYZZY");
const act = api.createServerAction("key1", async (d) => { await audit(d); });`

	for _, target := range serverTargets() {
		res := Transform(input, target)
		assert.Equal(t, input, res.Output, "target %s must not sanitize", target)
	}
}

// Fail-open idempotence: broken syntax inside a runOn argument fails the
// AST phases but the block-resolved text still comes back uncorrupted.
func TestTransformFailOpenIdempotence(t *testing.T) {
	input := "// @platform \"node\"\nserverOnly();\n// @platform end\ncrosswire.runOn(\"web\", (] );\n"

	res := Transform(input, platform.BrowserWeb)
	blockResolved := directive.Resolve(input, platform.BrowserWeb)
	assert.Equal(t, blockResolved, res.Output)
	assert.Equal(t, PhaseApplied, res.Directive)
	assert.Equal(t, PhaseFailed, res.Dispatch)
	assert.True(t, res.Failed())
}

// A parse failure in the sanitizer ships the file unchanged - the known
// risk the fail-open policy accepts.
func TestTransformSanitizeFailOpen(t *testing.T) {
	input := `const s = api.createServerState("leaky"`
	res := Transform(input, platform.BrowserWeb)
	assert.Equal(t, input, res.Output)
	assert.Equal(t, PhaseFailed, res.Sanitize)
}

func TestTransformDirectiveUnlocksDispatchSkip(t *testing.T) {
	// The only dispatch call sits inside a non-matching block; after the
	// directive phase erases it there is nothing left to parse.
	input := "// @platform \"node\"\ncrosswire.runOn(\"node\", cb);\n// @platform end\n"
	res := Transform(input, platform.BrowserWeb)
	assert.Equal(t, PhaseApplied, res.Directive)
	assert.Equal(t, PhaseSkipped, res.Dispatch)
	assert.NotContains(t, res.Output, "runOn")
}

func TestTransformFullPipeline(t *testing.T) {
	input := `// @platform "server"
import fs from "node:fs";
// @platform end
const greeting = crosswire.runOn("client", () => "hello from the client");
const cfg = api.createServerState({ dsn: "postgres://prod" });
const act = api.createServerAction("submit", async (d) => { await store(d); });
render(greeting);
`
	res := Transform(input, platform.BrowserWeb, WithFilename("app.tsx"))
	assert.NotContains(t, res.Output, "node:fs")
	assert.Contains(t, res.Output, `(() => "hello from the client")()`)
	assert.NotContains(t, res.Output, "postgres://prod")
	assert.Contains(t, res.Output, `createServerAction("submit"`)
	assert.NotContains(t, res.Output, "store(d)")
	assert.Contains(t, res.Output, "render(greeting);")
	assert.Equal(t, PhaseApplied, res.Directive)
	assert.Equal(t, PhaseApplied, res.Dispatch)
	assert.Equal(t, PhaseApplied, res.Sanitize)
}

func TestTransformCustomNamespace(t *testing.T) {
	input := `sys.runOn("node", start);`
	out := TransformString(input, platform.NodeServer, WithNamespace("sys"))
	assert.Equal(t, `start();`, out)
}

// Many concurrent invocations share nothing; run with -race.
func TestTransformConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := fmt.Sprintf("const v%d = crosswire.runOn(\"web\", () => compute(%d));", i, i)
			for _, target := range platform.Targets() {
				res := Transform(input, target)
				if platform.Accepts(target, "web") {
					assert.Contains(t, res.Output, fmt.Sprintf("compute(%d)", i))
				} else {
					assert.Contains(t, res.Output, "undefined")
				}
			}
		}(i)
	}
	wg.Wait()
}
