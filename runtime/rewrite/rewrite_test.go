package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosswire-dev/crosswire/core/platform"
)

func TestRewriteInlinesMatchingTag(t *testing.T) {
	input := `const v = crosswire.runOn("node", () => loadFile(path));`
	out, err := Rewrite(input, platform.NodeServer, "crosswire")
	require.NoError(t, err)
	assert.Equal(t, `const v = (() => loadFile(path))();`, out)
}

func TestRewriteBareIdentifierAction(t *testing.T) {
	input := `crosswire.runOn("web", handler);`
	out, err := Rewrite(input, platform.BrowserWeb, "crosswire")
	require.NoError(t, err)
	assert.Equal(t, `handler();`, out)
}

func TestRewriteNeutralizesNonMatchingTag(t *testing.T) {
	input := `const v = crosswire.runOn("node", () => loadFile(path));`
	out, err := Rewrite(input, platform.BrowserWeb, "crosswire")
	require.NoError(t, err)
	assert.Equal(t, `const v = undefined;`, out)
}

// The replacement is a single expression, so surrounding syntax keeps
// working: await, fallback chains, assignment.
func TestRewritePreservesSurroundingSyntax(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		target platform.Target
		want   string
	}{
		{
			name:   "await kept",
			input:  `const d = await crosswire.runOn("server", async () => db.query(q));`,
			target: platform.EdgeWorker,
			want:   `const d = await (async () => db.query(q))();`,
		},
		{
			name:   "fallback chain on neutral",
			input:  `const v = crosswire.runOn("client", () => cached()) ?? recompute();`,
			target: platform.NodeServer,
			want:   `const v = undefined ?? recompute();`,
		},
		{
			name:   "two calls one line",
			input:  `f(crosswire.runOn("web", a), crosswire.runOn("node", b));`,
			target: platform.BrowserWeb,
			want:   `f(a(), undefined);`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Rewrite(tt.input, tt.target, "crosswire")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRewriteNestedDispatch(t *testing.T) {
	input := `crosswire.runOn("client", () => crosswire.runOn("web", cb));`
	out, err := Rewrite(input, platform.BrowserWeb, "crosswire")
	require.NoError(t, err)
	// Outer inlined first, inner resolved on the re-scan.
	assert.Equal(t, `(() => cb())();`, out)
}

func TestRewriteNestedDispatchNeutralOuter(t *testing.T) {
	input := `crosswire.runOn("node", () => crosswire.runOn("web", cb));`
	out, err := Rewrite(input, platform.BrowserWeb, "crosswire")
	require.NoError(t, err)
	// The outer call is erased, taking the inner one with it.
	assert.Equal(t, `undefined;`, out)
}

func TestRewriteNoCallsIsIdentity(t *testing.T) {
	input := "const a = 1;\nexport default a;\n"
	out, err := Rewrite(input, platform.BrowserWeb, "crosswire")
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestRewriteLeavesUnrecognizedShapes(t *testing.T) {
	input := `crosswire.runOn(dynamicTag, cb); other.runOn("web", cb);`
	out, err := Rewrite(input, platform.BrowserWeb, "crosswire")
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestRewriteLeavesMemberChainNamespace(t *testing.T) {
	// crosswire here is a property of host, not the namespace ident, for
	// both member access forms.
	input := `const v = host?.crosswire.runOn("web", cb);
const w = host.crosswire.runOn("web", cb);`
	out, err := Rewrite(input, platform.BrowserWeb, "crosswire")
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestRewriteParseErrorReturnsInput(t *testing.T) {
	input := `crosswire.runOn("web", (] );`
	out, err := Rewrite(input, platform.BrowserWeb, "crosswire")
	require.Error(t, err)
	assert.Equal(t, input, out)
}

func TestRewriteCustomNamespace(t *testing.T) {
	input := `sys.runOn("node", cb);`
	out, err := Rewrite(input, platform.NodeServer, "sys")
	require.NoError(t, err)
	assert.Equal(t, `cb();`, out)
}
