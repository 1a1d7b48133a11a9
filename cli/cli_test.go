package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name:    "valid full config",
			content: `{"target": "node-server", "include": ["src"], "namespace": "wire"}`,
		},
		{
			name:    "target only",
			content: `{"target": "browser-web"}`,
		},
		{
			name:    "unknown key rejected",
			content: `{"target": "node-server", "mode": "fast"}`,
			wantErr: true,
		},
		{
			name:    "empty target rejected",
			content: `{"target": ""}`,
			wantErr: true,
		},
		{
			name:    "namespace must be an ident",
			content: `{"target": "node-server", "namespace": "not an ident"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			content: `target = node-server`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "crosswire.json", tt.content)
			cfg, err := loadConfig(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, cfg.Target)
		})
	}
}

func TestResolveConfigFlagWins(t *testing.T) {
	path := writeFile(t, t.TempDir(), "crosswire.json",
		`{"target": "node-server", "namespace": "wire"}`)

	cfg, err := resolveConfig(&buildOptions{configPath: path, target: "browser-web"})
	require.NoError(t, err)
	assert.Equal(t, "browser-web", cfg.Target)
	assert.Equal(t, "wire", cfg.Namespace)
}

func TestResolveConfigNoTarget(t *testing.T) {
	// Run from an empty directory so no crosswire.json is picked up.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = resolveConfig(&buildOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no target")
}

func TestOutputDigestDeterministic(t *testing.T) {
	a := outputDigest("const x = 1;\n")
	b := outputDigest("const x = 1;\n")
	c := outputDigest("const x = 2;\n")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotContains(t, a, "=", "digest should be unpadded")
}

func TestCollectSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.ts", "")
	writeFile(t, dir, "view.tsx", "")
	writeFile(t, dir, "styles.css", "")
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFile(t, sub, "deep.ts", "")

	files, err := collectSources([]string{dir})
	require.NoError(t, err)
	require.Len(t, files, 3)
	for _, f := range files {
		assert.True(t, isSource(f), f)
	}
}

func TestBuildStdinDirectiveStripping(t *testing.T) {
	source := `// @platform "server"
import db from "pg";
// @platform end
console.log("hello");
`
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(source))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"build", "--target", "browser-web", "-"})

	require.NoError(t, cmd.Execute())

	got := out.String()
	assert.NotContains(t, got, "pg")
	assert.Contains(t, got, `console.log("hello");`)
	assert.Equal(t, strings.Count(source, "\n"), strings.Count(got, "\n"),
		"line count preserved")
}

func TestBuildWritesOutDir(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	writeFile(t, srcDir, "app.ts", `const token = crosswire.createServerState("s3cret");
`)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"build", "--target", "browser-web", "--out-dir", outDir, srcDir})

	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(filepath.Join(outDir, "app.ts"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret")
}

func TestBuildManifestLine(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	writeFile(t, srcDir, "app.ts", `crosswire.runOn("server", () => {});
`)

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"build", "--target", "browser-web",
		"--out-dir", outDir, "--manifest", srcDir})

	require.NoError(t, cmd.Execute())

	line := stderr.String()
	assert.Contains(t, line, "app.ts")
	assert.Contains(t, line, "dispatch=applied")
	assert.Contains(t, line, "digest=")
}

func TestTargetsListsMatrix(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"targets"})

	require.NoError(t, cmd.Execute())

	got := out.String()
	for _, name := range []string{
		"node-server", "edge-worker", "browser-web",
		"desktop-webview", "mobile-webview", "mobile-native",
	} {
		assert.Contains(t, got, name)
	}
	assert.Contains(t, got, "user-agent")
}

func TestBuildUnknownTarget(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"build", "--target", "browser", "-"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser-web", "should suggest the closest target")
}
