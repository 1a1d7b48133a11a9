package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crosswire-dev/crosswire/core/platform"
	"github.com/crosswire-dev/crosswire/runtime"
)

type buildOptions struct {
	target     string
	configPath string
	outDir     string
	namespace  string
	manifest   bool
	strict     bool
}

func newBuildCmd() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build [paths...]",
		Short: "Transform source files for a platform target",
		Long: `Transform .ts/.tsx source files for a platform target.

Paths may be files or directories; directories are walked recursively.
With a single "-" argument, source is read from stdin and written to
stdout. Without --out-dir, transformed output goes to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "Platform target to build for")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to crosswire.json project config")
	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", "", "Directory to write transformed files into")
	cmd.Flags().StringVar(&opts.namespace, "namespace", "", "Dispatch namespace ident (default \"crosswire\")")
	cmd.Flags().BoolVar(&opts.manifest, "manifest", false, "Print a manifest line per transformed file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit non-zero when any phase fails open")
	return cmd
}

func runBuild(cmd *cobra.Command, args []string, opts *buildOptions) error {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}
	target, err := platform.ParseTarget(cfg.Target)
	if err != nil {
		return err
	}

	if len(args) == 1 && args[0] == "-" {
		return buildStdin(cmd, target, cfg, opts)
	}

	paths := args
	if len(paths) == 0 {
		paths = cfg.Include
	}
	if len(paths) == 0 {
		return fmt.Errorf("no input paths given and config has no include list")
	}

	files, err := collectSources(paths)
	if err != nil {
		return err
	}

	anyFailed := false
	for _, file := range files {
		failed, err := buildFile(cmd, file, target, cfg, opts)
		if err != nil {
			return err
		}
		anyFailed = anyFailed || failed
	}
	if opts.strict && anyFailed {
		return fmt.Errorf("one or more files failed a transform phase")
	}
	return nil
}

func buildStdin(cmd *cobra.Command, target platform.Target, cfg *projectConfig, opts *buildOptions) error {
	source, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	res := runtime.Transform(string(source), target,
		runtime.WithFilename("<stdin>"),
		runtime.WithNamespace(cfg.Namespace))
	if _, err := io.WriteString(cmd.OutOrStdout(), res.Output); err != nil {
		return err
	}
	if opts.strict && res.Failed() {
		return fmt.Errorf("a transform phase failed")
	}
	return nil
}

func buildFile(cmd *cobra.Command, file string, target platform.Target, cfg *projectConfig, opts *buildOptions) (failed bool, err error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", file, err)
	}

	res := runtime.Transform(string(source), target,
		runtime.WithFilename(file),
		runtime.WithNamespace(cfg.Namespace))

	if opts.outDir != "" {
		dest := filepath.Join(opts.outDir, filepath.Base(file))
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return false, err
		}
		if err := os.WriteFile(dest, []byte(res.Output), 0o644); err != nil {
			return false, fmt.Errorf("writing %s: %w", dest, err)
		}
	} else {
		if _, err := io.WriteString(cmd.OutOrStdout(), res.Output); err != nil {
			return false, err
		}
	}

	if opts.manifest {
		fmt.Fprintln(cmd.ErrOrStderr(), manifestLine(file, len(source), res))
	}
	return res.Failed(), nil
}

// collectSources expands files and directories into the list of .ts/.tsx
// sources to transform, in walk order.
func collectSources(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isSource(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isSource(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".tsx":
		return true
	}
	return false
}
