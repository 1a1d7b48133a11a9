package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/crosswire-dev/crosswire/core/platform"
)

// debounceWindow coalesces the burst of fsnotify events editors emit
// on save into a single rebuild.
const debounceWindow = 150 * time.Millisecond

func newWatchCmd() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Rebuild transformed output when source files change",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "Platform target to build for")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to crosswire.json project config")
	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", "", "Directory to write transformed files into (required)")
	cmd.Flags().StringVar(&opts.namespace, "namespace", "", "Dispatch namespace ident (default \"crosswire\")")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string, opts *buildOptions) error {
	if opts.outDir == "" {
		return fmt.Errorf("watch requires --out-dir")
	}

	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}
	target, err := platform.ParseTarget(cfg.Target)
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = cfg.Include
	}
	if len(paths) == 0 {
		return fmt.Errorf("no input paths given and config has no include list")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}

	rebuild := func() {
		files, err := collectSources(paths)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "watch: %v\n", err)
			return
		}
		for _, file := range files {
			if _, err := buildFile(cmd, file, target, cfg, opts); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "watch: %v\n", err)
			}
		}
	}
	rebuild()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !event.Has(fsnotify.Remove) && isDir(event.Name) {
				// New subdirectories need their own watch.
				_ = watcher.Add(event.Name)
			} else if !isSource(event.Name) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			rebuild()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watch: %v\n", err)
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
