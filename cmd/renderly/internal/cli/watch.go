package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const defaultDebounce = 150 * time.Millisecond

var ErrWatchOutputRequired = errors.New("watch: --out is required")

func (a *app) watchCommand() *cobra.Command {
	var (
		locale   string
		out      string
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <project-file>",
		Short: "Re-render a project whenever its file or the definitions directory changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(out) == "" || out == "-" {
				return ErrWatchOutputRequired
			}
			return a.watch(cmd.Context(), args[0], locale, out, debounce)
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "", "requested locale")
	cmd.Flags().StringVarP(&out, "out", "o", "", "document file rewritten on every change")
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "quiet period before re-rendering")
	return cmd
}

// watch renders once, then again after every burst of relevant file events
// until ctx is cancelled. Render failures are reported and watching goes on.
func (a *app) watch(ctx context.Context, projectPath, locale, out string, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	projectAbs, err := filepath.Abs(projectPath)
	if err != nil {
		return err
	}
	var definitionsAbs string
	if a.definitionsDir != "" {
		if definitionsAbs, err = filepath.Abs(a.definitionsDir); err != nil {
			return err
		}
	}
	// Editors often replace files, so directories are watched rather than
	// the files themselves.
	dirs := []string{filepath.Dir(projectAbs)}
	if definitionsAbs != "" && definitionsAbs != dirs[0] {
		dirs = append(dirs, definitionsAbs)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	a.rebuild(ctx, projectPath, locale, out, false)

	var (
		fire        <-chan time.Time
		definitions bool
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			name := filepath.Clean(event.Name)
			switch {
			case name == projectAbs:
			case definitionsAbs != "" && filepath.Dir(name) == definitionsAbs && filepath.Ext(name) == ".md":
				definitions = true
			default:
				continue
			}
			fire = time.After(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(a.stderr, "watch:", err)
		case <-fire:
			fire = nil
			a.rebuild(ctx, projectPath, locale, out, definitions)
			definitions = false
		}
	}
}

func (a *app) rebuild(ctx context.Context, projectPath, locale, out string, reloadDefinitions bool) {
	if reloadDefinitions {
		if err := a.loadDefinitions(ctx); err != nil {
			fmt.Fprintln(a.stderr, "watch: definitions:", err)
			return
		}
		if err := a.module.InvalidateDocuments(ctx); err != nil {
			fmt.Fprintln(a.stderr, "watch: invalidate:", err)
		}
	}
	project, err := a.loadProject(ctx, projectPath)
	if err != nil {
		fmt.Fprintln(a.stderr, "watch:", err)
		return
	}
	doc, err := a.module.RenderProjectHTML(ctx, project, locale)
	if err != nil {
		fmt.Fprintln(a.stderr, "watch:", err)
		return
	}
	if err := a.writeOutput(out, doc); err != nil {
		fmt.Fprintln(a.stderr, "watch:", err)
		return
	}
	fmt.Fprintf(a.stderr, "rendered %s (%d blocks)\n", out, len(project.Blocks))
}
