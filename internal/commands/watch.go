package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/colelawrence/spreadsheet/internal/commands/options"
	"github.com/colelawrence/spreadsheet/internal/config"
)

// settle is how long a script must stay unchanged before it is re-run, so
// an editor's save burst runs it once.
const settle = 100 * time.Millisecond

func addWatch(topLevel *cobra.Command, e *env) {
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "watch <script.toml>",
		Short: "Re-run an edit script every time it changes.",
		Example: `
livegrid watch moves.toml
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return e.watch(ctx, cmd, oo, args[0])
		},
	}

	options.AddOutputArgs(cmd, oo)
	topLevel.AddCommand(cmd)
}

func (e *env) watch(ctx context.Context, cmd *cobra.Command, oo *options.OutputOptions, path string) error {
	p, err := printer(cmd, oo)
	if err != nil {
		return err
	}
	path, err = config.ExpandPath(path)
	if err != nil {
		return err
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return err
	}

	rerun := func() {
		g, err := e.runScript(cmd, path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", filepath.Base(path), err)
			if g == nil {
				return
			}
		}
		if err := p.Print(g.Snapshot()); err != nil {
			cliLog.Errorf("print: %s", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// editors often replace the file, so watch its directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	rerun()

	timer := time.NewTimer(settle)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cliLog.Errorf("watch: %s", err)
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != path || evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cliLog.Debugf("%s changed", evt.Name)
			timer.Reset(settle)
		case <-timer.C:
			rerun()
		}
	}
}
