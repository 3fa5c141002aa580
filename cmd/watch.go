package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/assetloader/internal/assets"
	"github.com/conneroisu/assetloader/internal/logging"
	"github.com/conneroisu/assetloader/internal/notify"
	"github.com/conneroisu/assetloader/internal/types"
	"github.com/conneroisu/assetloader/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch [files...]",
	Aliases: []string{"w"},
	Short:   "Rebuild a bundle whenever its sources change",
	Long: `Watch the asset directory and regenerate the bundle when a matching file
changes. With --notify-addr connected browsers receive a JSON message on
/ws after each rebuild so they can reload the new artifact.

Examples:
  assetloader watch --dir public --kind css css/app.css
  assetloader watch --dir public --kind js js/app.js --notify-addr localhost:35729`,
	RunE: runWatch,
}

var (
	watchFlags      *StandardFlags
	watchNotifyAddr string
	watchVerbose    bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchFlags = AddStandardFlags(watchCmd, "bundle")
	watchCmd.Flags().StringVar(&watchNotifyAddr, "notify-addr", "", "Serve rebuild notifications on this address (default watch.notify_addr)")
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Print every changed file and log at debug level")
}

// broadcaster is the part of notify.Hub the rebuild handler needs.
type broadcaster interface {
	Broadcast(msg notify.Message) error
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := watchFlags.ValidateFlags(); err != nil {
		return err
	}
	kind, _ := watchFlags.AssetKind()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if watchVerbose {
		a.logger.SetLevel(logging.LevelDebug)
	}

	dir := watchFlags.AssetDir(a.cfg.Assets.Root)
	bundle, err := a.factory(nil).New(ctx, kind, dir, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := bundle.Compiler.Generate(ctx, true); err != nil {
		return err
	}
	fmt.Fprintf(out, "👀 Watching %s for %s changes\n", dir, kind)

	fileWatcher, err := watcher.NewFileWatcher(a.cfg.Watch.Debounce, a.logger)
	if err != nil {
		return err
	}
	defer fileWatcher.Stop()

	sourceDir, patterns := a.cfg.Assets.JSDir, a.cfg.Assets.JSPatterns
	if kind == types.AssetStylesheet {
		sourceDir, patterns = a.cfg.Assets.CSSDir, a.cfg.Assets.CSSPatterns
	}
	fileWatcher.AddFilter(watcher.PatternFilter(strings.TrimRight(dir, "/")+sourceDir, patterns...))
	fileWatcher.AddFilter(watcher.ExcludeDirFilter(bundle.Compiler.OutputDir()))
	fileWatcher.AddFilter(watcher.NoTempFilter)
	fileWatcher.AddFilter(watcher.NoGitFilter)
	if err := fileWatcher.AddRecursive(dir); err != nil {
		return err
	}

	var hub broadcaster
	addr := watchNotifyAddr
	if addr == "" {
		addr = a.cfg.Watch.NotifyAddr
	}
	if addr != "" {
		h := notify.NewHub(a.cfg.Watch.AllowedOrigins, a.logger)
		defer h.Shutdown()
		hub = h

		go func() {
			if err := notify.Serve(ctx, addr, "/ws", h); err != nil {
				a.logger.Error(ctx, err, "Notification server stopped", "addr", addr)
				stop()
			}
		}()
		fmt.Fprintf(out, "📡 Notifying browsers on ws://%s/ws\n", addr)
	}

	fileWatcher.AddHandler(rebuildHandler(bundle, hub, out, a.logger))
	if err := fileWatcher.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	fmt.Fprintln(out, "👋 Stopping watcher")
	return nil
}

// rebuildHandler regenerates bundle for a batch of changes and tells
// connected browsers about rewritten artifacts. Build failures are reported
// and the watch continues.
func rebuildHandler(bundle *assets.Bundle, hub broadcaster, out io.Writer, logger logging.Logger) watcher.ChangeHandler {
	return func(ctx context.Context, events []watcher.ChangeEvent) error {
		changed := make([]string, 0, len(events))
		for _, event := range events {
			changed = append(changed, event.Path)
			if watchVerbose {
				fmt.Fprintf(out, "   %s: %s\n", event.Type, event.Path)
			}
		}

		// Files created after startup join the watch set
		bundle.Collection.AddWatchFiles(changed)

		artifacts, err := bundle.Compiler.Generate(ctx, true)
		if err != nil {
			fmt.Fprintf(out, "❌ Rebuild failed: %v\n", err)
			if hub != nil {
				if berr := hub.Broadcast(notify.Message{Type: notify.TypeError, Kind: bundle.Kind.String(), Changed: changed, Error: err.Error()}); berr != nil {
					logger.Warn(ctx, berr, "Cannot broadcast build failure")
				}
			}
			return err
		}

		var rebuilt []string
		for _, artifact := range artifacts {
			if artifact.Rebuilt {
				rebuilt = append(rebuilt, artifact.File)
			}
		}
		if len(rebuilt) == 0 {
			return nil
		}

		fmt.Fprintf(out, "✅ Rebuilt %d %s artifact(s) after %d change(s)\n", len(rebuilt), bundle.Kind, len(changed))
		if hub != nil {
			return hub.Broadcast(notify.Message{
				Type:    notify.TypeRebuild,
				Kind:    bundle.Kind.String(),
				Files:   rebuilt,
				Changed: changed,
			})
		}
		return nil
	}
}
