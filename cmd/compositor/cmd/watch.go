package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/go-drift/compositor/pkg/compositing"
	"github.com/go-drift/compositor/pkg/errors"
)

// watchSettle batches the burst of events editors produce for one save.
const watchSettle = 100 * time.Millisecond

func init() {
	RegisterCommand(&Command{
		Name:  "watch",
		Short: "Recomposite a scene whenever it changes",
		Long: `Load a scene, composite it and print the layer tree, then watch the
scene file. Every save is applied to the existing layer tree by layer id,
so the compositor sees only the layers that changed, and one update runs
per save.

Press Ctrl+C to stop.`,
		Usage: "compositor watch [scene] [--debug-borders] [--repaint-counter] [--no-accel] [--trace]",
		Run:   runWatch,
	})
}

func runWatch(args []string) error {
	positional, opts := parseSceneArgs(args)
	if len(positional) > 1 {
		return fmt.Errorf("too many arguments\n\nUsage: compositor watch [scene]")
	}
	path := ""
	if len(positional) == 1 {
		path = positional[0]
	}

	s, err := openSession(path, opts)
	if err != nil {
		return err
	}
	s.update(compositing.UpdateAfterLayoutOrStyleChange)
	if err := s.print(os.Stdout); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file on save.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}
	fmt.Printf("Watching %s (Ctrl+C to stop)...\n", s.path)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	settle := time.NewTimer(watchSettle)
	settle.Stop()

	for {
		select {
		case <-sigCh:
			fmt.Println()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				settle.Reset(watchSettle)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Warning: watcher error: %v\n", err)
		case <-settle.C:
			if !reloadAndUpdate(s) {
				continue
			}
			fmt.Println()
			if err := s.print(os.Stdout); err != nil {
				return err
			}
		}
	}
}

// reloadAndUpdate applies the edited scene and recomposites. A broken
// scene is reported and the previous tree stays in place.
func reloadAndUpdate(s *session) (ok bool) {
	defer errors.RecoverWithCallback("watch.reload", func(any) { ok = false })
	if err := s.reload(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	s.update(compositing.UpdateAfterLayoutOrStyleChange)
	return true
}
