package cmd

import (
	"fmt"
	"os"

	"github.com/go-drift/compositor/pkg/compositing"
)

func init() {
	RegisterCommand(&Command{
		Name:  "update",
		Short: "Composite a scene and print the layer tree",
		Long: `Load a scene, run a full compositing update and print the graphics
layer tree that results, followed by the update statistics.

Flags:
  --debug-borders     Show debug borders on every graphics layer
  --repaint-counter   Count repaints on every graphics layer
  --no-accel          Disable accelerated compositing
  --trace             Print the update trace as JSON

Without a scene argument the scene named by document.scene in
compositor.yaml is used.`,
		Usage: "compositor update [scene] [--debug-borders] [--repaint-counter] [--no-accel] [--trace]",
		Run:   runUpdate,
	})
}

func runUpdate(args []string) error {
	positional, opts := parseSceneArgs(args)
	if len(positional) > 1 {
		return fmt.Errorf("too many arguments\n\nUsage: compositor update [scene]")
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
	return s.print(os.Stdout)
}
