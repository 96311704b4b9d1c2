package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-drift/compositor/pkg/compositing"
	"github.com/go-drift/compositor/pkg/graphics"
)

func init() {
	RegisterCommand(&Command{
		Name:  "scroll",
		Short: "Scroll a composited scene and refresh geometry",
		Long: `Load a scene, run a full compositing update, then scroll the document
by (dx, dy) and run a scroll update. A scroll update only refreshes
graphics layer geometry; the hierarchy is left alone unless a rebuild is
already pending.

Fixed-position layers keep their viewport position, so their graphics
layers move in document coordinates.`,
		Usage: "compositor scroll <scene> <dx> <dy> [--trace]",
		Run:   runScroll,
	})
}

func runScroll(args []string) error {
	positional, opts := parseSceneArgs(args)
	if len(positional) != 3 {
		return fmt.Errorf("scene, dx and dy are required\n\nUsage: compositor scroll <scene> <dx> <dy>")
	}
	dx, err := strconv.ParseFloat(positional[1], 64)
	if err != nil {
		return fmt.Errorf("invalid dx %q: %w", positional[1], err)
	}
	dy, err := strconv.ParseFloat(positional[2], 64)
	if err != nil {
		return fmt.Errorf("invalid dy %q: %w", positional[2], err)
	}

	s, err := openSession(positional[0], opts)
	if err != nil {
		return err
	}
	s.update(compositing.UpdateAfterLayoutOrStyleChange)

	s.client.Reset()
	s.tree.SetScrollOffset(s.tree.ScrollOffset().Add(graphics.Offset{X: dx, Y: dy}))
	s.update(compositing.UpdateOnScroll)
	return s.print(os.Stdout)
}
