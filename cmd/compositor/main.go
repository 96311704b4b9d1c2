// Command compositor runs the compositing decision procedure over scene
// files and prints the resulting graphics layer tree.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/compositor/cmd/compositor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
