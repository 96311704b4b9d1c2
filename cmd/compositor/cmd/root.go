// Package cmd implements the compositor CLI commands.
//
// The command structure follows standard Go CLI patterns with a root command
// that dispatches to subcommands (update, scroll, watch).
package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-drift/compositor/pkg/errors"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// Command represents a CLI command.
type Command struct {
	Name        string
	Short       string
	Long        string
	Usage       string
	Run         func(args []string) error
	SubCommands []*Command
}

var rootCmd = &Command{
	Name:  "compositor",
	Short: "Compositor - layer compositing decisions for paint-order layer trees",
	Long: `Compositor decides which layers of a document get their own graphics
layer and maintains the graphics layer tree that mirrors them.

Scenes are YAML or TOML layer trees. Settings come from compositor.yaml or
compositor.toml in the project root, if present.

Use "compositor <command> --help" for more information about a command.`,
	Usage: "compositor <command> [flags]",
}

// Commands registered with the CLI.
var commands = make(map[string]*Command)

// projectDir overrides the directory searched for compositor.yaml.
var projectDir string

// RegisterCommand adds a command to the CLI.
func RegisterCommand(cmd *Command) {
	commands[cmd.Name] = cmd
	rootCmd.SubCommands = append(rootCmd.SubCommands, cmd)
}

// Execute runs the CLI with the given arguments.
func Execute() error {
	args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		return err
	}

	if len(args) == 0 || isHelp(args[0]) {
		printHelp(rootCmd)
		return nil
	}
	if isVersion(args[0]) {
		fmt.Printf("compositor version %s (built %s)\n", Version, BuildTime)
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", args[0])
		printHelp(rootCmd)
		return fmt.Errorf("unknown command: %s", args[0])
	}

	cmdArgs := args[1:]
	if slices.ContainsFunc(cmdArgs, isHelp) {
		printCommandHelp(cmd)
		return nil
	}

	return cmd.Run(cmdArgs)
}

// parseGlobalFlags applies --project and --verbose wherever they appear
// and returns the remaining arguments.
func parseGlobalFlags(args []string) ([]string, error) {
	var filtered []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--verbose":
			errors.SetHandler(&errors.LogHandler{Verbose: true})
		case arg == "--project":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--project requires a directory path")
			}
			projectDir = args[i+1]
			i++
		case strings.HasPrefix(arg, "--project="):
			projectDir = strings.TrimPrefix(arg, "--project=")
		default:
			filtered = append(filtered, arg)
		}
	}
	return filtered, nil
}

func isHelp(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}

func isVersion(arg string) bool {
	return arg == "-v" || arg == "--version" || arg == "version"
}

func printHelp(cmd *Command) {
	fmt.Println(cmd.Long)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s\n", cmd.Usage)
	fmt.Println()
	fmt.Println("Commands:")
	for _, sub := range cmd.SubCommands {
		fmt.Printf("  %-14s %s\n", sub.Name, sub.Short)
	}
	fmt.Printf("  %-14s %s\n", "version", "Show version information")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -h, --help           Show help for a command")
	fmt.Println("  -v, --version        Show version information")
	fmt.Println("  --project DIR        Directory holding compositor.yaml (default: module root)")
	fmt.Println("  --verbose            Include stack traces in error reports")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  compositor update scene.yaml          Print the composited layer tree")
	fmt.Println("  compositor scroll scene.yaml 0 200    Scroll and refresh geometry only")
	fmt.Println("  compositor watch scene.toml           Recomposite on every save")
}

func printCommandHelp(cmd *Command) {
	fmt.Println(cmd.Long)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s\n", cmd.Usage)
}
