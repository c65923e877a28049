package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// configFile is the --config flag shared by every command.
var configFile string

const banner = `
  ┳┓    ┓
  ┣┫┏┓┣┓┏┓┓┏┏┓
  ┻┛┗ ┛┗┗┻┗┛┗
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "behave",
		Short: "Attach page behaviors to HTML on the server",
		Long: `Behave runs the site's page behaviors against HTML documents.

Every behavior is attached once per element, in registration order,
and a failing behavior never stops the others. Pages can be processed
one at a time or served over HTTP:

  • apply: process a single file and print the result
  • serve: serve a directory of pages with behaviors applied
  • behaviors: list registered behaviors in attach order`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to behave.json (default: search upward from the working directory)")

	rootCmd.AddCommand(
		applyCmd(),
		serveCmd(),
		behaviorsCmd(),
		versionCmd(),
	)

	return rootCmd
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message to stderr, keeping stdout for output.
func warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
