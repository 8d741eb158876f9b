package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lumen",
		Short: "Lumen - component HTML templates",
		Long: `Lumen compiles component HTML templates into render modules and
renders them into pages, statically or from a development server.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newCompileCommand())
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newPathsCommand())
	rootCmd.AddCommand(newDevCommand())
	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
