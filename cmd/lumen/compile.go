package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/recera/lumen/cmd/lumen/internal/ui"
)

func newCompileCommand() *cobra.Command {
	var noCache bool
	var clean bool

	cmd := &cobra.Command{
		Use:   "compile [dir]",
		Short: "Compile templates into render modules",
		Long:  `Compiles every template under the source directory and writes the modules to the output directory.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runCompile(cmd, root, !noCache, clean)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Compile every template even if a cached module exists")
	cmd.Flags().BoolVar(&clean, "clean", false, "Clear the module cache first")
	return cmd
}

func runCompile(cmd *cobra.Command, root string, useCache, clean bool) error {
	p, err := loadProject(root, useCache || clean)
	if err != nil {
		return err
	}
	defer p.close()

	if clean && p.cache != nil {
		log.Println("🧹 Clearing module cache...")
		if err := p.cache.Clear(); err != nil {
			return err
		}
		if !useCache {
			p.cache.Close()
			p.cache = nil
		}
	}

	log.Printf("🎨 Compiling templates in %s...", p.srcDir())
	start := time.Now()
	results, err := p.compile()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.Error(err.Error()))
		return fmt.Errorf("compilation failed")
	}

	rows := make([]ui.Row, 0, len(results))
	cached := 0
	for _, r := range results {
		detail := "compiled"
		if r.Cached {
			detail = "cached"
			cached++
		}
		rows = append(rows, ui.Row{Label: r.Rel, Detail: detail})
	}
	title := fmt.Sprintf("Compiled %d templates (%d cached) in %s", len(results), cached, time.Since(start).Round(time.Millisecond))
	fmt.Fprintln(cmd.OutOrStdout(), ui.Summary(title, rows))
	fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Modules written to "+p.outDir()))
	return nil
}
