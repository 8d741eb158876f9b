package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recera/lumen/pkg/render"
)

func newRenderCommand() *cobra.Command {
	var cwd string
	var params []string
	var propsJSON string

	cmd := &cobra.Command{
		Use:   "render <page>",
		Short: "Render a page and print its HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := render.Input{RoutePath: "/" + strings.TrimPrefix(args[0], "/")}
			if len(params) > 0 {
				in.Params = make(map[string]string, len(params))
				for _, kv := range params {
					k, v, ok := strings.Cut(kv, "=")
					if !ok || k == "" {
						return fmt.Errorf("invalid --param %q, want key=value", kv)
					}
					in.Params[k] = v
				}
			}
			if propsJSON != "" {
				if err := json.Unmarshal([]byte(propsJSON), &in.Props); err != nil {
					return fmt.Errorf("invalid --props: %w", err)
				}
			}

			p, err := loadProject(cwd, true)
			if err != nil {
				return err
			}
			defer p.close()
			rt, err := p.runtime()
			if err != nil {
				return err
			}

			html, ok, err := rt.Render(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("page not found: %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), html)
			return nil
		},
	}

	cmd.Flags().StringVar(&cwd, "cwd", ".", "Project directory")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Route parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&propsJSON, "props", "", "Page props as a JSON object")
	return cmd
}

func newPathsCommand() *cobra.Command {
	var cwd string

	cmd := &cobra.Command{
		Use:   "paths <page>",
		Short: "Print the static paths of a page as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cwd, true)
			if err != nil {
				return err
			}
			defer p.close()
			rt, err := p.runtime()
			if err != nil {
				return err
			}

			paths, ok, err := rt.Paths(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("page not found: %s", args[0])
			}
			if paths == nil {
				paths = []render.StaticPath{}
			}
			data, err := json.MarshalIndent(paths, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&cwd, "cwd", ".", "Project directory")
	return cmd
}
