package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"taskpilot/internal/config"
	"taskpilot/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the available tools",
	RunE:  runTools,
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	registry := tools.BuiltinRegistry(cfg.WorkspaceDir, cfg.WorkflowEndpoint)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tDESCRIPTION")
	for _, t := range registry.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name(), t.Kind(), t.Description())
	}
	return w.Flush()
}
