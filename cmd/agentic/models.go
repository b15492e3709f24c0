package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/martinemde/agentic/unifiedllm"
)

func modelsCmd() *cobra.Command {
	var (
		provider   string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List known models and their context limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printModels(cmd.OutOrStdout(), unifiedllm.ListModels(provider), jsonOutput)
		},
	}
	cmd.Flags().StringVar(&provider, "for", "", "only list models of this provider")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func printModels(w io.Writer, models []unifiedllm.ModelInfo, jsonOutput bool) error {
	if jsonOutput {
		data, err := json.MarshalIndent(models, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "PROVIDER\tMODEL\tCONTEXT WINDOW\tMAX CONTEXT CHARS\n")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", m.Provider, m.ID, m.ContextWindow, m.MaxContextChars)
	}
	return tw.Flush()
}
