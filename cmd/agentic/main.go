// Command agentic runs an LLM agent loop against an objective.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	logLevel   string
	provider   string
	model      string
	verbose    bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "agentic",
		Short:         "Drive an LLM through a prompt, action and memory loop",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default: search agentic.yaml)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&g.provider, "provider", "", "LLM provider (overrides config)")
	cmd.PersistentFlags().StringVarP(&g.model, "model", "m", "", "model (overrides config)")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log prompts and completions")

	cmd.AddCommand(runCmd(g))
	cmd.AddCommand(replayCmd(g))
	cmd.AddCommand(modelsCmd())
	return cmd
}
