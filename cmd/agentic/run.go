package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/martinemde/agentic/agentloop"
)

func runCmd(g *globalFlags) *cobra.Command {
	var (
		maxSteps   int
		savePath   string
		initialCtx string
		events     bool
	)
	cmd := &cobra.Command{
		Use:   "run [objective]",
		Short: "Run the agent until it declares the objective done",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Objective = strings.Join(args, " ")
			}
			if cfg.Objective == "" {
				return errors.New("an objective is required (argument or config)")
			}
			if maxSteps > 0 {
				cfg.MaxSteps = maxSteps
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdown, err := setupTracing(ctx, cfg.Tracing)
			if err != nil {
				return err
			}
			defer shutdown(context.Background())

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := a.agentOptions()
			if initialCtx != "" {
				opts = append(opts, agentloop.WithInitialContext(initialCtx))
			}
			agent, err := agentloop.New(cfg.Objective, a.completer, a.store, opts...)
			if err != nil {
				return err
			}
			defer agent.Close()
			if events {
				go streamEvents(agent.Events(), cmd.ErrOrStderr())
			}

			res, runErr := agent.Run(ctx)
			usage, calls := a.client.Usage()
			logger.Info("token usage", "calls", calls,
				"input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens)
			if savePath != "" {
				if err := agent.SaveActions(savePath); err != nil {
					logger.Error("failed to save action log", "error", err)
				}
			}
			if runErr != nil {
				return runErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s after %d steps\n", res.Outcome, res.Steps)
			if res.Outcome == agentloop.OutcomeBudgetExhausted {
				return fmt.Errorf("step budget of %d exhausted", cfg.MaxSteps)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step budget (overrides config)")
	cmd.Flags().StringVar(&savePath, "save", "", "write the action log to this file")
	cmd.Flags().StringVar(&initialCtx, "context", "", "initial context shown to the model")
	cmd.Flags().BoolVar(&events, "events", false, "stream run events as JSON lines to stderr")
	return cmd
}

func streamEvents(events <-chan agentloop.Event, w io.Writer) {
	enc := json.NewEncoder(w)
	for ev := range events {
		enc.Encode(ev)
	}
}
