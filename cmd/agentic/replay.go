package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/martinemde/agentic/agentloop"
)

func replayCmd(g *globalFlags) *cobra.Command {
	var resume bool
	cmd := &cobra.Command{
		Use:   "replay <action-log>",
		Short: "Re-dispatch a saved action log without consulting the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			log, err := agentloop.LoadActionLog(args[0])
			if err != nil {
				return err
			}

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

			agent, err := agentloop.FromActionLog(log, a.completer, a.store, a.agentOptions()...)
			if err != nil {
				return err
			}
			defer agent.Close()

			if err := agent.Replay(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d actions\n", len(agent.Loaded()))

			if !resume || lastIsDone(agent.Loaded()) {
				return nil
			}
			res, err := agent.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s after %d steps\n", res.Outcome, res.Steps)
			return nil
		},
	}
	cmd.Flags().BoolVar(&resume, "resume", false, "continue with the model after replaying")
	return cmd
}

func lastIsDone(recs []agentloop.CommandRecord) bool {
	return len(recs) > 0 && recs[len(recs)-1].Command.Action == agentloop.ActionDeclareDone
}
