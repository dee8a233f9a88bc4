package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mealvault/internal/blobstore"
	"mealvault/internal/connectivity"
	"mealvault/internal/daemon"
	"mealvault/internal/records"
	"mealvault/internal/services/gemini"
	"mealvault/internal/syncqueue"
	"mealvault/internal/transcription"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Background sync daemon",
	}

	daemonCmd.AddCommand(newDaemonRunCommand(ctx))

	return daemonCmd
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the sync daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger()

			store, err := records.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			queue, err := syncqueue.Open(cfg)
			if err != nil {
				return err
			}

			blobs, err := blobstore.New(cfg, logger)
			if err != nil {
				queue.Close()
				return err
			}

			mode, err := transcription.ParseMode(cfg.Apply.ClarificationMode)
			if err != nil {
				queue.Close()
				return err
			}
			applier := transcription.NewApplier(store, mode, logger)
			client := gemini.NewClient(gemini.Config{
				APIKey:         cfg.Gemini.APIKey,
				BaseURL:        cfg.Gemini.BaseURL,
				Model:          cfg.Gemini.Model,
				TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
			})

			monitor := connectivity.NewMonitor(cfg, nil, logger)
			replayer := syncqueue.NewReplayer(queue, store, blobs, client, applier, cfg.Sync.RetryLimit, logger)

			d, err := daemon.New(cfg, queue, monitor, replayer, logger)
			if err != nil {
				queue.Close()
				return err
			}
			defer d.Close()

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(signalCtx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mealvault daemon running (probe every %s); Ctrl+C to stop\n",
				time.Duration(cfg.Sync.ProbeIntervalSeconds)*time.Second)

			<-signalCtx.Done()
			fmt.Fprintln(out, "Shutting down")
			return nil
		},
	}
}
