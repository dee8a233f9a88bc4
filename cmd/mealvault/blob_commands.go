package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mealvault/internal/blobstore"
)

func newBlobCommand(ctx *commandContext) *cobra.Command {
	blobCmd := &cobra.Command{
		Use:   "blob",
		Short: "Inspect and prune stored audio payloads",
	}

	blobCmd.AddCommand(newBlobUsageCommand(ctx))
	blobCmd.AddCommand(newBlobPurgeCommand(ctx))

	return blobCmd
}

func newBlobUsageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Estimate audio storage consumption",
		RunE: func(cmd *cobra.Command, args []string) error {
			blobs, err := ctx.blobStore()
			if err != nil {
				return err
			}
			usage, err := blobs.EstimateUsage(cmd.Context())
			if err != nil && !errors.Is(err, blobstore.ErrUsageUnavailable) {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Stored audio:  %s in %d recordings\n", formatBytes(uint64(usage.UsedBytes)), usage.Entries)
			if errors.Is(err, blobstore.ErrUsageUnavailable) {
				fmt.Fprintln(out, "Disk capacity: unavailable on this platform")
				return nil
			}
			fmt.Fprintf(out, "Disk capacity: %s total, %s free\n", formatBytes(usage.QuotaBytes), formatBytes(usage.FreeBytes))
			return nil
		},
	}
}

func newBlobPurgeCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete stored audio older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			retention := days
			if retention <= 0 {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				retention = cfg.Blobs.RetentionDays
			}
			if retention <= 0 {
				return fmt.Errorf("no retention window configured; pass --days or set blobs.retention_days")
			}
			blobs, err := ctx.blobStore()
			if err != nil {
				return err
			}
			purged, err := blobs.PurgeOlderThan(cmd.Context(), time.Duration(retention)*24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d recordings older than %d days\n", purged, retention)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Override the configured retention window in days")
	return cmd
}

func formatBytes(value uint64) string {
	const unit = 1024
	if value < unit {
		return fmt.Sprintf("%d B", value)
	}
	div, exp := uint64(unit), 0
	for n := value / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(value)/float64(div), "KMGTPE"[exp])
}
