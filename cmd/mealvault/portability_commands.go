package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mealvault/internal/records"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export every collection to a JSON backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *records.Store) error {
				backup, err := store.Export(cmd.Context())
				if err != nil {
					return err
				}
				payload, err := json.MarshalIndent(backup, "", "  ")
				if err != nil {
					return fmt.Errorf("encode backup: %w", err)
				}
				target := strings.TrimSpace(args[0])
				if err := os.WriteFile(target, payload, 0o644); err != nil {
					return fmt.Errorf("write backup: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d recordings, %d meals, %d eating records to %s\n",
					len(backup.AudioRecords), len(backup.CookingRecords), len(backup.EatingRecords), target)
				return nil
			})
		},
	}
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Restore collections from a JSON backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}
			var backup records.Backup
			if err := json.Unmarshal(payload, &backup); err != nil {
				return fmt.Errorf("decode backup: %w", err)
			}
			return ctx.withStore(func(store *records.Store) error {
				if err := store.Import(cmd.Context(), &backup); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d recordings, %d meals, %d eating records\n",
					len(backup.AudioRecords), len(backup.CookingRecords), len(backup.EatingRecords))
				return nil
			})
		},
	}
}
