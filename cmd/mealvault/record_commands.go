package main

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mealvault/internal/ingest"
	"mealvault/internal/records"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Capture and manage voice recordings",
	}

	recordCmd.AddCommand(newRecordAddCommand(ctx))
	recordCmd.AddCommand(newRecordListCommand(ctx))
	recordCmd.AddCommand(newRecordShowCommand(ctx))
	recordCmd.AddCommand(newRecordDeleteCommand(ctx))
	recordCmd.AddCommand(newRecordProcessCommand(ctx))
	recordCmd.AddCommand(newRecordClarifyCommand(ctx))

	return recordCmd
}

func newRecordAddCommand(ctx *commandContext) *cobra.Command {
	var duration float64
	var mimeType string

	cmd := &cobra.Command{
		Use:   "add <audio-file>",
		Short: "Ingest an audio file and derive records from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(args[0])
			payload, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read audio file: %w", err)
			}

			resolved := strings.TrimSpace(mimeType)
			if resolved == "" {
				resolved = mime.TypeByExtension(filepath.Ext(path))
			}

			return ctx.withServices(cmd.Context(), func(svc *services) error {
				result, err := svc.ingest.Ingest(cmd.Context(), ingest.Capture{
					Filename:        filepath.Base(path),
					MimeType:        resolved,
					DurationSeconds: duration,
					Audio:           payload,
				})
				if err != nil {
					return err
				}
				printIngestResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&duration, "duration", 0, "Recording duration in seconds")
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "Audio MIME type (detected from the extension when omitted)")
	return cmd
}

func newRecordListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List captured recordings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *records.Store) error {
				items, err := store.ListAudio(cmd.Context())
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No recordings")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ID,
						item.Filename,
						item.RecordedDate + " " + item.RecordedTime,
						fmt.Sprintf("%.1fs", item.DurationSeconds),
						yesNo(item.Transcribed),
					})
				}
				table := renderTable(
					[]column{
						leftColumn("ID"), leftColumn("File"), leftColumn("Recorded"),
						rightColumn("Duration"), leftColumn("Transcribed"),
					},
					rows,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newRecordShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <recording-id>",
		Short: "Show one recording's metadata and transcription state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *records.Store) error {
				audio, err := store.GetAudio(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if audio == nil {
					return fmt.Errorf("recording %s not found", args[0])
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:          %s\n", audio.ID)
				fmt.Fprintf(out, "File:        %s (%s, %d bytes)\n", audio.Filename, audio.MimeType, audio.SizeBytes)
				fmt.Fprintf(out, "Recorded:    %s %s\n", audio.RecordedDate, audio.RecordedTime)
				fmt.Fprintf(out, "Duration:    %.1fs\n", audio.DurationSeconds)
				fmt.Fprintf(out, "Transcribed: %s\n", yesNo(audio.Transcribed))
				if audio.TranscriptionData != "" {
					fmt.Fprintf(out, "Transcription:\n%s\n", audio.TranscriptionData)
				}
				return nil
			})
		},
	}
}

func newRecordDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <recording-id>",
		Short: "Delete a recording and its stored audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *records.Store) error {
				deleted, err := store.DeleteAudio(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("recording %s not found", args[0])
				}
				blobs, err := ctx.blobStore()
				if err != nil {
					return err
				}
				if _, err := blobs.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted recording %s\n", args[0])
				return nil
			})
		},
	}
}

func newRecordProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <recording-id>",
		Short: "Run the AI transcription pipeline for a stored recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd.Context(), func(svc *services) error {
				result, err := svc.ingest.Process(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printIngestResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newRecordClarifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clarify <recording-id> <note>",
		Short: "Answer a clarification question for a recording",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			note := strings.Join(args[1:], " ")
			return ctx.withServices(cmd.Context(), func(svc *services) error {
				result, err := svc.ingest.Clarify(cmd.Context(), args[0], note)
				if err != nil {
					return err
				}
				printIngestResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func printIngestResult(out io.Writer, result *ingest.Result) {
	if result == nil {
		return
	}
	if result.Audio != nil {
		fmt.Fprintf(out, "Recording %s stored\n", result.Audio.ID)
	}
	if result.Disposition == ingest.DispositionQueued {
		fmt.Fprintln(out, "Offline: transcription queued for replay")
		return
	}
	outcome := result.Outcome
	if outcome == nil {
		return
	}
	if outcome.ClarificationQuestion != "" {
		fmt.Fprintf(out, "Clarification needed: %s\n", outcome.ClarificationQuestion)
	}
	if len(outcome.MissingData) > 0 {
		fmt.Fprintf(out, "Missing data: %s\n", strings.Join(outcome.MissingData, ", "))
	}
	for _, batch := range outcome.CookingRecords {
		fmt.Fprintf(out, "Cooked: %s (%dg, %d kcal)\n", batch.MealName, batch.TotalWeightGrams, batch.TotalCaloriesKcal)
	}
	for _, eating := range outcome.EatingRecords {
		fmt.Fprintf(out, "Ate: %s (%dg, %d kcal)\n", eating.FoodName, eating.WeightGrams, eating.CaloriesKcal)
	}
}
