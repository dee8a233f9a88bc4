package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mealvault/internal/ledger"
	"mealvault/internal/records"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var reverse bool

	cmd := &cobra.Command{
		Use:   "serve <meal-id> <grams>",
		Short: "Log a serving taken from a cooked batch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			grams, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid weight %q: %w", args[1], err)
			}
			return ctx.withStore(func(store *records.Store) error {
				svc := ledger.New(store, ctx.logger())
				out := cmd.OutOrStdout()

				if reverse {
					batch, err := svc.ReverseServing(cmd.Context(), args[0], grams)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Returned %dg to %s (%dg remaining)\n", grams, batch.MealName, batch.RemainingWeightGrams)
					return nil
				}

				eating, err := svc.AddServing(cmd.Context(), args[0], grams)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Served %dg of %s (%d kcal, record %s)\n", eating.WeightGrams, eating.FoodName, eating.CaloriesKcal, eating.ID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&reverse, "reverse", false, "Return the given weight to the batch instead of serving it")
	return cmd
}
