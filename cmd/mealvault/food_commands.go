package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mealvault/internal/ledger"
	"mealvault/internal/records"
)

func newFoodCommand(ctx *commandContext) *cobra.Command {
	foodCmd := &cobra.Command{
		Use:   "food",
		Short: "Manage logged eating records",
	}

	foodCmd.AddCommand(newFoodListCommand(ctx))
	foodCmd.AddCommand(newFoodAddCommand(ctx))
	foodCmd.AddCommand(newFoodDeleteCommand(ctx))

	return foodCmd
}

func newFoodListCommand(ctx *commandContext) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List eating records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *records.Store) error {
				var items []records.EatingRecord
				var err error
				if strings.TrimSpace(date) != "" {
					items, err = store.ListEatingByDate(cmd.Context(), strings.TrimSpace(date))
				} else {
					items, err = store.ListEating(cmd.Context())
				}
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No eating records")
					return nil
				}

				total := 0
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					total += item.CaloriesKcal
					rows = append(rows, []string{
						item.ID,
						item.FoodName,
						strconv.Itoa(item.WeightGrams),
						strconv.Itoa(item.CaloriesKcal),
						item.EatenDate + " " + item.EatenTime,
						string(item.Source),
					})
				}
				table := renderTable(
					[]column{
						leftColumn("ID"), leftColumn("Food"), rightColumn("Weight g"),
						rightColumn("Kcal"), leftColumn("Eaten"), leftColumn("Source"),
					},
					rows,
				)
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, table)
				fmt.Fprintf(out, "Total: %d kcal\n", total)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Only records eaten on this date (YYYY-MM-DD)")
	return cmd
}

func newFoodAddCommand(ctx *commandContext) *cobra.Command {
	var name string
	var weight int
	var calories int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log an eating record manually",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			if weight <= 0 {
				return fmt.Errorf("--weight must be positive")
			}
			if calories < 0 {
				return fmt.Errorf("--calories must not be negative")
			}
			return ctx.withStore(func(store *records.Store) error {
				eating, err := store.AddEating(cmd.Context(), records.EatingRecord{
					FoodName:     strings.TrimSpace(name),
					WeightGrams:  weight,
					CaloriesKcal: calories,
					Source:       records.SourceManual,
					Status:       records.StatusComplete,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged %s (%d kcal, record %s)\n", eating.FoodName, eating.CaloriesKcal, eating.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Food name")
	cmd.Flags().IntVar(&weight, "weight", 0, "Weight eaten in grams")
	cmd.Flags().IntVar(&calories, "calories", 0, "Calories in kcal")
	return cmd
}

func newFoodDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete an eating record, restoring batch weight for servings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *records.Store) error {
				svc := ledger.New(store, ctx.logger())
				deleted, err := svc.RemoveEating(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("eating record %s not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted eating record %s\n", args[0])
				return nil
			})
		},
	}
}
