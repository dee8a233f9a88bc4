package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mealvault/internal/records"
)

func newMealCommand(ctx *commandContext) *cobra.Command {
	mealCmd := &cobra.Command{
		Use:   "meal",
		Short: "Manage cooked meal batches",
	}

	mealCmd.AddCommand(newMealListCommand(ctx))
	mealCmd.AddCommand(newMealShowCommand(ctx))
	mealCmd.AddCommand(newMealAddCommand(ctx))
	mealCmd.AddCommand(newMealDeleteCommand(ctx))

	return mealCmd
}

func newMealListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cooked batches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *records.Store) error {
				items, err := store.ListCooking(cmd.Context())
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No cooked batches")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ID,
						item.MealName,
						strconv.Itoa(item.TotalWeightGrams),
						strconv.Itoa(item.RemainingWeightGrams),
						strconv.Itoa(item.TotalCaloriesKcal),
						item.CookedDate,
					})
				}
				table := renderTable(
					[]column{
						leftColumn("ID"), leftColumn("Meal"), rightColumn("Total g"),
						rightColumn("Remaining g"), rightColumn("Kcal"), leftColumn("Cooked"),
					},
					rows,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newMealShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <meal-id>",
		Short: "Show a cooked batch and its ingredients",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *records.Store) error {
				batch, err := store.GetCooking(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if batch == nil {
					return fmt.Errorf("meal %s not found", args[0])
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", batch.ID)
				fmt.Fprintf(out, "Meal:      %s\n", batch.MealName)
				fmt.Fprintf(out, "Cooked:    %s %s\n", batch.CookedDate, batch.CookedTime)
				fmt.Fprintf(out, "Weight:    %dg total, %dg remaining\n", batch.TotalWeightGrams, batch.RemainingWeightGrams)
				fmt.Fprintf(out, "Calories:  %d kcal\n", batch.TotalCaloriesKcal)
				if len(batch.IngredientNames) > 0 {
					fmt.Fprintf(out, "Contains:  %s\n", strings.Join(batch.IngredientNames, ", "))
				}

				ingredients, err := store.ListIngredientsByMeal(cmd.Context(), batch.ID)
				if err != nil {
					return err
				}
				if len(ingredients) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(ingredients))
				for _, ing := range ingredients {
					rows = append(rows, []string{
						ing.Name,
						strconv.Itoa(ing.WeightGrams),
						strconv.Itoa(ing.CaloriesPer100g),
						strconv.Itoa(ing.TotalCaloriesKcal),
					})
				}
				table := renderTable(
					[]column{
						leftColumn("Ingredient"), rightColumn("Weight g"),
						rightColumn("Kcal/100g"), rightColumn("Kcal"),
					},
					rows,
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}
}

func newMealAddCommand(ctx *commandContext) *cobra.Command {
	var name string
	var weight int
	var calories int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a cooked batch manually",
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
				batch, err := store.AddCooking(cmd.Context(), records.CookingRecord{
					MealName:          strings.TrimSpace(name),
					TotalWeightGrams:  weight,
					TotalCaloriesKcal: calories,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added meal %s (%s)\n", batch.MealName, batch.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Meal name")
	cmd.Flags().IntVar(&weight, "weight", 0, "Total batch weight in grams")
	cmd.Flags().IntVar(&calories, "calories", 0, "Total batch calories in kcal")
	return cmd
}

func newMealDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <meal-id>",
		Short: "Delete a cooked batch and its ingredients",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *records.Store) error {
				deleted, err := store.DeleteCooking(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("meal %s not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted meal %s\n", args[0])
				return nil
			})
		},
	}
}
