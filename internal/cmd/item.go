package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage items",
}

var itemSelectCmd = &cobra.Command{
	Use:   "select [item-uid] [true|false]",
	Short: "Mark an item selected or deselected and re-validate its direct relatives",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := wireApp()
		if err != nil {
			return err
		}
		defer a.Close()

		itemUID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid item uid: %w", err)
		}
		selected, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid selected value %q: %w", args[1], err)
		}
		if err := a.coord.SelectItem(context.Background(), itemUID, selected); err != nil {
			return err
		}
		fmt.Printf("item %s selected=%v\n", itemUID, selected)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(itemCmd)
	itemCmd.AddCommand(itemSelectCmd)
}
