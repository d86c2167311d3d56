package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var attributeCmd = &cobra.Command{
	Use:   "attribute",
	Short: "Update item attribute values",
}

var attributeUpdateCmd = &cobra.Command{
	Use:   "update [item-uid] [tag] [value]",
	Short: "Set an attribute's updated value and re-validate the item",
	Args:  cobra.ExactArgs(3),
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
		if err := a.coord.UpdateAttribute(context.Background(), itemUID, args[1], parseAttributeValue(args[2])); err != nil {
			return err
		}
		fmt.Printf("item %s attribute %q updated\n", itemUID, args[1])
		return nil
	},
}

// parseAttributeValue lets callers pass numbers, booleans, lists, and
// objects on the command line without a separate --type flag: try JSON
// first (covers numeric/boolean/list/measurement/code values), fall
// back to the raw string for plain text values.
func parseAttributeValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func init() {
	rootCmd.AddCommand(attributeCmd)
	attributeCmd.AddCommand(attributeUpdateCmd)
}
