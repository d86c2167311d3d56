package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run validation and print a JSON report",
}

var validateBatchCmd = &cobra.Command{
	Use:   "batch [batch-uid]",
	Short: "Validate every item in a batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := wireApp()
		if err != nil {
			return err
		}
		defer a.Close()

		uid, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid batch uid: %w", err)
		}
		report, err := a.coord.ValidateBatch(context.Background(), uid)
		if err != nil {
			return err
		}
		return printReport(report)
	},
}

var validateDatasetCmd = &cobra.Command{
	Use:   "dataset [dataset-uid]",
	Short: "Validate a dataset's top-level attributes",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := wireApp()
		if err != nil {
			return err
		}
		defer a.Close()

		uid, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid dataset uid: %w", err)
		}
		report, err := a.coord.ValidateDataset(context.Background(), uid)
		if err != nil {
			return err
		}
		return printReport(report)
	},
}

var validateProjectCmd = &cobra.Command{
	Use:   "project [project-uid]",
	Short: "Validate a project's top-level attributes",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := wireApp()
		if err != nil {
			return err
		}
		defer a.Close()

		uid, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project uid: %w", err)
		}
		report, err := a.coord.ValidateProject(context.Background(), uid)
		if err != nil {
			return err
		}
		return printReport(report)
	},
}

func printReport(report any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.AddCommand(validateBatchCmd)
	validateCmd.AddCommand(validateDatasetCmd)
	validateCmd.AddCommand(validateProjectCmd)
}
