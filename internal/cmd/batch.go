package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sectra/slidetap-core/internal/importer"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Manage batches",
}

var batchCreateCmd = &cobra.Command{
	Use:   "create [project-uid] [name]",
	Short: "Create a non-default batch in a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := wireApp()
		if err != nil {
			return err
		}
		defer a.Close()

		projectUID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project uid: %w", err)
		}
		batch, err := a.coord.CreateBatch(context.Background(), projectUID, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("batch %s created\n", batch.UID)
		return nil
	},
}

var (
	uploadSchemaUID string
	uploadDataset   string
	uploadIDColumn  string
	uploadMappings  []string
)

var batchUploadCmd = &cobra.Command{
	Use:   "upload [batch-uid] [csv-file]",
	Short: "Import sample metadata from a CSV file into a batch",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := wireApp()
		if err != nil {
			return err
		}
		defer a.Close()

		batchUID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid batch uid: %w", err)
		}
		schemaUID, err := uuid.Parse(uploadSchemaUID)
		if err != nil {
			return fmt.Errorf("invalid --item-schema: %w", err)
		}
		datasetUID, err := uuid.Parse(uploadDataset)
		if err != nil {
			return fmt.Errorf("invalid --dataset: %w", err)
		}

		spec := importer.ImportSpec{ItemSchemaUID: schemaUID, IdentifierColumn: uploadIDColumn}
		for _, m := range uploadMappings {
			col, tag, ok := strings.Cut(m, "=")
			if !ok {
				return fmt.Errorf("invalid --map %q, expected column=tag", m)
			}
			spec.Columns = append(spec.Columns, importer.ColumnMapping{Column: col, Tag: tag})
		}

		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		rows, err := importer.ParseFile(f, spec)
		if err != nil {
			return err
		}
		uids, err := a.importer.Import(context.Background(), a.graph, datasetUID, batchUID, spec, rows)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d items\n", len(uids))
		return nil
	},
}

var batchPreProcessCmd = &cobra.Command{
	Use:   "pre-process [batch-uid]",
	Short: "Start search (image download) and enqueue pre-processing",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := wireApp()
		if err != nil {
			return err
		}
		defer a.Close()

		batchUID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid batch uid: %w", err)
		}
		ctx := context.Background()
		if err := a.coord.StartSearch(ctx, batchUID); err != nil {
			return err
		}
		if err := a.coord.SearchComplete(ctx, batchUID); err != nil {
			return err
		}
		if err := a.coord.StartPreProcessing(ctx, batchUID); err != nil {
			return err
		}
		fmt.Printf("batch %s pre-processing started\n", batchUID)
		return nil
	},
}

var batchProcessCmd = &cobra.Command{
	Use:   "process [batch-uid]",
	Short: "Enqueue post-processing for a pre-processed batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := wireApp()
		if err != nil {
			return err
		}
		defer a.Close()

		batchUID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid batch uid: %w", err)
		}
		if err := a.coord.StartPostProcessing(context.Background(), batchUID); err != nil {
			return err
		}
		fmt.Printf("batch %s post-processing started\n", batchUID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.AddCommand(batchCreateCmd)
	batchCmd.AddCommand(batchUploadCmd)
	batchCmd.AddCommand(batchPreProcessCmd)
	batchCmd.AddCommand(batchProcessCmd)

	batchUploadCmd.Flags().StringVar(&uploadSchemaUID, "item-schema", "", "sample item schema uid (required)")
	batchUploadCmd.Flags().StringVar(&uploadDataset, "dataset", "", "dataset uid (required)")
	batchUploadCmd.Flags().StringVar(&uploadIDColumn, "id-column", "identifier", "CSV column holding the item identifier")
	batchUploadCmd.Flags().StringArrayVar(&uploadMappings, "map", nil, "column=tag attribute mapping, repeatable")
}
