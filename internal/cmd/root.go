// Package cmd implements the slidetap control-surface CLI: project/
// batch/item/attribute/image verbs, validation reports, project
// export. Root/version command wiring follows a shared config.Load(),
// generalized from a single mount verb to one subcommand per
// lifecycle/store operation.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	schemaPath  string
	dbPath      string
	storageRoot string
)

var rootCmd = &cobra.Command{
	Use:   "slidetap",
	Short: "Curate and process whole-slide-image batches",
	Long: `slidetap drives the item graph, lifecycle state machine, and image
pipeline behind a pathology whole-slide-image batch curation system.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "path to the schema YAML document (required)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "slidetap.db", "path to the SQLite item store")
	rootCmd.PersistentFlags().StringVar(&storageRoot, "storage", "", "outbox storage root (default: config file / $SLIDETAP_STORAGE_ROOT)")
}
