package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sectra/slidetap-core/internal/model"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a project with its dataset and default batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := wireApp()
		if err != nil {
			return err
		}
		defer a.Close()

		project, err := a.coord.CreateProject(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("project %s created (dataset %s, default batch %s)\n", project.UID, project.DatasetUID, project.DefaultBatchUID)
		return nil
	},
}

var projectExportCmd = &cobra.Command{
	Use:   "export [project-uid]",
	Short: "Start export of a completed project's outbox",
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
		ctx := context.Background()
		if err := a.coord.StartExport(ctx, uid); err != nil {
			return err
		}
		if err := exportMetadata(ctx, a, uid); err != nil {
			return fmt.Errorf("write export metadata: %w", err)
		}
		if err := a.coord.FinishExport(ctx, uid); err != nil {
			return err
		}
		fmt.Printf("project %s exported\n", uid)
		return nil
	},
}

// exportRecord is one item's exported metadata, addressed by the
// identifier/pseudonym the Storage collaborator stored files under
// rather than by uid (§6 external encoding has no ambient identity).
type exportRecord struct {
	Identifier string                             `json:"identifier"`
	SchemaUID  string                             `json:"schema_uid"`
	Attributes map[string]*model.ExternalAttribute `json:"attributes"`
}

// exportMetadata walks every item reachable from project's dataset,
// converts each attribute to its external form, and persists the
// resulting document via the Storage collaborator (§6 store_metadata),
// supplementing StartExport/FinishExport's pure status transition with
// the metadata artifact pkg/export later serves read-only.
func exportMetadata(ctx context.Context, a *app, projectUID uuid.UUID) error {
	project, err := a.graph.GetProject(ctx, projectUID)
	if err != nil {
		return err
	}
	items, err := a.graph.AllItemsForDataset(ctx, project.DatasetUID)
	if err != nil {
		return err
	}

	records := make([]exportRecord, 0, len(items))
	for _, item := range items {
		base := item.Base()
		record := exportRecord{
			Identifier: base.Identifier,
			SchemaUID:  base.SchemaUID.String(),
			Attributes: make(map[string]*model.ExternalAttribute, len(base.Attributes)),
		}
		for tag, attr := range base.Attributes {
			attrSchema, ok := a.registry.GetAttributeSchema(attr.SchemaUID)
			if !ok {
				continue
			}
			ext, err := a.attrs.ToExternal(attr, attrSchema)
			if err != nil {
				return fmt.Errorf("item %s attribute %s: %w", base.Identifier, tag, err)
			}
			record.Attributes[tag] = ext
		}
		records = append(records, record)
	}

	return a.fsStorage.StoreMetadata(projectUID, records)
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectExportCmd)
}
