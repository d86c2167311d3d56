package lifecycle

import (
	"context"
	"fmt"

	"github.com/sectra/slidetap-core/internal/model"
	"github.com/sectra/slidetap-core/internal/validate"
)

// validateItem runs both halves of §4.E item validation (attributes,
// relations) against the current graph state and persists the result.
func (c *Coordinator) validateItem(ctx context.Context, item *model.Item) error {
	base := item.Base()
	itemSchema, ok := c.registry.GetItemSchema(base.SchemaUID)
	if !ok {
		return fmt.Errorf("%w: item schema %s", model.ErrNotFound, base.SchemaUID)
	}
	c.validator.ValidateItemAttributes(base, itemSchema)

	relValid, err := c.validateRelations(ctx, item, itemSchema)
	if err != nil {
		return err
	}
	validate.SetRelationValidity(base, relValid)
	return c.graph.UpdateItem(ctx, item)
}

// validateRelations implements §4.E's per-kind relation rule, counting
// selected counterparts per declared relation by resolving each edge
// through the Item Store (the Validator itself holds no graph state).
func (c *Coordinator) validateRelations(ctx context.Context, item *model.Item, itemSchema *model.ItemSchema) (bool, error) {
	switch item.Kind {
	case model.ItemSample:
		s := item.Sample
		childCounts, err := c.relationCounts(ctx, itemSchema.ChildRelations, s.ChildUIDs)
		if err != nil {
			return false, err
		}
		parentCounts, err := c.relationCounts(ctx, itemSchema.ParentRelations, s.ParentUIDs)
		if err != nil {
			return false, err
		}
		imageCounts, err := c.relationCounts(ctx, itemSchema.ImageRelations, s.ImageUIDs)
		if err != nil {
			return false, err
		}
		valid, _ := validate.ValidateSampleRelations(childCounts, parentCounts, imageCounts)
		return valid, nil

	case model.ItemImage:
		img := item.Image
		selected := 0
		for uid := range img.SampleUIDs {
			sel, err := c.isSelected(ctx, uid)
			if err != nil {
				return false, err
			}
			if sel {
				selected++
			}
		}
		return validate.ValidateImageRelations(selected), nil

	case model.ItemAnnotation:
		ann := item.Annotation
		set := ann.ImageUID != model.UID{}
		selected := false
		if set {
			var err error
			selected, err = c.isSelected(ctx, ann.ImageUID)
			if err != nil {
				return false, err
			}
		}
		return validate.ValidateAnnotationRelation(set, selected), nil

	case model.ItemObservation:
		obs := item.Observation
		set := obs.TargetUID != model.UID{}
		selected := false
		schemaDeclared := false
		if set {
			target, err := c.graph.GetItem(ctx, obs.TargetUID)
			if err != nil {
				return false, err
			}
			selected = target.Base().Selected
			for _, declared := range itemSchema.ObservesSchemas {
				if declared == target.Base().SchemaUID {
					schemaDeclared = true
					break
				}
			}
		}
		return validate.ValidateObservationRelation(set, selected, schemaDeclared), nil

	default:
		return false, fmt.Errorf("%w: unknown item kind %q", model.ErrInvariantViolation, item.Kind)
	}
}

func (c *Coordinator) relationCounts(ctx context.Context, declared []model.RelationSchema, uids map[model.UID]struct{}) ([]validate.RelationCount, error) {
	counts := make([]validate.RelationCount, 0, len(declared))
	for _, rel := range declared {
		n := 0
		for uid := range uids {
			item, err := c.graph.GetItem(ctx, uid)
			if err != nil {
				return nil, err
			}
			if item.Base().SchemaUID != rel.TargetSchemaUID {
				continue
			}
			if item.Base().Selected {
				n++
			}
		}
		counts = append(counts, validate.RelationCount{
			Name:          rel.Name,
			Min:           rel.MinCount,
			Max:           rel.MaxCount,
			SelectedCount: n,
		})
	}
	return counts, nil
}

func (c *Coordinator) isSelected(ctx context.Context, uid model.UID) (bool, error) {
	item, err := c.graph.GetItem(ctx, uid)
	if err != nil {
		return false, err
	}
	return item.Base().Selected, nil
}

// ValidateBatch validates every item in batchUID and returns the
// aggregate report (§4.E).
func (c *Coordinator) ValidateBatch(ctx context.Context, batchUID model.UID) (*validate.BatchValidation, error) {
	items, err := c.graph.AllItemsForBatch(ctx, batchUID)
	if err != nil {
		return nil, err
	}
	report := &validate.BatchValidation{Valid: true, UID: batchUID}
	for _, item := range items {
		if err := c.validateItem(ctx, item); err != nil {
			return nil, err
		}
		if !item.Base().Valid() {
			report.Valid = false
			report.NonValidItems = append(report.NonValidItems, item.Base().UID)
		}
	}
	return report, nil
}

// ValidateDataset validates a dataset's own top-level attributes
// (relations do not apply at dataset scope).
func (c *Coordinator) ValidateDataset(ctx context.Context, datasetUID model.UID) (*validate.DatasetValidation, error) {
	dataset, err := c.graph.GetDataset(ctx, datasetUID)
	if err != nil {
		return nil, err
	}
	valid, invalid := c.validator.ValidateAttributeSet(dataset.Attributes, c.registry.Root().Dataset.Attributes)
	dataset.ValidAttributes = &valid
	if err := c.graph.UpdateDataset(ctx, dataset); err != nil {
		return nil, err
	}
	return &validate.DatasetValidation{Valid: valid, UID: datasetUID, NonValidAttributes: invalid}, nil
}

// ValidateProject validates a project's own top-level attributes.
func (c *Coordinator) ValidateProject(ctx context.Context, projectUID model.UID) (*validate.ProjectValidation, error) {
	project, err := c.graph.GetProject(ctx, projectUID)
	if err != nil {
		return nil, err
	}
	valid, invalid := c.validator.ValidateAttributeSet(project.Attributes, c.registry.Root().Project.Attributes)
	if err := c.graph.UpdateProject(ctx, project); err != nil {
		return nil, err
	}
	return &validate.ProjectValidation{Valid: valid, UID: projectUID, NonValidAttributes: invalid}, nil
}
