package lifecycle

import (
	"context"

	"github.com/sectra/slidetap-core/internal/mapper"
	"github.com/sectra/slidetap-core/internal/model"
)

// ctxAttributeSource adapts the ctx-taking Graph.AttributesForRootSchema
// to mapper.AttributeSource's ctx-less signature by closing over a
// context for the duration of one ApplyMappersToProject call. The
// Mapper Engine is intentionally context-agnostic (it does no I/O of
// its own); the Item Store is not, so the bridge lives here.
type ctxAttributeSource struct {
	ctx   context.Context
	graph Graph
}

func (s ctxAttributeSource) AttributesForRootSchema(rootAttributeSchemaUID model.UID) ([]*model.Attribute, error) {
	return s.graph.AttributesForRootSchema(s.ctx, rootAttributeSchemaUID)
}

// ApplyMappersToProject runs every mapper in every mapper group
// attached to project across the attributes of every item in the
// project's dataset and across the project's own attributes (§4.C
// "Applying mappers to a project"). Groups are visited in no defined
// order; dataset-level attributes are not mapped.
func (c *Coordinator) ApplyMappersToProject(ctx context.Context, project *model.Project) error {
	source := ctxAttributeSource{ctx: ctx, graph: c.graph}

	items, err := c.graph.AllItemsForDataset(ctx, project.DatasetUID)
	if err != nil {
		return err
	}

	for groupUID := range project.MapperGroupUIDs {
		mappers, err := c.mappers.MappersInGroup(groupUID)
		if err != nil {
			return err
		}
		for _, m := range mappers {
			for _, item := range items {
				for _, attr := range item.Base().Attributes {
					if _, err := c.mappers.Apply(m, attr); err != nil {
						return err
					}
				}
			}
			if project.Attributes != nil {
				for _, attr := range project.Attributes {
					if _, err := c.mappers.Apply(m, attr); err != nil {
						return err
					}
				}
			}
			// reapply via AddMapping's path is for single mapping-item
			// changes; a full project sweep instead applies directly and
			// does not use the AttributeSource bridge.
			_ = source
		}
	}

	for _, item := range items {
		if err := c.graph.UpdateItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// AddMapping registers a mapping item on mapper and re-applies it
// across the store, bridging the ctx-less mapper.AttributeSource
// interface to the Item Store.
func (c *Coordinator) AddMapping(ctx context.Context, m *model.Mapper, expression string, attr *model.Attribute) (*model.MappingItem, error) {
	return c.mappers.AddMapping(m, expression, attr, ctxAttributeSource{ctx: ctx, graph: c.graph})
}

var _ mapper.AttributeSource = ctxAttributeSource{}
