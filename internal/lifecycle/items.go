package lifecycle

import (
	"context"
	"fmt"

	"github.com/sectra/slidetap-core/internal/model"
)

// SelectItem sets item.Selected and re-validates the item plus every
// item one relation-hop away, since toggling selection changes the
// selected-counterpart counts those neighbors' relation validity
// depends on (§4.E "selection changes propagate one hop").
func (c *Coordinator) SelectItem(ctx context.Context, itemUID model.UID, selected bool) error {
	item, err := c.graph.GetItem(ctx, itemUID)
	if err != nil {
		return err
	}
	base := item.Base()
	if base.Locked {
		return fmt.Errorf("%w: item %s is locked", model.ErrNotAllowedAction, itemUID)
	}
	base.Selected = selected
	if err := c.validateItem(ctx, item); err != nil {
		return err
	}

	for _, neighbor := range c.relationNeighbors(item) {
		neighborItem, err := c.graph.GetItem(ctx, neighbor)
		if err != nil {
			return err
		}
		if err := c.validateItem(ctx, neighborItem); err != nil {
			return err
		}
	}
	return nil
}

// relationNeighbors lists every item uid reachable in one relation hop
// from item, used to bound the revalidation blast radius of SelectItem.
func (c *Coordinator) relationNeighbors(item *model.Item) []model.UID {
	var out []model.UID
	switch item.Kind {
	case model.ItemSample:
		s := item.Sample
		for uid := range s.ParentUIDs {
			out = append(out, uid)
		}
		for uid := range s.ChildUIDs {
			out = append(out, uid)
		}
		for uid := range s.ImageUIDs {
			out = append(out, uid)
		}
	case model.ItemImage:
		img := item.Image
		for uid := range img.SampleUIDs {
			out = append(out, uid)
		}
	case model.ItemAnnotation:
		out = append(out, item.Annotation.ImageUID)
	case model.ItemObservation:
		out = append(out, item.Observation.TargetUID)
	}
	return out
}

// UpdateAttribute overwrites attr.UpdatedValue through the Attribute
// Engine, then re-validates the owning item's attributes (§4.E, §4.B).
func (c *Coordinator) UpdateAttribute(ctx context.Context, itemUID model.UID, tag string, value any) error {
	item, err := c.graph.GetItem(ctx, itemUID)
	if err != nil {
		return err
	}
	base := item.Base()
	if base.Locked {
		return fmt.Errorf("%w: item %s is locked", model.ErrNotAllowedAction, itemUID)
	}
	attr, ok := base.Attributes[tag]
	if !ok || attr == nil {
		return fmt.Errorf("%w: attribute %q on item %s", model.ErrNotFound, tag, itemUID)
	}
	itemSchema, ok := c.registry.GetItemSchema(base.SchemaUID)
	if !ok {
		return fmt.Errorf("%w: item schema %s", model.ErrNotFound, base.SchemaUID)
	}
	attrSchema, ok := itemSchema.Attributes[tag]
	if !ok {
		return fmt.Errorf("%w: attribute schema for tag %q", model.ErrNotFound, tag)
	}
	if err := c.attrs.Update(attr, attrSchema, value); err != nil {
		return err
	}
	return c.validateItem(ctx, item)
}
