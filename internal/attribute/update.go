package attribute

import (
	"fmt"

	"github.com/sectra/slidetap-core/internal/model"
)

// Update replaces attr's updated_value with payload, recursing into
// Object/List members so existing nested attributes keep their
// identity (uid) and only missing members are newly built (§4.B
// "Updates" - "a sub-attribute may be created on the fly if it does not
// exist"). A Union keeps its existing inner attribute only when the
// payload names the same inner schema and carries no inner attribute;
// otherwise the payload's inner attribute replaces it. display_value is
// recomputed afterward; the caller is
// responsible for re-validating (§4.B "marks dirty for re-validation").
func (e *Engine) Update(attr *model.Attribute, s *model.AttributeSchema, payload any) error {
	if attr.Locked {
		return fmt.Errorf("%w: attribute %s is locked", model.ErrNotAllowedAction, attr.UID)
	}
	value, err := e.updateValue(attr.Value(), s, payload)
	if err != nil {
		return fmt.Errorf("attribute: update %s: %w", s.Tag, err)
	}
	attr.UpdatedValue = value
	e.recomputeDisplay(attr, s)
	return nil
}

// UpdateMappable replaces mappable_value only; it never mutates
// original_value or updated_value. Applying a mapper against the new
// mappable_value is the Mapper Engine's responsibility.
func (e *Engine) UpdateMappable(attr *model.Attribute, value string) {
	attr.MappableValue = &value
}

func (e *Engine) updateValue(existing any, s *model.AttributeSchema, payload any) (any, error) {
	if payload == nil {
		return nil, nil
	}
	switch s.Variant {
	case model.AttributeObject:
		members, ok := payload.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected object for %s", model.ErrInvariantViolation, s.Tag)
		}
		existingMembers, _ := existing.(map[string]*model.Attribute)
		out := make(map[string]*model.Attribute, len(members))
		if existingMembers != nil {
			for tag, attr := range existingMembers {
				out[tag] = attr
			}
		}
		for tag, raw := range members {
			childSchema, ok := s.Attributes[tag]
			if !ok {
				return nil, fmt.Errorf("%w: unknown object member %q for %s", model.ErrInvariantViolation, tag, s.Tag)
			}
			if child, ok := out[tag]; ok && child != nil {
				if err := e.Update(child, childSchema, raw); err != nil {
					return nil, err
				}
				continue
			}
			child, err := e.Build(childSchema, raw)
			if err != nil {
				return nil, err
			}
			out[tag] = child
		}
		return out, nil
	case model.AttributeList:
		items, ok := payload.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected list for %s", model.ErrInvariantViolation, s.Tag)
		}
		existingItems, _ := existing.([]*model.Attribute)
		out := make([]*model.Attribute, 0, len(items))
		for i, raw := range items {
			if i < len(existingItems) && existingItems[i] != nil {
				if err := e.Update(existingItems[i], s.ListAttribute, raw); err != nil {
					return nil, err
				}
				out = append(out, existingItems[i])
				continue
			}
			child, err := e.Build(s.ListAttribute, raw)
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		return out, nil
	case model.AttributeUnion:
		pair, ok := payload.(model.UnionValue)
		if !ok {
			return nil, fmt.Errorf("%w: expected UnionValue for %s", model.ErrInvariantViolation, s.Tag)
		}
		var innerSchema *model.AttributeSchema
		for _, candidate := range s.UnionAttributes {
			if candidate.UID == pair.AttributeSchemaUID {
				innerSchema = candidate
				break
			}
		}
		if innerSchema == nil {
			return nil, fmt.Errorf("%w: union schema %s is not a candidate of %s", model.ErrInvariantViolation, pair.AttributeSchemaUID, s.Tag)
		}
		if existingUnion, ok := existing.(*model.UnionValue); ok && existingUnion != nil && existingUnion.AttributeSchemaUID == innerSchema.UID && pair.Inner == nil {
			return existingUnion, nil
		}
		return &model.UnionValue{AttributeSchemaUID: innerSchema.UID, Inner: pair.Inner}, nil
	default:
		return e.coercePayload(s, payload)
	}
}
