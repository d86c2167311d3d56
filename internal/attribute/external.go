package attribute

import (
	"fmt"

	"github.com/sectra/slidetap-core/internal/model"
)

// ToExternal converts an internal attribute into the reduced external
// form used for import/export (§4.B "Converts", §6): no ambient
// identity, only raw values and schema tag.
func (e *Engine) ToExternal(attr *model.Attribute, s *model.AttributeSchema) (*model.ExternalAttribute, error) {
	out := &model.ExternalAttribute{
		AttributeValueType: s.Variant,
		DisplayValue:       attr.DisplayValue,
	}
	value := attr.Value()
	if value == nil {
		return out, nil
	}
	switch s.Variant {
	case model.AttributeObject:
		members, _ := value.(map[string]*model.Attribute)
		encoded := make(map[string]*model.ExternalAttribute, len(members))
		for tag, child := range members {
			childSchema, ok := s.Attributes[tag]
			if !ok {
				return nil, fmt.Errorf("%w: unknown object member %q", model.ErrInvariantViolation, tag)
			}
			childExt, err := e.ToExternal(child, childSchema)
			if err != nil {
				return nil, err
			}
			encoded[tag] = childExt
		}
		out.Value = encoded
	case model.AttributeList:
		items, _ := value.([]*model.Attribute)
		encoded := make([]*model.ExternalAttribute, 0, len(items))
		for _, item := range items {
			itemExt, err := e.ToExternal(item, s.ListAttribute)
			if err != nil {
				return nil, err
			}
			encoded = append(encoded, itemExt)
		}
		out.Value = encoded
	case model.AttributeUnion:
		u, _ := value.(*model.UnionValue)
		if u == nil {
			return out, nil
		}
		var innerSchema *model.AttributeSchema
		for _, candidate := range s.UnionAttributes {
			if candidate.UID == u.AttributeSchemaUID {
				innerSchema = candidate
				break
			}
		}
		if innerSchema == nil {
			return nil, fmt.Errorf("%w: union schema %s not declared on %s", model.ErrInvariantViolation, u.AttributeSchemaUID, s.Tag)
		}
		innerExt, err := e.ToExternal(u.Inner, innerSchema)
		if err != nil {
			return nil, err
		}
		out.Value = &model.ExternalUnionValue{AttributeName: innerSchema.Name, Value: innerExt}
	default:
		out.Value = value
	}
	return out, nil
}

// FromExternal reconstructs the raw-payload shape coercePayload expects
// from an ExternalAttribute, so a round trip is
// ToExternal(Build(FromExternal(x))) == x up to newly assigned uids
// (testable property 8).
func (e *Engine) FromExternal(s *model.AttributeSchema, ext *model.ExternalAttribute) (any, error) {
	if ext == nil || ext.Value == nil {
		return nil, nil
	}
	switch s.Variant {
	case model.AttributeObject:
		members, ok := ext.Value.(map[string]*model.ExternalAttribute)
		if !ok {
			return nil, fmt.Errorf("%w: expected object payload for %s", model.ErrInvariantViolation, s.Tag)
		}
		out := make(map[string]any, len(members))
		for tag, child := range members {
			childSchema, ok := s.Attributes[tag]
			if !ok {
				return nil, fmt.Errorf("%w: unknown object member %q", model.ErrInvariantViolation, tag)
			}
			raw, err := e.FromExternal(childSchema, child)
			if err != nil {
				return nil, err
			}
			out[tag] = raw
		}
		return out, nil
	case model.AttributeList:
		items, ok := ext.Value.([]*model.ExternalAttribute)
		if !ok {
			return nil, fmt.Errorf("%w: expected list payload for %s", model.ErrInvariantViolation, s.Tag)
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			raw, err := e.FromExternal(s.ListAttribute, item)
			if err != nil {
				return nil, err
			}
			out = append(out, raw)
		}
		return out, nil
	case model.AttributeUnion:
		u, ok := ext.Value.(*model.ExternalUnionValue)
		if !ok {
			return nil, fmt.Errorf("%w: expected union payload for %s", model.ErrInvariantViolation, s.Tag)
		}
		var innerSchema *model.AttributeSchema
		for _, candidate := range s.UnionAttributes {
			if candidate.Name == u.AttributeName {
				innerSchema = candidate
				break
			}
		}
		if innerSchema == nil {
			return nil, fmt.Errorf("%w: union member %q not declared on %s", model.ErrInvariantViolation, u.AttributeName, s.Tag)
		}
		raw, err := e.FromExternal(innerSchema, u.Value)
		if err != nil {
			return nil, err
		}
		inner, err := e.Build(innerSchema, raw)
		if err != nil {
			return nil, err
		}
		return model.UnionValue{AttributeSchemaUID: innerSchema.UID, Inner: inner}, nil
	default:
		return ext.Value, nil
	}
}
