// Package attribute implements the Attribute Engine (§4.B): building,
// updating, display-value rendering and external conversion of typed
// attributes.
package attribute

import (
	"fmt"

	"github.com/sectra/slidetap-core/internal/model"
	"github.com/sectra/slidetap-core/internal/schema"
)

// Engine is the Attribute Engine. It is stateless aside from holding a
// reference to the (immutable) Schema Registry it builds attributes
// against.
type Engine struct {
	registry *schema.Registry
}

// New constructs an Attribute Engine over the given Schema Registry.
func New(registry *schema.Registry) *Engine {
	return &Engine{registry: registry}
}

// Build validates payload against schema's variant and constructs a new
// attribute, assigning uid, copying original_value and computing
// display_value (§4.B "Builds").
func (e *Engine) Build(attrSchema *model.AttributeSchema, payload any) (*model.Attribute, error) {
	attr := &model.Attribute{
		UID:       model.NewUID(),
		SchemaUID: attrSchema.UID,
		Variant:   attrSchema.Variant,
	}
	value, err := e.coercePayload(attrSchema, payload)
	if err != nil {
		return nil, fmt.Errorf("attribute: build %s: %w", attrSchema.Tag, err)
	}
	attr.OriginalValue = value
	e.recomputeDisplay(attr, attrSchema)
	return attr, nil
}

// coercePayload validates and converts a raw payload into the internal
// representation appropriate to the schema's variant, recursing for
// Object/List/Union (invariant i: a payload must match its schema's
// variant shape).
func (e *Engine) coercePayload(s *model.AttributeSchema, payload any) (any, error) {
	if payload == nil {
		return nil, nil
	}
	switch s.Variant {
	case model.AttributeString, model.AttributeEnum:
		v, ok := payload.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected string for %s", model.ErrInvariantViolation, s.Tag)
		}
		return v, nil
	case model.AttributeBoolean:
		v, ok := payload.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: expected bool for %s", model.ErrInvariantViolation, s.Tag)
		}
		return v, nil
	case model.AttributeNumeric:
		switch n := payload.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		default:
			return nil, fmt.Errorf("%w: expected number for %s", model.ErrInvariantViolation, s.Tag)
		}
	case model.AttributeMeasurement:
		v, ok := payload.(model.Measurement)
		if !ok {
			return nil, fmt.Errorf("%w: expected Measurement for %s", model.ErrInvariantViolation, s.Tag)
		}
		return v, nil
	case model.AttributeCode:
		v, ok := payload.(model.Code)
		if !ok {
			return nil, fmt.Errorf("%w: expected Code for %s", model.ErrInvariantViolation, s.Tag)
		}
		return v, nil
	case model.AttributeDatetime:
		return payload, nil
	case model.AttributeObject:
		members, ok := payload.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected object for %s", model.ErrInvariantViolation, s.Tag)
		}
		out := make(map[string]*model.Attribute, len(members))
		for tag, raw := range members {
			childSchema, ok := s.Attributes[tag]
			if !ok {
				return nil, fmt.Errorf("%w: unknown object member %q for %s", model.ErrInvariantViolation, tag, s.Tag)
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
		out := make([]*model.Attribute, 0, len(items))
		for _, raw := range items {
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
		if pair.Inner == nil {
			return nil, fmt.Errorf("%w: union value missing inner attribute for %s", model.ErrInvariantViolation, s.Tag)
		}
		return &model.UnionValue{AttributeSchemaUID: innerSchema.UID, Inner: pair.Inner}, nil
	default:
		return nil, fmt.Errorf("%w: unknown attribute variant %q", model.ErrInvariantViolation, s.Variant)
	}
}
