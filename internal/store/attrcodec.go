package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sectra/slidetap-core/internal/model"
)

// attrDTO is the on-disk shape of one model.Attribute. Unlike the §6
// external wire form (internal/attribute.ToExternal), this preserves
// identity (uid, locked, mapping_item_uid) so a round trip through the
// store is lossless, not just value-equivalent.
type attrDTO struct {
	UID            string          `json:"uid"`
	SchemaUID      string          `json:"schemaUid"`
	Original       json.RawMessage `json:"original,omitempty"`
	Updated        json.RawMessage `json:"updated,omitempty"`
	Mapped         json.RawMessage `json:"mapped,omitempty"`
	MappableValue  *string         `json:"mappableValue,omitempty"`
	DisplayValue   *string         `json:"displayValue,omitempty"`
	Valid          bool            `json:"valid"`
	MappingItemUID *string         `json:"mappingItemUid,omitempty"`
	Locked         bool            `json:"locked"`
}

type unionDTO struct {
	AttributeSchemaUID string  `json:"attributeSchemaUid"`
	Inner              attrDTO `json:"inner"`
}

// encodeAttributeSet serializes an item/project/dataset's attribute map
// keyed by tag, looking up each attribute's schema from declared.
func encodeAttributeSet(attrs map[string]*model.Attribute, declared map[string]*model.AttributeSchema) (string, error) {
	out := make(map[string]attrDTO, len(attrs))
	for tag, attr := range attrs {
		s, ok := declared[tag]
		if !ok {
			return "", fmt.Errorf("%w: attribute %q not declared", model.ErrInvariantViolation, tag)
		}
		dto, err := encodeAttribute(attr, s)
		if err != nil {
			return "", err
		}
		out[tag] = dto
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeAttributeSet(raw string, declared map[string]*model.AttributeSchema) (map[string]*model.Attribute, error) {
	if raw == "" {
		return map[string]*model.Attribute{}, nil
	}
	var in map[string]attrDTO
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, fmt.Errorf("decode attribute set: %w", err)
	}
	out := make(map[string]*model.Attribute, len(in))
	for tag, dto := range in {
		s, ok := declared[tag]
		if !ok {
			return nil, fmt.Errorf("%w: attribute %q not declared", model.ErrInvariantViolation, tag)
		}
		attr, err := decodeAttribute(dto, s)
		if err != nil {
			return nil, err
		}
		out[tag] = attr
	}
	return out, nil
}

func encodeAttribute(attr *model.Attribute, s *model.AttributeSchema) (attrDTO, error) {
	dto := attrDTO{
		UID:           attr.UID.String(),
		SchemaUID:     attr.SchemaUID.String(),
		MappableValue: attr.MappableValue,
		DisplayValue:  attr.DisplayValue,
		Valid:         attr.Valid,
		Locked:        attr.Locked,
	}
	if attr.MappingItemUID != nil {
		v := attr.MappingItemUID.String()
		dto.MappingItemUID = &v
	}
	var err error
	if dto.Original, err = encodeValue(attr.OriginalValue, s); err != nil {
		return dto, err
	}
	if dto.Updated, err = encodeValue(attr.UpdatedValue, s); err != nil {
		return dto, err
	}
	if dto.Mapped, err = encodeValue(attr.MappedValue, s); err != nil {
		return dto, err
	}
	return dto, nil
}

func decodeAttribute(dto attrDTO, s *model.AttributeSchema) (*model.Attribute, error) {
	uid, err := uuid.Parse(dto.UID)
	if err != nil {
		return nil, err
	}
	attr := &model.Attribute{
		UID:           uid,
		SchemaUID:     s.UID,
		Variant:       s.Variant,
		MappableValue: dto.MappableValue,
		DisplayValue:  dto.DisplayValue,
		Valid:         dto.Valid,
		Locked:        dto.Locked,
	}
	if dto.MappingItemUID != nil {
		v, err := uuid.Parse(*dto.MappingItemUID)
		if err != nil {
			return nil, err
		}
		attr.MappingItemUID = &v
	}
	if attr.OriginalValue, err = decodeValue(dto.Original, s); err != nil {
		return nil, err
	}
	if attr.UpdatedValue, err = decodeValue(dto.Updated, s); err != nil {
		return nil, err
	}
	if attr.MappedValue, err = decodeValue(dto.Mapped, s); err != nil {
		return nil, err
	}
	return attr, nil
}

func encodeValue(value any, s *model.AttributeSchema) (json.RawMessage, error) {
	if value == nil {
		return nil, nil
	}
	switch s.Variant {
	case model.AttributeObject:
		members, ok := value.(map[string]*model.Attribute)
		if !ok {
			return nil, fmt.Errorf("%w: expected object value for %s", model.ErrInvariantViolation, s.Tag)
		}
		out := make(map[string]attrDTO, len(members))
		for tag, child := range members {
			childSchema, ok := s.Attributes[tag]
			if !ok {
				return nil, fmt.Errorf("%w: unknown object member %q", model.ErrInvariantViolation, tag)
			}
			dto, err := encodeAttribute(child, childSchema)
			if err != nil {
				return nil, err
			}
			out[tag] = dto
		}
		return json.Marshal(out)
	case model.AttributeList:
		items, ok := value.([]*model.Attribute)
		if !ok {
			return nil, fmt.Errorf("%w: expected list value for %s", model.ErrInvariantViolation, s.Tag)
		}
		out := make([]attrDTO, 0, len(items))
		for _, item := range items {
			dto, err := encodeAttribute(item, s.ListAttribute)
			if err != nil {
				return nil, err
			}
			out = append(out, dto)
		}
		return json.Marshal(out)
	case model.AttributeUnion:
		u, ok := value.(*model.UnionValue)
		if !ok || u == nil {
			return nil, nil
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
		innerDTO, err := encodeAttribute(u.Inner, innerSchema)
		if err != nil {
			return nil, err
		}
		return json.Marshal(unionDTO{AttributeSchemaUID: u.AttributeSchemaUID.String(), Inner: innerDTO})
	default:
		return json.Marshal(value)
	}
}

func decodeValue(raw json.RawMessage, s *model.AttributeSchema) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch s.Variant {
	case model.AttributeString, model.AttributeEnum:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case model.AttributeBoolean:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case model.AttributeNumeric:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case model.AttributeDatetime:
		var v time.Time
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case model.AttributeMeasurement:
		var v model.Measurement
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case model.AttributeCode:
		var v model.Code
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case model.AttributeObject:
		var in map[string]attrDTO
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, err
		}
		out := make(map[string]*model.Attribute, len(in))
		for tag, dto := range in {
			childSchema, ok := s.Attributes[tag]
			if !ok {
				return nil, fmt.Errorf("%w: unknown object member %q", model.ErrInvariantViolation, tag)
			}
			attr, err := decodeAttribute(dto, childSchema)
			if err != nil {
				return nil, err
			}
			out[tag] = attr
		}
		return out, nil
	case model.AttributeList:
		var in []attrDTO
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, err
		}
		out := make([]*model.Attribute, 0, len(in))
		for _, dto := range in {
			attr, err := decodeAttribute(dto, s.ListAttribute)
			if err != nil {
				return nil, err
			}
			out = append(out, attr)
		}
		return out, nil
	case model.AttributeUnion:
		var in unionDTO
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, err
		}
		schemaUID, err := uuid.Parse(in.AttributeSchemaUID)
		if err != nil {
			return nil, err
		}
		var innerSchema *model.AttributeSchema
		for _, candidate := range s.UnionAttributes {
			if candidate.UID == schemaUID {
				innerSchema = candidate
				break
			}
		}
		if innerSchema == nil {
			return nil, fmt.Errorf("%w: union schema %s not declared on %s", model.ErrInvariantViolation, schemaUID, s.Tag)
		}
		inner, err := decodeAttribute(in.Inner, innerSchema)
		if err != nil {
			return nil, err
		}
		return &model.UnionValue{AttributeSchemaUID: schemaUID, Inner: inner}, nil
	default:
		return nil, fmt.Errorf("%w: unknown attribute variant %q", model.ErrInvariantViolation, s.Variant)
	}
}
