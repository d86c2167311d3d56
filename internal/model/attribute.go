package model

import "time"

// Code is the payload of a Code attribute: a coded value drawn from one
// of the attribute schema's allowed coding schemes.
type Code struct {
	Code    string `json:"code"`
	Scheme  string `json:"scheme"`
	Meaning string `json:"meaning"`
}

// Measurement is the payload of a Measurement attribute.
type Measurement struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// UnionValue is the payload of a Union attribute: the inner attribute
// actually chosen, plus the schema identity of the variant it was
// chosen under (so the outer Union can be rendered/validated without
// re-deriving which inner schema matched).
type UnionValue struct {
	AttributeSchemaUID UID        `json:"attributeSchemaUid"`
	Inner              *Attribute `json:"inner"`
}

// Attribute is a typed, mutable metadata field. Exactly one of
// {String, List, Object, Union} payload shapes applies at a time,
// selected by Variant; see AttributeSchema for the authoritative
// variant→payload contract enforced by the Attribute Engine.
//
// A payload value is stored as `any` because Go has no native tagged
// union; holder packages (Item, Project, Dataset, parent Attribute)
// own an Attribute exclusively, matching §3's ownership invariant.
type Attribute struct {
	UID        UID                `json:"uid"`
	SchemaUID  UID                `json:"schemaUid"`
	Variant    AttributeValueType `json:"attributeValueType"`

	OriginalValue any `json:"originalValue,omitempty"`
	UpdatedValue  any `json:"updatedValue,omitempty"`
	MappedValue   any `json:"mappedValue,omitempty"`

	// MappableValue is the raw string awaiting mapping by the Mapper
	// Engine; it never mutates OriginalValue.
	MappableValue *string `json:"mappableValue,omitempty"`
	DisplayValue  *string `json:"displayValue,omitempty"`

	Valid          bool `json:"valid"`
	MappingItemUID *UID `json:"mappingItemUid,omitempty"`
	Locked         bool `json:"locked"`
}

// Value returns the effective value per §3: updated, else mapped, else
// original.
func (a *Attribute) Value() any {
	if a.UpdatedValue != nil {
		return a.UpdatedValue
	}
	if a.MappedValue != nil {
		return a.MappedValue
	}
	return a.OriginalValue
}

// ObjectMembers returns the Object payload's members keyed by tag for
// recursive traversal (mapping, validation, display), or nil if the
// effective value is not an Object member map. List and Union payloads
// are read with ListMembers and UnionMember.
func (a *Attribute) ObjectMembers() map[string]*Attribute {
	v := a.Value()
	if m, ok := v.(map[string]*Attribute); ok {
		return m
	}
	return nil
}

// ListMembers returns the List payload's ordered elements, if any.
func (a *Attribute) ListMembers() []*Attribute {
	v := a.Value()
	if l, ok := v.([]*Attribute); ok {
		return l
	}
	return nil
}

// UnionMember returns the Union payload's chosen inner attribute, if
// any.
func (a *Attribute) UnionMember() *UnionValue {
	v := a.Value()
	if u, ok := v.(*UnionValue); ok {
		return u
	}
	return nil
}

// ScalarString renders scalar leaf values (string/enum) directly.
func (a *Attribute) ScalarString() (string, bool) {
	s, ok := a.Value().(string)
	return s, ok
}

// ScalarDatetime renders the Datetime leaf payload.
func (a *Attribute) ScalarDatetime() (time.Time, bool) {
	t, ok := a.Value().(time.Time)
	return t, ok
}

// ScalarNumeric renders the Numeric leaf payload.
func (a *Attribute) ScalarNumeric() (float64, bool) {
	switch n := a.Value().(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ScalarMeasurement renders the Measurement leaf payload.
func (a *Attribute) ScalarMeasurement() (Measurement, bool) {
	m, ok := a.Value().(Measurement)
	return m, ok
}

// ScalarCode renders the Code leaf payload.
func (a *Attribute) ScalarCode() (Code, bool) {
	c, ok := a.Value().(Code)
	return c, ok
}

// ScalarBoolean renders the Boolean leaf payload.
func (a *Attribute) ScalarBoolean() (bool, bool) {
	b, ok := a.Value().(bool)
	return b, ok
}

// Clone performs a deep copy of the attribute, used whenever a mapping
// item's replacement attribute is substituted into a target attribute
// so that the mapping item's own attribute is never aliased by
// multiple owners (§3 ownership exclusivity).
func (a *Attribute) Clone() *Attribute {
	if a == nil {
		return nil
	}
	clone := *a
	if a.MappableValue != nil {
		v := *a.MappableValue
		clone.MappableValue = &v
	}
	if a.DisplayValue != nil {
		v := *a.DisplayValue
		clone.DisplayValue = &v
	}
	if a.MappingItemUID != nil {
		v := *a.MappingItemUID
		clone.MappingItemUID = &v
	}
	clone.OriginalValue = cloneValue(a.OriginalValue)
	clone.UpdatedValue = cloneValue(a.UpdatedValue)
	clone.MappedValue = cloneValue(a.MappedValue)
	return &clone
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]*Attribute:
		out := make(map[string]*Attribute, len(val))
		for k, sub := range val {
			out[k] = sub.Clone()
		}
		return out
	case []*Attribute:
		out := make([]*Attribute, len(val))
		for i, sub := range val {
			out[i] = sub.Clone()
		}
		return out
	case *UnionValue:
		if val == nil {
			return val
		}
		return &UnionValue{AttributeSchemaUID: val.AttributeSchemaUID, Inner: val.Inner.Clone()}
	default:
		return v
	}
}
