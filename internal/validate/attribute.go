// Package validate implements the Validator (§4.E): pure predicates over
// attributes and items. Validation failures are not exceptions; they set
// boolean fields and collect offending tags/uids for reports.
package validate

import (
	"github.com/sectra/slidetap-core/internal/model"
	"github.com/sectra/slidetap-core/internal/schema"
)

// Validator holds the Schema Registry needed to resolve nested
// attribute/item schemas during validation.
type Validator struct {
	registry *schema.Registry
}

// New constructs a Validator over the given Schema Registry.
func New(registry *schema.Registry) *Validator {
	return &Validator{registry: registry}
}

// ValidateAttribute implements the §4.E per-variant table, sets
// attr.Valid, and returns it.
func (v *Validator) ValidateAttribute(attr *model.Attribute, s *model.AttributeSchema) bool {
	valid := v.checkAttribute(attr, s)
	attr.Valid = valid
	return valid
}

func (v *Validator) checkAttribute(attr *model.Attribute, s *model.AttributeSchema) bool {
	value := attr.Value()
	switch s.Variant {
	case model.AttributeString:
		str, ok := value.(string)
		if !ok || str == "" {
			return s.Optional
		}
		return true
	case model.AttributeEnum:
		str, ok := value.(string)
		if !ok || str == "" {
			return s.Optional
		}
		return containsString(s.AllowedValues, str) || s.Optional
	case model.AttributeDatetime:
		if value == nil {
			return s.Optional
		}
		return true
	case model.AttributeNumeric:
		n, ok := attr.ScalarNumeric()
		if !ok {
			return s.Optional
		}
		if s.Min != nil && n < *s.Min {
			return false
		}
		if s.Max != nil && n > *s.Max {
			return false
		}
		if s.IsInteger && n != float64(int64(n)) {
			return false
		}
		return true
	case model.AttributeMeasurement:
		m, ok := attr.ScalarMeasurement()
		if !ok {
			return s.Optional
		}
		if len(s.AllowedUnits) > 0 && !containsString(s.AllowedUnits, m.Unit) {
			return false
		}
		if s.Min != nil && m.Value < *s.Min {
			return false
		}
		if s.Max != nil && m.Value > *s.Max {
			return false
		}
		return true
	case model.AttributeCode:
		c, ok := attr.ScalarCode()
		if !ok {
			return s.Optional
		}
		if len(s.AllowedSchemas) > 0 && !containsString(s.AllowedSchemas, c.Scheme) {
			return false
		}
		return true
	case model.AttributeBoolean:
		if value == nil {
			return s.Optional
		}
		return true
	case model.AttributeObject:
		members := attr.ObjectMembers()
		for tag, childSchema := range s.Attributes {
			child, present := members[tag]
			if !present || child == nil {
				if !childSchema.Optional {
					return false
				}
				continue
			}
			if !v.ValidateAttribute(child, childSchema) {
				return false
			}
		}
		return true
	case model.AttributeList:
		items := attr.ListMembers()
		if len(items) == 0 {
			return s.Optional
		}
		if s.MinItems > 0 && len(items) < s.MinItems {
			return false
		}
		if s.MaxItems > 0 && len(items) > s.MaxItems {
			return false
		}
		for _, item := range items {
			if !v.ValidateAttribute(item, s.ListAttribute) {
				return false
			}
		}
		return true
	case model.AttributeUnion:
		u := attr.UnionMember()
		if u == nil || u.Inner == nil {
			return s.Optional
		}
		var innerSchema *model.AttributeSchema
		for _, candidate := range s.UnionAttributes {
			if candidate.UID == u.AttributeSchemaUID {
				innerSchema = candidate
				break
			}
		}
		if innerSchema == nil {
			return false
		}
		return v.ValidateAttribute(u.Inner, innerSchema)
	default:
		return false
	}
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ValidateAttributeSet validates every declared attribute of an
// attribute map against its schema's attribute declarations, returning
// overall validity and the tags that failed. A missing optional
// attribute counts as valid (§4.E "Item validation").
func (v *Validator) ValidateAttributeSet(attrs map[string]*model.Attribute, declared map[string]*model.AttributeSchema) (bool, []string) {
	var invalid []string
	valid := true
	for tag, declSchema := range declared {
		attr, present := attrs[tag]
		if !present || attr == nil {
			if !declSchema.Optional {
				valid = false
				invalid = append(invalid, tag)
			}
			continue
		}
		if !v.ValidateAttribute(attr, declSchema) {
			valid = false
			invalid = append(invalid, tag)
		}
	}
	return valid, invalid
}
