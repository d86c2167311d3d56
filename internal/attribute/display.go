package attribute

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sectra/slidetap-core/internal/model"
)

// recomputeDisplay fills attr.DisplayValue via schema's
// create_display_value rule (§4.B):
//
//	String/Enum/Datetime/Numeric -> string form of the scalar.
//	Measurement                 -> "<value> <unit>".
//	Code                        -> the meaning field.
//	Boolean                     -> the schema's true/false display string.
//	Object                      -> join display values of display_value_tags members.
//	List                        -> "[v1, v2, ...]".
//	Union                       -> delegate to the selected inner schema.
func (e *Engine) recomputeDisplay(attr *model.Attribute, attrSchema *model.AttributeSchema) {
	display := e.computeDisplay(attr, attrSchema)
	attr.DisplayValue = display
}

func (e *Engine) computeDisplay(attr *model.Attribute, s *model.AttributeSchema) *string {
	value := attr.Value()
	if value == nil {
		return nil
	}
	switch s.Variant {
	case model.AttributeString, model.AttributeEnum:
		v, _ := value.(string)
		return strPtr(v)
	case model.AttributeDatetime:
		if t, ok := attr.ScalarDatetime(); ok {
			switch s.DatetimeType {
			case model.DatetimeDate:
				return strPtr(t.Format("2006-01-02"))
			case model.DatetimeTime:
				return strPtr(t.Format("15:04:05"))
			default:
				return strPtr(t.Format("2006-01-02T15:04:05"))
			}
		}
		return nil
	case model.AttributeNumeric:
		n, _ := attr.ScalarNumeric()
		if s.IsInteger {
			return strPtr(strconv.FormatInt(int64(n), 10))
		}
		return strPtr(strconv.FormatFloat(n, 'g', -1, 64))
	case model.AttributeMeasurement:
		m, ok := attr.ScalarMeasurement()
		if !ok {
			return nil
		}
		return strPtr(fmt.Sprintf("%s %s", strconv.FormatFloat(m.Value, 'g', -1, 64), m.Unit))
	case model.AttributeCode:
		c, ok := attr.ScalarCode()
		if !ok {
			return nil
		}
		return strPtr(c.Meaning)
	case model.AttributeBoolean:
		b, ok := attr.ScalarBoolean()
		if !ok {
			return nil
		}
		if b {
			return strPtr(s.TrueDisplay)
		}
		return strPtr(s.FalseDisplay)
	case model.AttributeObject:
		members := attr.ObjectMembers()
		parts := make([]string, 0, len(s.DisplayValueTags))
		for _, tag := range s.DisplayValueTags {
			member, ok := members[tag]
			if !ok || member == nil || member.DisplayValue == nil {
				continue
			}
			parts = append(parts, *member.DisplayValue)
		}
		return strPtr(strings.Join(parts, s.Joiner()))
	case model.AttributeList:
		items := attr.ListMembers()
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if item == nil || item.DisplayValue == nil {
				parts = append(parts, "")
				continue
			}
			parts = append(parts, *item.DisplayValue)
		}
		return strPtr("[" + strings.Join(parts, ", ") + "]")
	case model.AttributeUnion:
		u := attr.UnionMember()
		if u == nil || u.Inner == nil {
			return nil
		}
		return u.Inner.DisplayValue
	default:
		return nil
	}
}

func strPtr(s string) *string { return &s }
