package model

// AttributeSchema is a tagged variant describing the shape and
// constraints of an attribute; instances are shared by reference and
// never mutated after the owning RootSchema is loaded (§3).
type AttributeSchema struct {
	UID     UID                `json:"uid"`
	Tag     string              `json:"tag"`
	Name    string              `json:"name"`
	Variant AttributeValueType `json:"attributeValueType"`
	Optional bool              `json:"optional"`

	// Enum
	AllowedValues []string `json:"allowedValues,omitempty"`

	// Datetime
	DatetimeType DatetimeType `json:"datetimeType,omitempty"`

	// Numeric
	IsInteger bool     `json:"isInteger,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`

	// Measurement (reuses Min/Max above for the value bound)
	AllowedUnits []string `json:"allowedUnits,omitempty"`

	// Code
	AllowedSchemas []string `json:"allowedSchemas,omitempty"`

	// Boolean
	TrueDisplay  string `json:"trueDisplay,omitempty"`
	FalseDisplay string `json:"falseDisplay,omitempty"`

	// Object
	Attributes            map[string]*AttributeSchema `json:"attributes,omitempty"`
	DisplayValueTags       []string                     `json:"displayValueTags,omitempty"`
	DisplayValueTagsJoiner string                       `json:"displayValueTagsJoiner,omitempty"`

	// List
	ListAttribute   *AttributeSchema `json:"listAttribute,omitempty"`
	MinItems        int              `json:"minItems,omitempty"`
	MaxItems        int              `json:"maxItems,omitempty"`
	DisplayAttributesInParent bool   `json:"displayAttributesInParent,omitempty"`

	// Union - ordered set of candidate inner schemas
	UnionAttributes []*AttributeSchema `json:"unionAttributes,omitempty"`
}

// Joiner returns the Object display-value separator, defaulting to
// ", " per §4.B.
func (s *AttributeSchema) Joiner() string {
	if s.DisplayValueTagsJoiner == "" {
		return ", "
	}
	return s.DisplayValueTagsJoiner
}

// RelationSchema declares one parent/child/image edge an ItemSchema may
// carry to another ItemSchema, with cardinality bounds enforced by the
// Validator (§4.E).
type RelationSchema struct {
	Name             string `json:"name"`
	TargetSchemaUID  UID    `json:"targetSchemaUid"`
	MinCount         int    `json:"minCount"`
	MaxCount         int    `json:"maxCount"` // 0 means unbounded
}

// ItemSchema describes one item type: its ordered display position, its
// attribute slots, and its relation edges.
type ItemSchema struct {
	UID      UID      `json:"uid"`
	Name     string   `json:"name"`
	Kind     ItemKind `json:"kind"`
	Position int      `json:"position"`

	Attributes map[string]*AttributeSchema `json:"attributes"`

	// Sample-only: parent/child sample edges and image edges.
	ParentRelations []RelationSchema `json:"parentRelations,omitempty"`
	ChildRelations  []RelationSchema `json:"childRelations,omitempty"`
	ImageRelations  []RelationSchema `json:"imageRelations,omitempty"`

	// Observation-only: which counterpart item schemas it may attach to.
	ObservesSchemas []UID `json:"observesSchemas,omitempty"`
}

// ProjectSchema and DatasetSchema carry only top-level attributes; they
// have no relations or position.
type ProjectSchema struct {
	UID        UID                         `json:"uid"`
	Name       string                      `json:"name"`
	Attributes map[string]*AttributeSchema `json:"attributes"`
}

type DatasetSchema struct {
	UID        UID                         `json:"uid"`
	Name       string                      `json:"name"`
	Attributes map[string]*AttributeSchema `json:"attributes"`
}

// RootSchema is the immutable, program-wide shared description of item
// types, attribute types and inter-item relations (§3).
type RootSchema struct {
	UID     UID    `json:"uid"`
	Name    string `json:"name"`
	Version string `json:"version"`

	Project ProjectSchema `json:"project"`
	Dataset DatasetSchema `json:"dataset"`

	Samples      map[UID]*ItemSchema `json:"samples"`
	Images       map[UID]*ItemSchema `json:"images"`
	Annotations  map[UID]*ItemSchema `json:"annotations"`
	Observations map[UID]*ItemSchema `json:"observations"`
}
