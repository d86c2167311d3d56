package schema

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sectra/slidetap-core/internal/model"
)

// LoadFile reads a YAML-encoded RootSchema document from disk and
// returns a loaded Registry. Adapted from internal/config's
// file-then-env-override loading style, generalized here to a
// schema-only document (schemas have no environment overrides).
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes parses a YAML-encoded RootSchema document.
//
// YAML map keys are decoded as strings rather than relying on yaml.v3's
// TextUnmarshaler-keyed-map support - this keeps the document format
// predictable and avoids depending on library behavior this module does
// not exercise elsewhere. Attribute maps keep the YAML key as the tag;
// the item-schema maps are keyed by each entry's own uid field, and
// their YAML keys are not used.
func LoadBytes(data []byte) (*Registry, error) {
	var doc rootSchemaDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: parse: %w", err)
	}
	root, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return New(root)
}

type rootSchemaDoc struct {
	UID     string `yaml:"uid"`
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Project projectSchemaDoc `yaml:"project"`
	Dataset datasetSchemaDoc `yaml:"dataset"`

	Samples      map[string]itemSchemaDoc `yaml:"samples"`
	Images       map[string]itemSchemaDoc `yaml:"images"`
	Annotations  map[string]itemSchemaDoc `yaml:"annotations"`
	Observations map[string]itemSchemaDoc `yaml:"observations"`
}

type projectSchemaDoc struct {
	UID        string                      `yaml:"uid"`
	Name       string                      `yaml:"name"`
	Attributes map[string]attributeSchemaDoc `yaml:"attributes"`
}

type datasetSchemaDoc struct {
	UID        string                        `yaml:"uid"`
	Name       string                        `yaml:"name"`
	Attributes map[string]attributeSchemaDoc `yaml:"attributes"`
}

type relationSchemaDoc struct {
	Name            string `yaml:"name"`
	TargetSchemaUID string `yaml:"targetSchemaUid"`
	MinCount        int    `yaml:"minCount"`
	MaxCount        int    `yaml:"maxCount"`
}

type itemSchemaDoc struct {
	UID      string `yaml:"uid"`
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	Position int    `yaml:"position"`

	Attributes map[string]attributeSchemaDoc `yaml:"attributes"`

	ParentRelations []relationSchemaDoc `yaml:"parentRelations"`
	ChildRelations  []relationSchemaDoc `yaml:"childRelations"`
	ImageRelations  []relationSchemaDoc `yaml:"imageRelations"`
	ObservesSchemas []string            `yaml:"observesSchemas"`
}

type attributeSchemaDoc struct {
	UID      string `yaml:"uid"`
	Tag      string `yaml:"tag"`
	Name     string `yaml:"name"`
	Variant  string `yaml:"attributeValueType"`
	Optional bool   `yaml:"optional"`

	AllowedValues []string `yaml:"allowedValues"`

	DatetimeType string `yaml:"datetimeType"`

	IsInteger bool     `yaml:"isInteger"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`

	AllowedUnits []string `yaml:"allowedUnits"`

	AllowedSchemas []string `yaml:"allowedSchemas"`

	TrueDisplay  string `yaml:"trueDisplay"`
	FalseDisplay string `yaml:"falseDisplay"`

	Attributes             map[string]attributeSchemaDoc `yaml:"attributes"`
	DisplayValueTags       []string                      `yaml:"displayValueTags"`
	DisplayValueTagsJoiner string                        `yaml:"displayValueTagsJoiner"`

	ListAttribute              *attributeSchemaDoc `yaml:"listAttribute"`
	MinItems                   int                 `yaml:"minItems"`
	MaxItems                   int                 `yaml:"maxItems"`
	DisplayAttributesInParent  bool                `yaml:"displayAttributesInParent"`

	UnionAttributes []attributeSchemaDoc `yaml:"unionAttributes"`
}

func parseUID(s string) (model.UID, error) {
	if s == "" {
		return model.UID{}, nil
	}
	return uuid.Parse(s)
}

func (d *attributeSchemaDoc) toModel() (*model.AttributeSchema, error) {
	uid, err := parseUID(d.UID)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", d.Tag, err)
	}
	out := &model.AttributeSchema{
		UID:                    uid,
		Tag:                    d.Tag,
		Name:                   d.Name,
		Variant:                model.AttributeValueType(d.Variant),
		Optional:               d.Optional,
		AllowedValues:          d.AllowedValues,
		DatetimeType:           model.DatetimeType(d.DatetimeType),
		IsInteger:              d.IsInteger,
		Min:                    d.Min,
		Max:                    d.Max,
		AllowedUnits:           d.AllowedUnits,
		AllowedSchemas:         d.AllowedSchemas,
		TrueDisplay:            d.TrueDisplay,
		FalseDisplay:           d.FalseDisplay,
		DisplayValueTags:       d.DisplayValueTags,
		DisplayValueTagsJoiner: d.DisplayValueTagsJoiner,
		MinItems:               d.MinItems,
		MaxItems:               d.MaxItems,
		DisplayAttributesInParent: d.DisplayAttributesInParent,
	}
	if len(d.Attributes) > 0 {
		out.Attributes = make(map[string]*model.AttributeSchema, len(d.Attributes))
		for tag, sub := range d.Attributes {
			subModel, err := sub.toModel()
			if err != nil {
				return nil, err
			}
			out.Attributes[tag] = subModel
		}
	}
	if d.ListAttribute != nil {
		sub, err := d.ListAttribute.toModel()
		if err != nil {
			return nil, err
		}
		out.ListAttribute = sub
	}
	for _, sub := range d.UnionAttributes {
		subModel, err := sub.toModel()
		if err != nil {
			return nil, err
		}
		out.UnionAttributes = append(out.UnionAttributes, subModel)
	}
	return out, nil
}

func (d *relationSchemaDoc) toModel() (model.RelationSchema, error) {
	uid, err := parseUID(d.TargetSchemaUID)
	if err != nil {
		return model.RelationSchema{}, err
	}
	return model.RelationSchema{
		Name:            d.Name,
		TargetSchemaUID: uid,
		MinCount:        d.MinCount,
		MaxCount:        d.MaxCount,
	}, nil
}

func (d *itemSchemaDoc) toModel() (*model.ItemSchema, error) {
	uid, err := parseUID(d.UID)
	if err != nil {
		return nil, fmt.Errorf("item %q: %w", d.Name, err)
	}
	out := &model.ItemSchema{
		UID:      uid,
		Name:     d.Name,
		Kind:     model.ItemKind(d.Kind),
		Position: d.Position,
	}
	if len(d.Attributes) > 0 {
		out.Attributes = make(map[string]*model.AttributeSchema, len(d.Attributes))
		for tag, sub := range d.Attributes {
			subModel, err := sub.toModel()
			if err != nil {
				return nil, err
			}
			out.Attributes[tag] = subModel
		}
	}
	for _, rel := range d.ParentRelations {
		m, err := rel.toModel()
		if err != nil {
			return nil, err
		}
		out.ParentRelations = append(out.ParentRelations, m)
	}
	for _, rel := range d.ChildRelations {
		m, err := rel.toModel()
		if err != nil {
			return nil, err
		}
		out.ChildRelations = append(out.ChildRelations, m)
	}
	for _, rel := range d.ImageRelations {
		m, err := rel.toModel()
		if err != nil {
			return nil, err
		}
		out.ImageRelations = append(out.ImageRelations, m)
	}
	for _, s := range d.ObservesSchemas {
		u, err := parseUID(s)
		if err != nil {
			return nil, err
		}
		out.ObservesSchemas = append(out.ObservesSchemas, u)
	}
	return out, nil
}

func (doc *rootSchemaDoc) toModel() (*model.RootSchema, error) {
	uid, err := parseUID(doc.UID)
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	root := &model.RootSchema{
		UID:          uid,
		Name:         doc.Name,
		Version:      doc.Version,
		Samples:      map[model.UID]*model.ItemSchema{},
		Images:       map[model.UID]*model.ItemSchema{},
		Annotations:  map[model.UID]*model.ItemSchema{},
		Observations: map[model.UID]*model.ItemSchema{},
	}

	projectUID, err := parseUID(doc.Project.UID)
	if err != nil {
		return nil, err
	}
	root.Project = model.ProjectSchema{UID: projectUID, Name: doc.Project.Name}
	if len(doc.Project.Attributes) > 0 {
		root.Project.Attributes = map[string]*model.AttributeSchema{}
		for tag, a := range doc.Project.Attributes {
			m, err := a.toModel()
			if err != nil {
				return nil, err
			}
			root.Project.Attributes[tag] = m
		}
	}

	datasetUID, err := parseUID(doc.Dataset.UID)
	if err != nil {
		return nil, err
	}
	root.Dataset = model.DatasetSchema{UID: datasetUID, Name: doc.Dataset.Name}
	if len(doc.Dataset.Attributes) > 0 {
		root.Dataset.Attributes = map[string]*model.AttributeSchema{}
		for tag, a := range doc.Dataset.Attributes {
			m, err := a.toModel()
			if err != nil {
				return nil, err
			}
			root.Dataset.Attributes[tag] = m
		}
	}

	for _, group := range []struct {
		src  map[string]itemSchemaDoc
		dest map[model.UID]*model.ItemSchema
	}{
		{doc.Samples, root.Samples},
		{doc.Images, root.Images},
		{doc.Annotations, root.Annotations},
		{doc.Observations, root.Observations},
	} {
		for _, item := range group.src {
			m, err := item.toModel()
			if err != nil {
				return nil, err
			}
			group.dest[m.UID] = m
		}
	}
	return root, nil
}
