package attribute

import (
	"testing"

	"github.com/sectra/slidetap-core/internal/model"
	"github.com/sectra/slidetap-core/internal/schema"
)

func testRegistry(t *testing.T) (*schema.Registry, *model.ItemSchema) {
	t.Helper()
	fixationSchema := &model.AttributeSchema{
		UID:     model.NewUID(),
		Tag:     "fixation",
		Name:    "fixation",
		Variant: model.AttributeCode,
	}
	collectionSchema := &model.AttributeSchema{
		UID:     model.NewUID(),
		Tag:     "collection",
		Name:    "collection",
		Variant: model.AttributeCode,
	}
	specimenSchema := &model.ItemSchema{
		UID:  model.NewUID(),
		Name: "specimen",
		Kind: model.ItemSample,
		Attributes: map[string]*model.AttributeSchema{
			"fixation":   fixationSchema,
			"collection": collectionSchema,
		},
	}
	root := &model.RootSchema{
		UID:     model.NewUID(),
		Name:    "test",
		Samples: map[model.UID]*model.ItemSchema{specimenSchema.UID: specimenSchema},
		Images:  map[model.UID]*model.ItemSchema{},
		Annotations: map[model.UID]*model.ItemSchema{},
		Observations: map[model.UID]*model.ItemSchema{},
	}
	reg, err := schema.New(root)
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return reg, specimenSchema
}

func TestBuildCodeAttributeDisplayValue(t *testing.T) {
	t.Parallel()
	reg, specimen := testRegistry(t)
	eng := New(reg)
	collectionSchema := specimen.Attributes["collection"]

	attr, err := eng.Build(collectionSchema, model.Code{Code: "85756007", Scheme: "SCT", Meaning: "Excision"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if attr.DisplayValue == nil || *attr.DisplayValue != "Excision" {
		t.Errorf("DisplayValue = %v, want Excision", attr.DisplayValue)
	}
	if attr.Value() == nil {
		t.Fatal("Value() is nil")
	}
}

func TestEffectiveValuePrecedence(t *testing.T) {
	t.Parallel()
	reg, specimen := testRegistry(t)
	eng := New(reg)
	fixationSchema := specimen.Attributes["fixation"]

	attr, err := eng.Build(fixationSchema, model.Code{Code: "1", Scheme: "S", Meaning: "Original"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c, _ := attr.ScalarCode(); c.Meaning != "Original" {
		t.Fatalf("original value = %v", c)
	}

	attr.MappedValue = model.Code{Code: "2", Scheme: "S", Meaning: "Mapped"}
	if c, _ := attr.ScalarCode(); c.Meaning != "Mapped" {
		t.Errorf("mapped should take precedence over original, got %v", c)
	}

	if err := eng.Update(attr, fixationSchema, model.Code{Code: "3", Scheme: "S", Meaning: "Updated"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if c, _ := attr.ScalarCode(); c.Meaning != "Updated" {
		t.Errorf("updated should take precedence over mapped and original, got %v", c)
	}
	if attr.DisplayValue == nil || *attr.DisplayValue != "Updated" {
		t.Errorf("DisplayValue not recomputed after update, got %v", attr.DisplayValue)
	}
}

func TestRoundTripExternal(t *testing.T) {
	t.Parallel()
	reg, specimen := testRegistry(t)
	eng := New(reg)
	fixationSchema := specimen.Attributes["fixation"]

	attr, err := eng.Build(fixationSchema, model.Code{Code: "1", Scheme: "S", Meaning: "Formalin"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ext, err := eng.ToExternal(attr, fixationSchema)
	if err != nil {
		t.Fatalf("ToExternal: %v", err)
	}
	raw, err := eng.FromExternal(fixationSchema, ext)
	if err != nil {
		t.Fatalf("FromExternal: %v", err)
	}
	rebuilt, err := eng.Build(fixationSchema, raw)
	if err != nil {
		t.Fatalf("Build (rebuilt): %v", err)
	}
	if *rebuilt.DisplayValue != *attr.DisplayValue {
		t.Errorf("round trip display value = %q, want %q", *rebuilt.DisplayValue, *attr.DisplayValue)
	}
	c1, _ := attr.ScalarCode()
	c2, _ := rebuilt.ScalarCode()
	if c1 != c2 {
		t.Errorf("round trip value = %+v, want %+v", c2, c1)
	}
}
