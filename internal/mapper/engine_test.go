package mapper

import (
	"testing"

	"github.com/sectra/slidetap-core/internal/model"
	"github.com/sectra/slidetap-core/internal/schema"
)

type fixedSource struct {
	attrs []*model.Attribute
}

func (f fixedSource) AttributesForRootSchema(model.UID) ([]*model.Attribute, error) {
	return f.attrs, nil
}

func testSchema(t *testing.T) (*schema.Registry, *model.AttributeSchema) {
	t.Helper()
	collectionSchema := &model.AttributeSchema{UID: model.NewUID(), Tag: "collection", Name: "collection", Variant: model.AttributeCode}
	specimen := &model.ItemSchema{
		UID:  model.NewUID(),
		Name: "specimen",
		Kind: model.ItemSample,
		Attributes: map[string]*model.AttributeSchema{"collection": collectionSchema},
	}
	root := &model.RootSchema{
		UID:     model.NewUID(),
		Samples: map[model.UID]*model.ItemSchema{specimen.UID: specimen},
		Images:  map[model.UID]*model.ItemSchema{},
		Annotations: map[model.UID]*model.ItemSchema{},
		Observations: map[model.UID]*model.ItemSchema{},
	}
	reg, err := schema.New(root)
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return reg, collectionSchema
}

// S2 — mapper substitution (spec.md §8).
func TestApplySubstitutesMappedValue(t *testing.T) {
	t.Parallel()
	reg, collectionSchema := testSchema(t)
	eng := New(reg)

	m := &model.Mapper{
		UID:                    model.NewUID(),
		Name:                   "collection",
		AttributeSchemaUID:     collectionSchema.UID,
		RootAttributeSchemaUID: collectionSchema.UID,
	}
	display := "Excision"
	replacement := &model.Attribute{
		UID:           model.NewUID(),
		SchemaUID:     collectionSchema.UID,
		Variant:       model.AttributeCode,
		OriginalValue: model.Code{Code: "85756007", Scheme: "CUSTOM", Meaning: "Excision"},
		DisplayValue:  &display,
	}
	if _, err := eng.AddMapping(m, "Excision", replacement, nil); err != nil {
		t.Fatalf("AddMapping: %v", err)
	}

	mappable := "Excision"
	attr := &model.Attribute{
		UID:           model.NewUID(),
		SchemaUID:     collectionSchema.UID,
		Variant:       model.AttributeCode,
		MappableValue: &mappable,
	}
	applied, err := eng.Apply(m, attr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !applied {
		t.Fatal("expected a match")
	}
	code, ok := attr.ScalarCode()
	if !ok || code.Code != "85756007" {
		t.Errorf("mapped_value.code = %+v, want 85756007", code)
	}
	if attr.DisplayValue == nil || *attr.DisplayValue != "Excision" {
		t.Errorf("display_value = %v, want Excision", attr.DisplayValue)
	}
	if attr.MappingItemUID == nil || *attr.MappingItemUID != m.Mappings[0].UID {
		t.Error("mapping_item_uid not set to the winning mapping item")
	}
}

// Testable property 3 — mapper idempotence.
func TestApplyIdempotentHitsIncrement(t *testing.T) {
	t.Parallel()
	reg, collectionSchema := testSchema(t)
	eng := New(reg)
	m := &model.Mapper{UID: model.NewUID(), Name: "m", AttributeSchemaUID: collectionSchema.UID, RootAttributeSchemaUID: collectionSchema.UID}
	replacement := &model.Attribute{UID: model.NewUID(), SchemaUID: collectionSchema.UID, Variant: model.AttributeCode, OriginalValue: model.Code{Code: "1", Meaning: "X"}}
	if _, err := eng.AddMapping(m, "foo", replacement, nil); err != nil {
		t.Fatalf("AddMapping: %v", err)
	}
	mappable := "foo"
	attr := &model.Attribute{UID: model.NewUID(), SchemaUID: collectionSchema.UID, Variant: model.AttributeCode, MappableValue: &mappable}

	if _, err := eng.Apply(m, attr); err != nil {
		t.Fatal(err)
	}
	firstMappingUID := *attr.MappingItemUID
	firstValue, _ := attr.ScalarCode()

	if _, err := eng.Apply(m, attr); err != nil {
		t.Fatal(err)
	}
	secondMappingUID := *attr.MappingItemUID
	secondValue, _ := attr.ScalarCode()

	if firstMappingUID != secondMappingUID {
		t.Errorf("mapping_item_uid changed across idempotent applies")
	}
	if firstValue != secondValue {
		t.Errorf("mapped_value changed across idempotent applies: %+v vs %+v", firstValue, secondValue)
	}
	if m.Mappings[0].Hits != 2 {
		t.Errorf("hits = %d, want 2 after two applies", m.Mappings[0].Hits)
	}
}

// Testable property 4 — mapper ordering: highest hits wins, ties by
// insertion order.
func TestApplyOrderingByHitsThenInsertion(t *testing.T) {
	t.Parallel()
	reg, collectionSchema := testSchema(t)
	eng := New(reg)
	m := &model.Mapper{UID: model.NewUID(), Name: "m", AttributeSchemaUID: collectionSchema.UID, RootAttributeSchemaUID: collectionSchema.UID}

	first := &model.Attribute{UID: model.NewUID(), SchemaUID: collectionSchema.UID, Variant: model.AttributeCode, OriginalValue: model.Code{Code: "first"}}
	second := &model.Attribute{UID: model.NewUID(), SchemaUID: collectionSchema.UID, Variant: model.AttributeCode, OriginalValue: model.Code{Code: "second"}}
	if _, err := eng.AddMapping(m, "^a.*", first, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.AddMapping(m, "^ab.*", second, nil); err != nil {
		t.Fatal(err)
	}

	mappable := "abc"
	attr := &model.Attribute{UID: model.NewUID(), SchemaUID: collectionSchema.UID, Variant: model.AttributeCode, MappableValue: &mappable}
	if _, err := eng.Apply(m, attr); err != nil {
		t.Fatal(err)
	}
	code, _ := attr.ScalarCode()
	if code.Code != "first" {
		t.Errorf("first-registered mapping should win on tied hits, got %q", code.Code)
	}

	// Give the second mapping more hits and re-apply: it should now win.
	m.Mappings[1].Hits = 5
	mappable2 := "abc"
	attr2 := &model.Attribute{UID: model.NewUID(), SchemaUID: collectionSchema.UID, Variant: model.AttributeCode, MappableValue: &mappable2}
	if _, err := eng.Apply(m, attr2); err != nil {
		t.Fatal(err)
	}
	code2, _ := attr2.ScalarCode()
	if code2.Code != "second" {
		t.Errorf("higher-hits mapping should win, got %q", code2.Code)
	}
}

func TestRecursesIntoListAndObject(t *testing.T) {
	t.Parallel()
	reg, collectionSchema := testSchema(t)
	eng := New(reg)
	m := &model.Mapper{UID: model.NewUID(), Name: "m", AttributeSchemaUID: collectionSchema.UID, RootAttributeSchemaUID: collectionSchema.UID}
	replacement := &model.Attribute{UID: model.NewUID(), SchemaUID: collectionSchema.UID, Variant: model.AttributeCode, OriginalValue: model.Code{Code: "hit"}}
	if _, err := eng.AddMapping(m, "x", replacement, nil); err != nil {
		t.Fatal(err)
	}
	mappable := "x"
	leaf := &model.Attribute{UID: model.NewUID(), SchemaUID: collectionSchema.UID, Variant: model.AttributeCode, MappableValue: &mappable}
	listSchemaUID := model.NewUID()
	list := &model.Attribute{UID: model.NewUID(), SchemaUID: listSchemaUID, Variant: model.AttributeList, OriginalValue: []*model.Attribute{leaf}}

	applied, err := eng.Apply(m, list)
	if err != nil {
		t.Fatal(err)
	}
	if !applied {
		t.Fatal("expected recursion into list to apply the mapping")
	}
	code, _ := leaf.ScalarCode()
	if code.Code != "hit" {
		t.Errorf("list element not mapped, got %+v", code)
	}
}

func TestReapplyOnAddMapping(t *testing.T) {
	t.Parallel()
	reg, collectionSchema := testSchema(t)
	eng := New(reg)
	m := &model.Mapper{UID: model.NewUID(), Name: "m", AttributeSchemaUID: collectionSchema.UID, RootAttributeSchemaUID: collectionSchema.UID}

	mappable := "y"
	attr := &model.Attribute{UID: model.NewUID(), SchemaUID: collectionSchema.UID, Variant: model.AttributeCode, MappableValue: &mappable}
	source := fixedSource{attrs: []*model.Attribute{attr}}

	replacement := &model.Attribute{UID: model.NewUID(), SchemaUID: collectionSchema.UID, Variant: model.AttributeCode, OriginalValue: model.Code{Code: "late"}}
	if _, err := eng.AddMapping(m, "y", replacement, source); err != nil {
		t.Fatal(err)
	}
	code, ok := attr.ScalarCode()
	if !ok || code.Code != "late" {
		t.Errorf("existing attribute not re-mapped after AddMapping, got %+v", code)
	}
}
