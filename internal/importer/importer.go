// Package importer implements a minimal metadata import collaborator
// (§6): parsing an external source into SearchParameters and building
// items from them through the Attribute Engine and Item Store. Grounded
// on original_source/.../util/fileparser.py and
// importer/metadata_importer.py's parse_file contract.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/sectra/slidetap-core/internal/attribute"
	"github.com/sectra/slidetap-core/internal/model"
	"github.com/sectra/slidetap-core/internal/schema"
)

// ColumnMapping declares that one CSV column's value becomes the
// mappable_value of one attribute tag on the imported item.
type ColumnMapping struct {
	Column string
	Tag    string
}

// ImportSpec declares how to interpret one CSV file: which item schema
// its rows populate, which column supplies the item's identifier, and
// the column->attribute-tag mapping for the rest. One ImportSpec covers
// one item schema; it is supplied per import call and is not stored on
// the project.
type ImportSpec struct {
	ItemSchemaUID     model.UID
	IdentifierColumn  string
	Columns           []ColumnMapping
}

// SearchParameters is one parsed row: an item identifier plus the raw
// string values destined for each attribute's mappable_value, prior to
// any mapping or validation (§6 "search metadata").
type SearchParameters struct {
	Identifier     string
	MappableValues map[string]string // tag -> raw value
}

// ParseFile reads a CSV file (header row required) and returns one
// SearchParameters per data row, in file order.
func ParseFile(r io.Reader, spec ImportSpec) ([]SearchParameters, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("importer: read header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[name] = i
	}
	idIdx, ok := colIndex[spec.IdentifierColumn]
	if !ok {
		return nil, fmt.Errorf("importer: identifier column %q not found in header", spec.IdentifierColumn)
	}

	var out []SearchParameters
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("importer: read row: %w", err)
		}
		params := SearchParameters{
			Identifier:     record[idIdx],
			MappableValues: make(map[string]string, len(spec.Columns)),
		}
		for _, col := range spec.Columns {
			idx, ok := colIndex[col.Column]
			if !ok {
				return nil, fmt.Errorf("importer: column %q not found in header", col.Column)
			}
			if idx < len(record) {
				params.MappableValues[col.Tag] = record[idx]
			}
		}
		out = append(out, params)
	}
	return out, nil
}

// ItemAdder is the subset of the Item Store the Importer needs; narrow
// interface so this package stays decoupled from internal/store.
type ItemAdder interface {
	AddItem(ctx context.Context, item *model.Item) (*model.Item, bool, error)
}

// Importer builds items from SearchParameters rows, leaving
// mappable_value set on each declared attribute for the Mapper Engine
// to populate on the next mapper sweep (§4.C, §6 data flow).
type Importer struct {
	registry *schema.Registry
	attrs    *attribute.Engine
}

// New constructs an Importer over the given Schema Registry and
// Attribute Engine.
func New(registry *schema.Registry, attrs *attribute.Engine) *Importer {
	return &Importer{registry: registry, attrs: attrs}
}

// Import builds and stores one Sample item per row for spec's item
// schema, setting each declared column's mappable_value. It returns the
// uids of the items it created or found (import is idempotent: an
// existing item with the same (dataset, schema, identifier) is left
// untouched by the Item Store's unique-insert semantics).
func (im *Importer) Import(ctx context.Context, adder ItemAdder, datasetUID, batchUID model.UID, spec ImportSpec, rows []SearchParameters) ([]model.UID, error) {
	itemSchema, ok := im.registry.GetItemSchema(spec.ItemSchemaUID)
	if !ok {
		return nil, fmt.Errorf("%w: item schema %s", model.ErrNotFound, spec.ItemSchemaUID)
	}
	if itemSchema.Kind != model.ItemSample {
		return nil, fmt.Errorf("%w: importer only builds sample items directly, got %s", model.ErrInvariantViolation, itemSchema.Kind)
	}

	uids := make([]model.UID, 0, len(rows))
	for _, row := range rows {
		attrs := make(map[string]*model.Attribute, len(itemSchema.Attributes))
		for tag, attrSchema := range itemSchema.Attributes {
			attr, err := im.attrs.Build(attrSchema, nil)
			if err != nil {
				return nil, err
			}
			if raw, ok := row.MappableValues[tag]; ok {
				im.attrs.UpdateMappable(attr, raw)
			}
			attrs[tag] = attr
		}

		uid := model.DeterministicItemUID(datasetUID, spec.ItemSchemaUID, row.Identifier)
		base := model.ItemBase{
			UID:        uid,
			Identifier: row.Identifier,
			Name:       row.Identifier,
			SchemaUID:  spec.ItemSchemaUID,
			DatasetUID: datasetUID,
			BatchUID:   batchUID,
			Attributes: attrs,
		}
		sample := model.NewSample(base)
		stored, _, err := adder.AddItem(ctx, model.ItemFromSample(sample))
		if err != nil {
			return nil, fmt.Errorf("importer: add item %s: %w", row.Identifier, err)
		}
		uids = append(uids, stored.Base().UID)
	}
	return uids, nil
}
