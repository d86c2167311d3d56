package model

// MappingItem is one rule within a Mapper: a compiled-on-demand regular
// expression and the replacement attribute it substitutes when it
// matches, plus a hit counter used to break ties on re-apply (§4.C).
type MappingItem struct {
	UID        UID        `json:"uid"`
	MapperUID  UID        `json:"mapperUid"`
	Expression string     `json:"expression"`
	Attribute  *Attribute `json:"attribute"`
	Hits       int        `json:"hits"`

	// insertionOrder disambiguates ties in Hits deterministically
	// (§4.C.1: "ties broken by first-registered order").
	insertionOrder int
}

// InsertionOrder exposes the registration order for tie-breaking.
func (m *MappingItem) InsertionOrder() int { return m.insertionOrder }

// SetInsertionOrder is used by the mapper engine/store when loading or
// creating mapping items to stamp a stable, monotonic order.
func (m *MappingItem) SetInsertionOrder(n int) { m.insertionOrder = n }

// Mapper binds a name (unique), the schema of the attribute whose value
// is substituted, and the schema of the outer attribute whose
// mappable_value is scanned, to an ordered collection of MappingItems
// (§3, §4.C).
type Mapper struct {
	UID                    UID            `json:"uid"`
	Name                   string         `json:"name"`
	AttributeSchemaUID     UID            `json:"attributeSchemaUid"`
	RootAttributeSchemaUID UID            `json:"rootAttributeSchemaUid"`
	Mappings               []*MappingItem `json:"mappings"`
}

// MapperGroup collects mappers and attaches to projects (§3).
type MapperGroup struct {
	UID        UID   `json:"uid"`
	Name       string `json:"name"`
	MapperUIDs []UID `json:"mapperUids"`
}
