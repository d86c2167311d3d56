// Package schema implements the Schema Registry (§4.A): an immutable,
// in-memory, program-wide lookup over a loaded RootSchema. No mutation
// is possible after New returns; the registry requires no locking
// (§5 "Locking discipline").
package schema

import (
	"fmt"

	"github.com/sectra/slidetap-core/internal/model"
)

// Registry is the Schema Registry. Zero value is not usable; construct
// with New, LoadFile or LoadBytes.
type Registry struct {
	root *model.RootSchema

	itemsByUID map[model.UID]*model.ItemSchema
	itemsByName map[string]*model.ItemSchema
	attrByUID  map[model.UID]*model.AttributeSchema
	attrByName map[string]*model.AttributeSchema
}

// New builds a Registry from an already-constructed RootSchema,
// indexing every item and attribute schema it reaches for O(1) lookup.
// Called once at program/engine startup (§4.A).
func New(root *model.RootSchema) (*Registry, error) {
	if root == nil {
		return nil, fmt.Errorf("schema: nil root schema")
	}
	r := &Registry{
		root:        root,
		itemsByUID:  make(map[model.UID]*model.ItemSchema),
		itemsByName: make(map[string]*model.ItemSchema),
		attrByUID:   make(map[model.UID]*model.AttributeSchema),
		attrByName:  make(map[string]*model.AttributeSchema),
	}
	for _, group := range []map[model.UID]*model.ItemSchema{
		root.Samples, root.Images, root.Annotations, root.Observations,
	} {
		for uid, item := range group {
			if item.UID != uid {
				return nil, fmt.Errorf("schema: item schema %q keyed under mismatched uid", item.Name)
			}
			r.itemsByUID[uid] = item
			r.itemsByName[item.Name] = item
			for _, attr := range item.Attributes {
				r.indexAttribute(attr)
			}
		}
	}
	for _, attr := range root.Project.Attributes {
		r.indexAttribute(attr)
	}
	for _, attr := range root.Dataset.Attributes {
		r.indexAttribute(attr)
	}
	return r, nil
}

func (r *Registry) indexAttribute(attr *model.AttributeSchema) {
	if attr == nil {
		return
	}
	if _, seen := r.attrByUID[attr.UID]; seen {
		return
	}
	r.attrByUID[attr.UID] = attr
	if attr.Name != "" {
		r.attrByName[attr.Name] = attr
	}
	switch attr.Variant {
	case model.AttributeObject:
		for _, sub := range attr.Attributes {
			r.indexAttribute(sub)
		}
	case model.AttributeList:
		r.indexAttribute(attr.ListAttribute)
	case model.AttributeUnion:
		for _, sub := range attr.UnionAttributes {
			r.indexAttribute(sub)
		}
	}
}

// Root returns the loaded RootSchema.
func (r *Registry) Root() *model.RootSchema { return r.root }

// GetItemSchema looks up an item schema by uid.
func (r *Registry) GetItemSchema(uid model.UID) (*model.ItemSchema, bool) {
	s, ok := r.itemsByUID[uid]
	return s, ok
}

// GetItemSchemaByName looks up an item schema by its declared name.
func (r *Registry) GetItemSchemaByName(name string) (*model.ItemSchema, bool) {
	s, ok := r.itemsByName[name]
	return s, ok
}

// GetAttributeSchema looks up an attribute schema by uid, searching
// nested Object/List/Union members as well as top-level item/project/
// dataset attributes.
func (r *Registry) GetAttributeSchema(uid model.UID) (*model.AttributeSchema, bool) {
	s, ok := r.attrByUID[uid]
	return s, ok
}

// GetAttributeByName looks up an attribute schema by its declared name
// (§4.A get_attribute_by_name).
func (r *Registry) GetAttributeByName(name string) (*model.AttributeSchema, bool) {
	s, ok := r.attrByName[name]
	return s, ok
}

// IterItems yields every item schema in the root schema, samples first
// then images, annotations, observations. The order within each group
// follows Go map iteration and is not stable between calls.
func (r *Registry) IterItems(yield func(*model.ItemSchema) bool) {
	for _, group := range []map[model.UID]*model.ItemSchema{
		r.root.Samples, r.root.Images, r.root.Annotations, r.root.Observations,
	} {
		for _, item := range group {
			if !yield(item) {
				return
			}
		}
	}
}

// ItemKind reports which item-kind collection an item schema uid
// belongs to, used by the Item Store to route inserts.
func (r *Registry) ItemKind(uid model.UID) (model.ItemKind, bool) {
	if s, ok := r.root.Samples[uid]; ok {
		return s.Kind, true
	}
	if s, ok := r.root.Images[uid]; ok {
		return s.Kind, true
	}
	if s, ok := r.root.Annotations[uid]; ok {
		return s.Kind, true
	}
	if s, ok := r.root.Observations[uid]; ok {
		return s.Kind, true
	}
	return "", false
}
