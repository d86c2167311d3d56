// Package mapper implements the Mapper Engine (§4.C): pattern->attribute
// rules that populate mapped_value from mappable_value.
package mapper

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sectra/slidetap-core/internal/model"
	"github.com/sectra/slidetap-core/internal/schema"
)

// AttributeSource enumerates attributes whose root_attribute_schema_uid
// matches a given schema uid, used to re-apply a mapper whenever one of
// its mapping items is created, updated or deleted (§4.C.5). A narrow
// interface injected by the caller so the Mapper Engine stays
// decoupled from the Item Store.
type AttributeSource interface {
	AttributesForRootSchema(rootAttributeSchemaUID model.UID) ([]*model.Attribute, error)
}

// Engine is the Mapper Engine.
type Engine struct {
	registry *schema.Registry
	cache    *patternCache

	mu      sync.Mutex
	mappers map[model.UID]*model.Mapper
	byName  map[string]model.UID
	groups  map[model.UID]*model.MapperGroup
	// owners enforces the single-owner rule: per project, at most one
	// mapper group may own a given root_attribute_schema_uid.
	owners map[model.UID]map[model.UID]model.UID // project uid -> root schema uid -> owning group uid
	nextSeq int
}

// New constructs a Mapper Engine over the given Schema Registry.
func New(registry *schema.Registry) *Engine {
	return &Engine{
		registry: registry,
		cache:    newPatternCache(1000),
		mappers:  make(map[model.UID]*model.Mapper),
		byName:   make(map[string]model.UID),
		groups:   make(map[model.UID]*model.MapperGroup),
		owners:   make(map[model.UID]map[model.UID]model.UID),
	}
}

// RegisterMapper adds a mapper to the engine, keyed by its unique name.
func (e *Engine) RegisterMapper(m *model.Mapper) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.byName[m.Name]; ok && existing != m.UID {
		return fmt.Errorf("mapper: name %q already registered", m.Name)
	}
	e.mappers[m.UID] = m
	e.byName[m.Name] = m.UID
	return nil
}

// ClaimRootAttributeSchema enforces the single-owner rule when
// attaching a mapper group to a project: at most one mapper group per
// project may claim a given root_attribute_schema_uid.
func (e *Engine) ClaimRootAttributeSchema(projectUID, rootAttributeSchemaUID, groupUID model.UID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	byRoot, ok := e.owners[projectUID]
	if !ok {
		byRoot = make(map[model.UID]model.UID)
		e.owners[projectUID] = byRoot
	}
	if owner, ok := byRoot[rootAttributeSchemaUID]; ok && owner != groupUID {
		return fmt.Errorf("%w: project %s", model.ErrAmbiguousMapper, projectUID)
	}
	byRoot[rootAttributeSchemaUID] = groupUID
	return nil
}

// GetMapper looks up a registered mapper by uid.
func (e *Engine) GetMapper(uid model.UID) (*model.Mapper, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.mappers[uid]
	return m, ok
}

// AddMapping appends (or replaces, if the expression already exists) a
// mapping item on mapper, stamping a monotonic insertion order for tie
// breaking, then re-applies the mapper across every attribute it can
// reach (§4.C.5).
func (e *Engine) AddMapping(m *model.Mapper, expression string, attr *model.Attribute, source AttributeSource) (*model.MappingItem, error) {
	if _, err := e.cache.compile(expression); err != nil {
		return nil, fmt.Errorf("mapper: invalid expression %q: %w", expression, err)
	}
	for _, existing := range m.Mappings {
		if existing.Expression == expression {
			existing.Attribute = attr
			return existing, e.reapply(m, source)
		}
	}
	e.mu.Lock()
	e.nextSeq++
	seq := e.nextSeq
	e.mu.Unlock()

	item := &model.MappingItem{
		UID:        model.NewUID(),
		MapperUID:  m.UID,
		Expression: expression,
		Attribute:  attr,
	}
	item.SetInsertionOrder(seq)
	m.Mappings = append(m.Mappings, item)
	return item, e.reapply(m, source)
}

// reapply implements §4.C.5: enumerate every attribute whose
// root_attribute_schema_uid matches the mapper's, and re-run Apply.
func (e *Engine) reapply(m *model.Mapper, source AttributeSource) error {
	if source == nil {
		return nil
	}
	attrs, err := source.AttributesForRootSchema(m.RootAttributeSchemaUID)
	if err != nil {
		return fmt.Errorf("mapper: reapply %s: %w", m.Name, err)
	}
	for _, attr := range attrs {
		if _, err := e.Apply(m, attr); err != nil {
			return err
		}
	}
	return nil
}

// Apply runs the mapping algorithm of §4.C on one attribute tree,
// returning whether any substitution occurred.
func (e *Engine) Apply(m *model.Mapper, attr *model.Attribute) (bool, error) {
	if attr == nil {
		return false, nil
	}
	if attr.SchemaUID == m.AttributeSchemaUID {
		return e.applyLeaf(m, attr)
	}
	switch {
	case attr.ListMembers() != nil:
		applied := false
		for _, item := range attr.ListMembers() {
			ok, err := e.Apply(m, item)
			if err != nil {
				return false, err
			}
			applied = applied || ok
		}
		return applied, nil
	case attr.ObjectMembers() != nil:
		applied := false
		for _, member := range attr.ObjectMembers() {
			ok, err := e.Apply(m, member)
			if err != nil {
				return false, err
			}
			applied = applied || ok
		}
		return applied, nil
	case attr.UnionMember() != nil:
		return e.Apply(m, attr.UnionMember().Inner)
	default:
		return false, nil
	}
}

// applyLeaf implements §4.C.1 for an attribute whose schema equals the
// mapper's attribute_schema_uid: scan mapping items in order of
// decreasing hits (ties by insertion order), first pattern match wins.
func (e *Engine) applyLeaf(m *model.Mapper, attr *model.Attribute) (bool, error) {
	if attr.MappableValue == nil {
		return false, nil
	}
	ordered := make([]*model.MappingItem, len(m.Mappings))
	copy(ordered, m.Mappings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Hits != ordered[j].Hits {
			return ordered[i].Hits > ordered[j].Hits
		}
		return ordered[i].InsertionOrder() < ordered[j].InsertionOrder()
	})
	for _, item := range ordered {
		pattern, err := e.cache.compile(item.Expression)
		if err != nil {
			return false, fmt.Errorf("mapper: %s: %w", item.Expression, err)
		}
		if !pattern.MatchString(*attr.MappableValue) {
			continue
		}
		replacement := item.Attribute
		attr.MappedValue = cloneValue(replacement)
		mapUID := item.UID
		attr.MappingItemUID = &mapUID
		attr.DisplayValue = replacement.DisplayValue
		item.Hits++
		return true, nil
	}
	return false, nil
}

func cloneValue(src *model.Attribute) any {
	if src == nil {
		return nil
	}
	cloned := src.Clone()
	return cloned.Value()
}
