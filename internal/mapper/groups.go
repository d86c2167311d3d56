package mapper

import (
	"fmt"

	"github.com/sectra/slidetap-core/internal/model"
)

// RegisterGroup adds a mapper group to the engine, keyed by uid. Groups
// are looked up by the Lifecycle Coordinator when applying every mapper
// a project has attached (§4.C "mapper groups attach to projects").
func (e *Engine) RegisterGroup(g *model.MapperGroup) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.groups[g.UID] = g
}

// GetGroup looks up a registered mapper group by uid.
func (e *Engine) GetGroup(uid model.UID) (*model.MapperGroup, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.groups[uid]
	return g, ok
}

// MappersInGroup resolves a group's member mapper uids to the
// registered Mapper values, skipping any uid that was never registered.
func (e *Engine) MappersInGroup(groupUID model.UID) ([]*model.Mapper, error) {
	group, ok := e.GetGroup(groupUID)
	if !ok {
		return nil, fmt.Errorf("%w: mapper group %s", model.ErrNotFound, groupUID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*model.Mapper, 0, len(group.MapperUIDs))
	for _, uid := range group.MapperUIDs {
		if m, ok := e.mappers[uid]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}
