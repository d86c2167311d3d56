package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/sectra/slidetap-core/internal/model"
)

// SortDirection orders a paged query by identifier.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// ItemQuery describes a paged, filtered read over one item schema's
// items (§4.D "page/filter queries"), used by the external interfaces.
type ItemQuery struct {
	SchemaUID        model.UID
	DatasetUID       model.UID
	BatchUID         model.UID // zero value means "any batch"
	IdentifierFilter string    // substring match against identifier
	Sort             SortDirection
	Included         *bool // selected flag filter
	Valid            *bool // valid_attributes && valid_relations filter
	Status           *model.ImageStatus
	Offset           int
	Limit            int
}

// Page is one page of a filtered item query, with the total row count
// ignoring Offset/Limit so callers can render pagination controls.
type Page struct {
	Items []*model.Item
	Total int
}

// Query runs a paged, filtered read over the items of one schema.
func (g *Graph) Query(ctx context.Context, q ItemQuery) (Page, error) {
	var where []string
	var args []any

	where = append(where, "schema_uid = ?")
	args = append(args, q.SchemaUID.String())

	if q.DatasetUID != (model.UID{}) {
		where = append(where, "dataset_uid = ?")
		args = append(args, q.DatasetUID.String())
	}
	if q.BatchUID != (model.UID{}) {
		where = append(where, "batch_uid = ?")
		args = append(args, q.BatchUID.String())
	}
	if q.IdentifierFilter != "" {
		where = append(where, "identifier LIKE ?")
		args = append(args, "%"+q.IdentifierFilter+"%")
	}
	if q.Included != nil {
		where = append(where, "selected = ?")
		args = append(args, boolToInt(*q.Included))
	}
	if q.Valid != nil {
		if *q.Valid {
			where = append(where, "valid_attributes = 1 AND valid_relations = 1")
		} else {
			where = append(where, "(valid_attributes = 0 OR valid_relations = 0 OR valid_attributes IS NULL OR valid_relations IS NULL)")
		}
	}
	if q.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*q.Status))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countRow := g.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items WHERE "+whereClause, args...)
	if err := countRow.Scan(&total); err != nil {
		return Page{}, fmt.Errorf("store: count items: %w", err)
	}

	order := "ASC"
	if q.Sort == SortDescending {
		order = "DESC"
	}
	pagedQuery := selectItemSQL + " WHERE " + whereClause + fmt.Sprintf(" ORDER BY identifier %s", order)
	pagedArgs := append([]any{}, args...)
	if q.Limit > 0 {
		pagedQuery += " LIMIT ? OFFSET ?"
		pagedArgs = append(pagedArgs, q.Limit, q.Offset)
	}

	items, err := g.queryItems(ctx, pagedQuery, pagedArgs...)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
