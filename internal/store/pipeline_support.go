package store

import (
	"context"
	"fmt"

	"github.com/sectra/slidetap-core/internal/model"
)

// ImagesForBatch returns every image item in batchUID, restricted to
// imageSchemaUID, optionally restricted to selected==true - used by the
// Lifecycle Coordinator to enumerate the images it must enqueue when
// starting pre/post-processing (§4.F, §4.G).
func (g *Graph) ImagesForBatch(ctx context.Context, batchUID, imageSchemaUID model.UID, onlySelected bool) ([]*model.Image, error) {
	query := selectItemSQL + ` WHERE batch_uid = ? AND schema_uid = ? AND kind = ?`
	args := []any{batchUID.String(), imageSchemaUID.String(), string(model.ItemImage)}
	if onlySelected {
		query += ` AND selected = 1`
	}
	items, err := g.queryItems(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Image, 0, len(items))
	for _, it := range items {
		out = append(out, it.Image)
	}
	return out, nil
}

// GetImage fetches an item by uid and asserts it is an Image.
func (g *Graph) GetImage(ctx context.Context, uid model.UID) (*model.Image, error) {
	item, err := g.GetItem(ctx, uid)
	if err != nil {
		return nil, err
	}
	if item.Kind != model.ItemImage {
		return nil, fmt.Errorf("%w: %s is not an image", model.ErrInvariantViolation, uid)
	}
	return item.Image, nil
}

// CountSelectedImagesInStatus counts selected images of every image
// schema in batchUID currently at status - used by tests and diagnostics to
// observe aggregation without racing the conditional update itself.
func (g *Graph) CountSelectedImagesInStatus(ctx context.Context, batchUID model.UID, status model.ImageStatus) (int, error) {
	row := g.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM items
		WHERE batch_uid = ? AND kind = ? AND selected = 1 AND status = ?
	`, batchUID.String(), string(model.ItemImage), string(status))
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count images in status: %w", err)
	}
	return n, nil
}

// TryCompleteBatchPhase implements §5's conditional update: advance
// batchUID from expectedStatus to targetStatus iff its current status
// is still expectedStatus AND no selected image in the batch remains at
// any of nonTerminalStatuses. The whole check-and-set is one SQL
// statement, so it is atomic with respect to any other writer touching
// the same row - the mechanism behind testable property 6 (batch
// aggregation transitions exactly once). Pre-processing's non-terminal
// set includes DOWNLOADING as well as PRE_PROCESSING since the
// pre-processing task folds image download in ahead of dicomization.
func (g *Graph) TryCompleteBatchPhase(ctx context.Context, batchUID model.UID, expectedStatus, targetStatus model.BatchStatus, nonTerminalStatuses []model.ImageStatus) (bool, error) {
	placeholders := make([]string, len(nonTerminalStatuses))
	args := []any{string(targetStatus), batchUID.String(), string(expectedStatus), batchUID.String(), string(model.ItemImage)}
	for i, s := range nonTerminalStatuses {
		placeholders[i] = "?"
		args = append(args, string(s))
	}
	query := `
		UPDATE batches SET status = ?
		WHERE uid = ? AND status = ?
		AND NOT EXISTS (
			SELECT 1 FROM items
			WHERE batch_uid = ? AND kind = ? AND selected = 1 AND status IN (` + joinPlaceholders(placeholders) + `)
		)
	`
	result, err := g.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("store: try complete batch phase: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: rows affected: %w", err)
	}
	return n == 1, nil
}

func joinPlaceholders(ph []string) string {
	out := ""
	for i, p := range ph {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// AttributesForRootSchema implements mapper.AttributeSource: it
// returns every top-level item attribute whose declared schema is
// rootAttributeSchemaUID, so the Mapper Engine can re-apply a mutated
// mapper across them (§4.C.5). Only the items table is scanned:
// project and dataset attributes are not returned, and items whose
// schema is not in the registry are skipped.
func (g *Graph) AttributesForRootSchema(ctx context.Context, rootAttributeSchemaUID model.UID) ([]*model.Attribute, error) {
	rows, err := g.store.db.QueryContext(ctx, `SELECT uid, schema_uid, attributes FROM items`)
	if err != nil {
		return nil, fmt.Errorf("store: scan items for mapper reapply: %w", err)
	}
	var itemRows []struct {
		uid, schemaUID, attrs string
	}
	for rows.Next() {
		var r struct{ uid, schemaUID, attrs string }
		if err := rows.Scan(&r.uid, &r.schemaUID, &r.attrs); err != nil {
			rows.Close()
			return nil, err
		}
		itemRows = append(itemRows, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []*model.Attribute
	for _, r := range itemRows {
		schemaUID, err := parseUID(r.schemaUID)
		if err != nil {
			return nil, err
		}
		itemSchema, err := g.itemSchema(schemaUID)
		if err != nil {
			continue
		}
		attrs, err := decodeAttributeSet(r.attrs, itemSchema.Attributes)
		if err != nil {
			return nil, err
		}
		for tag, attr := range attrs {
			declared, ok := itemSchema.Attributes[tag]
			if !ok || declared.UID != rootAttributeSchemaUID {
				continue
			}
			out = append(out, attr)
		}
	}
	return out, nil
}
