package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sectra/slidetap-core/internal/model"
	"github.com/sectra/slidetap-core/internal/schema"
)

// Graph is the Item Store (§4.D): a persistent graph of items and
// attributes layered over Store's raw connection, resolving attribute
// schemas through the Schema Registry to encode/decode attribute sets.
// Split into a thin connection wrapper (Store) plus a typed repository
// (Graph) atop it.
type Graph struct {
	store    *Store
	registry *schema.Registry
}

// NewGraph constructs a Graph over an open Store and the project's
// Schema Registry.
func NewGraph(store *Store, registry *schema.Registry) *Graph {
	return &Graph{store: store, registry: registry}
}

func (g *Graph) itemSchema(uid model.UID) (*model.ItemSchema, error) {
	s, ok := g.registry.GetItemSchema(uid)
	if !ok {
		return nil, fmt.Errorf("%w: item schema %s", model.ErrNotFound, uid)
	}
	return s, nil
}

// AddItem inserts a new item, enforcing uniqueness on (dataset_uid,
// schema_uid, identifier). On collision it returns the existing item
// and created=false, making ingest idempotent (§4.D "add").
func (g *Graph) AddItem(ctx context.Context, item *model.Item) (*model.Item, bool, error) {
	base := item.Base()
	s, err := g.itemSchema(base.SchemaUID)
	if err != nil {
		return nil, false, err
	}

	if existing, err := g.GetItemByIdentifier(ctx, base.DatasetUID, base.SchemaUID, base.Identifier); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, false, err
	}

	row, err := toRow(item, s)
	if err != nil {
		return nil, false, err
	}

	_, err = g.store.db.ExecContext(ctx, `
		INSERT INTO items (
			uid, kind, schema_uid, dataset_uid, batch_uid, identifier, name,
			pseudonym, selected, locked, valid_attributes, valid_relations, attributes,
			status, status_message, folder_path, files, thumbnail_path, format,
			annotation_image_uid, observation_target, observation_target_uid
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		row.uid, row.kind, row.schemaUID, row.datasetUID, row.batchUID, row.identifier, row.name,
		row.pseudonym, row.selected, row.locked, row.validAttributes, row.validRelations, row.attributes,
		row.status, row.statusMessage, row.folderPath, row.files, row.thumbnailPath, row.format,
		row.annotationImageUID, row.observationTarget, row.observationTargetUID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			existing, getErr := g.GetItemByIdentifier(ctx, base.DatasetUID, base.SchemaUID, base.Identifier)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("store: add item: %w", err)
	}

	return item, true, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}

// GetItem fetches an item by uid.
func (g *Graph) GetItem(ctx context.Context, uid model.UID) (*model.Item, error) {
	return g.scanOne(ctx, g.store.db.QueryRowContext(ctx, selectItemSQL+" WHERE uid = ?", uid.String()))
}

// GetItemByIdentifier fetches an item by its natural key.
func (g *Graph) GetItemByIdentifier(ctx context.Context, datasetUID, schemaUID model.UID, identifier string) (*model.Item, error) {
	return g.scanOne(ctx, g.store.db.QueryRowContext(ctx, selectItemSQL+" WHERE dataset_uid = ? AND schema_uid = ? AND identifier = ?",
		datasetUID.String(), schemaUID.String(), identifier))
}

const selectItemSQL = `SELECT
	uid, kind, schema_uid, dataset_uid, batch_uid, identifier, name,
	pseudonym, selected, locked, valid_attributes, valid_relations, attributes,
	status, status_message, folder_path, files, thumbnail_path, format,
	annotation_image_uid, observation_target, observation_target_uid
	FROM items`

func (g *Graph) scanOne(ctx context.Context, row *sql.Row) (*model.Item, error) {
	var r itemRow
	if err := row.Scan(
		&r.uid, &r.kind, &r.schemaUID, &r.datasetUID, &r.batchUID, &r.identifier, &r.name,
		&r.pseudonym, &r.selected, &r.locked, &r.validAttributes, &r.validRelations, &r.attributes,
		&r.status, &r.statusMessage, &r.folderPath, &r.files, &r.thumbnailPath, &r.format,
		&r.annotationImageUID, &r.observationTarget, &r.observationTargetUID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("store: scan item: %w", err)
	}
	return g.fromRow(ctx, r)
}

func (g *Graph) queryItems(ctx context.Context, query string, args ...any) ([]*model.Item, error) {
	rows, err := g.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query items: %w", err)
	}
	defer rows.Close()

	var out []*model.Item
	for rows.Next() {
		var r itemRow
		if err := rows.Scan(
			&r.uid, &r.kind, &r.schemaUID, &r.datasetUID, &r.batchUID, &r.identifier, &r.name,
			&r.pseudonym, &r.selected, &r.locked, &r.validAttributes, &r.validRelations, &r.attributes,
			&r.status, &r.statusMessage, &r.folderPath, &r.files, &r.thumbnailPath, &r.format,
			&r.annotationImageUID, &r.observationTarget, &r.observationTargetUID,
		); err != nil {
			return nil, fmt.Errorf("store: scan item: %w", err)
		}
		item, err := g.fromRow(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// UpdateItem persists item's mutable fields (batch, name, attributes,
// selected, valid flags, pseudonym, locked, and the image-only columns)
// back to its existing row; annotation and observation columns are not
// rewritten. The caller owns relation edges separately.
func (g *Graph) UpdateItem(ctx context.Context, item *model.Item) error {
	base := item.Base()
	s, err := g.itemSchema(base.SchemaUID)
	if err != nil {
		return err
	}
	row, err := toRow(item, s)
	if err != nil {
		return err
	}
	_, err = g.store.db.ExecContext(ctx, `
		UPDATE items SET
			batch_uid = ?, name = ?, pseudonym = ?, selected = ?, locked = ?,
			valid_attributes = ?, valid_relations = ?, attributes = ?,
			status = ?, status_message = ?, folder_path = ?, files = ?, thumbnail_path = ?, format = ?
		WHERE uid = ?
	`, row.batchUID, row.name, row.pseudonym, row.selected, row.locked,
		row.validAttributes, row.validRelations, row.attributes,
		row.status, row.statusMessage, row.folderPath, row.files, row.thumbnailPath, row.format,
		row.uid)
	if err != nil {
		return fmt.Errorf("store: update item: %w", err)
	}
	return nil
}

func uidOrNil(u model.UID) any {
	if u == (model.UID{}) {
		return nil
	}
	return u.String()
}

func parseOptionalUID(s sql.NullString) model.UID {
	if !s.Valid || s.String == "" {
		return model.UID{}
	}
	u, err := uuid.Parse(s.String)
	if err != nil {
		return model.UID{}
	}
	return u
}
