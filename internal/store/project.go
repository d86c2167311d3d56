package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sectra/slidetap-core/internal/model"
)

// CreateDataset persists a new dataset.
func (g *Graph) CreateDataset(ctx context.Context, d *model.Dataset) error {
	attrJSON, err := encodeAttributeSet(d.Attributes, g.registry.Root().Dataset.Attributes)
	if err != nil {
		return err
	}
	_, err = g.store.db.ExecContext(ctx, `
		INSERT INTO datasets (uid, name, schema_uid, attributes, valid_attributes) VALUES (?,?,?,?,?)
	`, d.UID.String(), d.Name, d.SchemaUID.String(), attrJSON, nullableBool(d.ValidAttributes))
	if err != nil {
		return fmt.Errorf("store: create dataset: %w", err)
	}
	return nil
}

// GetDataset fetches a dataset by uid.
func (g *Graph) GetDataset(ctx context.Context, uid model.UID) (*model.Dataset, error) {
	row := g.store.db.QueryRowContext(ctx, `SELECT uid, name, schema_uid, attributes, valid_attributes FROM datasets WHERE uid = ?`, uid.String())
	var d model.Dataset
	var uidStr, schemaUIDStr, attrsJSON string
	var valid sql.NullBool
	if err := row.Scan(&uidStr, &d.Name, &schemaUIDStr, &attrsJSON, &valid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("store: get dataset: %w", err)
	}
	var err error
	if d.UID, err = parseUID(uidStr); err != nil {
		return nil, err
	}
	if d.SchemaUID, err = parseUID(schemaUIDStr); err != nil {
		return nil, err
	}
	if d.Attributes, err = decodeAttributeSet(attrsJSON, g.registry.Root().Dataset.Attributes); err != nil {
		return nil, err
	}
	if valid.Valid {
		d.ValidAttributes = &valid.Bool
	}
	return &d, nil
}

// UpdateDataset persists a dataset's attributes and validity.
func (g *Graph) UpdateDataset(ctx context.Context, d *model.Dataset) error {
	attrJSON, err := encodeAttributeSet(d.Attributes, g.registry.Root().Dataset.Attributes)
	if err != nil {
		return err
	}
	_, err = g.store.db.ExecContext(ctx, `
		UPDATE datasets SET name = ?, attributes = ?, valid_attributes = ? WHERE uid = ?
	`, d.Name, attrJSON, nullableBool(d.ValidAttributes), d.UID.String())
	if err != nil {
		return fmt.Errorf("store: update dataset: %w", err)
	}
	return nil
}

// CreateProject persists a new project.
func (g *Graph) CreateProject(ctx context.Context, p *model.Project) error {
	attrJSON, err := encodeAttributeSet(p.Attributes, g.registry.Root().Project.Attributes)
	if err != nil {
		return err
	}
	groupUIDs := uidSetToStrings(p.MapperGroupUIDs)
	groupJSON, err := json.Marshal(groupUIDs)
	if err != nil {
		return err
	}
	_, err = g.store.db.ExecContext(ctx, `
		INSERT INTO projects (
			uid, name, status, root_schema_uid, schema_uid, dataset_uid,
			default_batch_uid, attributes, mapper_group_uids, locked, created
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)
	`, p.UID.String(), p.Name, string(p.Status), p.RootSchemaUID.String(), p.SchemaUID.String(), p.DatasetUID.String(),
		uidOrNil(p.DefaultBatchUID), attrJSON, string(groupJSON), boolToInt(p.Locked), p.Created)
	if err != nil {
		return fmt.Errorf("store: create project: %w", err)
	}
	return nil
}

// GetProject fetches a project by uid.
func (g *Graph) GetProject(ctx context.Context, uid model.UID) (*model.Project, error) {
	row := g.store.db.QueryRowContext(ctx, `
		SELECT uid, name, status, root_schema_uid, schema_uid, dataset_uid,
			default_batch_uid, attributes, mapper_group_uids, locked, created
		FROM projects WHERE uid = ?
	`, uid.String())
	return scanProject(row, g)
}

func scanProject(row *sql.Row, g *Graph) (*model.Project, error) {
	var p model.Project
	var uidStr, status, rootSchemaUID, schemaUID, datasetUID, attrsJSON, groupsJSON string
	var defaultBatch sql.NullString
	var lockedInt int
	if err := row.Scan(&uidStr, &p.Name, &status, &rootSchemaUID, &schemaUID, &datasetUID,
		&defaultBatch, &attrsJSON, &groupsJSON, &lockedInt, &p.Created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("store: get project: %w", err)
	}
	var err error
	if p.UID, err = parseUID(uidStr); err != nil {
		return nil, err
	}
	p.Status = model.ProjectStatus(status)
	if p.RootSchemaUID, err = parseUID(rootSchemaUID); err != nil {
		return nil, err
	}
	if p.SchemaUID, err = parseUID(schemaUID); err != nil {
		return nil, err
	}
	if p.DatasetUID, err = parseUID(datasetUID); err != nil {
		return nil, err
	}
	p.DefaultBatchUID = parseOptionalUID(defaultBatch)
	p.Locked = lockedInt != 0
	if p.Attributes, err = decodeAttributeSet(attrsJSON, g.registry.Root().Project.Attributes); err != nil {
		return nil, err
	}
	var groupStrs []string
	if err := json.Unmarshal([]byte(groupsJSON), &groupStrs); err != nil {
		return nil, fmt.Errorf("store: decode mapper group uids: %w", err)
	}
	p.MapperGroupUIDs = make(map[model.UID]struct{}, len(groupStrs))
	for _, s := range groupStrs {
		u, err := parseUID(s)
		if err != nil {
			return nil, err
		}
		p.MapperGroupUIDs[u] = struct{}{}
	}
	return &p, nil
}

// UpdateProjectStatus persists a project's status (the Lifecycle
// Coordinator is the sole caller per §4.F).
func (g *Graph) UpdateProjectStatus(ctx context.Context, uid model.UID, status model.ProjectStatus) error {
	_, err := g.store.db.ExecContext(ctx, `UPDATE projects SET status = ? WHERE uid = ?`, string(status), uid.String())
	if err != nil {
		return fmt.Errorf("store: update project status: %w", err)
	}
	return nil
}

// UpdateProject persists a project's mutable attribute/lock state.
func (g *Graph) UpdateProject(ctx context.Context, p *model.Project) error {
	attrJSON, err := encodeAttributeSet(p.Attributes, g.registry.Root().Project.Attributes)
	if err != nil {
		return err
	}
	groupJSON, err := json.Marshal(uidSetToStrings(p.MapperGroupUIDs))
	if err != nil {
		return err
	}
	_, err = g.store.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, attributes = ?, mapper_group_uids = ?, locked = ?, default_batch_uid = ?
		WHERE uid = ?
	`, p.Name, attrJSON, string(groupJSON), boolToInt(p.Locked), uidOrNil(p.DefaultBatchUID), p.UID.String())
	if err != nil {
		return fmt.Errorf("store: update project: %w", err)
	}
	return nil
}

// CreateBatch persists a new batch.
func (g *Graph) CreateBatch(ctx context.Context, b *model.Batch) error {
	_, err := g.store.db.ExecContext(ctx, `
		INSERT INTO batches (uid, name, project_uid, status, created, is_default) VALUES (?,?,?,?,?,?)
	`, b.UID.String(), b.Name, b.ProjectUID.String(), string(b.Status), b.Created, boolToInt(b.IsDefault))
	if err != nil {
		return fmt.Errorf("store: create batch: %w", err)
	}
	return nil
}

// GetBatch fetches a batch by uid.
func (g *Graph) GetBatch(ctx context.Context, uid model.UID) (*model.Batch, error) {
	row := g.store.db.QueryRowContext(ctx, `SELECT uid, name, project_uid, status, created, is_default FROM batches WHERE uid = ?`, uid.String())
	var b model.Batch
	var uidStr, projectUIDStr, status string
	var isDefault int
	if err := row.Scan(&uidStr, &b.Name, &projectUIDStr, &status, &b.Created, &isDefault); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("store: get batch: %w", err)
	}
	var err error
	if b.UID, err = parseUID(uidStr); err != nil {
		return nil, err
	}
	if b.ProjectUID, err = parseUID(projectUIDStr); err != nil {
		return nil, err
	}
	b.Status = model.BatchStatus(status)
	b.IsDefault = isDefault != 0
	return &b, nil
}

// UpdateBatchStatus persists a batch's status.
func (g *Graph) UpdateBatchStatus(ctx context.Context, uid model.UID, status model.BatchStatus) error {
	_, err := g.store.db.ExecContext(ctx, `UPDATE batches SET status = ? WHERE uid = ?`, string(status), uid.String())
	if err != nil {
		return fmt.Errorf("store: update batch status: %w", err)
	}
	return nil
}

// ListBatches returns every batch belonging to a project.
func (g *Graph) ListBatches(ctx context.Context, projectUID model.UID) ([]*model.Batch, error) {
	rows, err := g.store.db.QueryContext(ctx, `SELECT uid, name, project_uid, status, created, is_default FROM batches WHERE project_uid = ?`, projectUID.String())
	if err != nil {
		return nil, fmt.Errorf("store: list batches: %w", err)
	}
	defer rows.Close()
	var out []*model.Batch
	for rows.Next() {
		var b model.Batch
		var uidStr, projectUIDStr, status string
		var isDefault int
		if err := rows.Scan(&uidStr, &b.Name, &projectUIDStr, &status, &b.Created, &isDefault); err != nil {
			return nil, err
		}
		if b.UID, err = parseUID(uidStr); err != nil {
			return nil, err
		}
		if b.ProjectUID, err = parseUID(projectUIDStr); err != nil {
			return nil, err
		}
		b.Status = model.BatchStatus(status)
		b.IsDefault = isDefault != 0
		out = append(out, &b)
	}
	return out, rows.Err()
}

func nullableBool(b *bool) any {
	if b == nil {
		return nil
	}
	return boolToInt(*b)
}

func uidSetToStrings(set map[model.UID]struct{}) []string {
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u.String())
	}
	return out
}
