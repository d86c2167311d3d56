package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sectra/slidetap-core/internal/model"
)

// DeleteItems implements §4.D "delete_items": deletes every item of
// schemaUID in batch (optionally restricted to non-selected items),
// cascading through Observations and Images. A Sample whose child
// lives in a different batch is not deleted - it is reassigned to the
// project's default batch instead, to keep the DAG intact (testable
// property 7).
func (g *Graph) DeleteItems(ctx context.Context, batchUID, schemaUID model.UID, onlyNonSelected bool) error {
	s, err := g.itemSchema(schemaUID)
	if err != nil {
		return err
	}

	query := `SELECT uid FROM items WHERE batch_uid = ? AND schema_uid = ?`
	args := []any{batchUID.String(), schemaUID.String()}
	if onlyNonSelected {
		query += ` AND selected = 0`
	}
	rows, err := g.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: list items to delete: %w", err)
	}
	var uids []model.UID
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			rows.Close()
			return err
		}
		uid, err := parseUID(s)
		if err != nil {
			rows.Close()
			return err
		}
		uids = append(uids, uid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, uid := range uids {
		switch s.Kind {
		case model.ItemObservation:
			if err := g.deleteObservation(ctx, uid); err != nil {
				return err
			}
		case model.ItemAnnotation:
			if err := g.deleteAnnotationCascade(ctx, uid); err != nil {
				return err
			}
		case model.ItemImage:
			if err := g.deleteImageCascade(ctx, uid); err != nil {
				return err
			}
		case model.ItemSample:
			if err := g.deleteOrReassignSample(ctx, uid, batchUID); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown item kind %q", model.ErrInvariantViolation, s.Kind)
		}
	}
	return nil
}

func (g *Graph) deleteObservation(ctx context.Context, uid model.UID) error {
	_, err := g.store.db.ExecContext(ctx, `DELETE FROM items WHERE uid = ?`, uid.String())
	if err != nil {
		return fmt.Errorf("store: delete observation: %w", err)
	}
	return nil
}

func (g *Graph) deleteAnnotationCascade(ctx context.Context, uid model.UID) error {
	if err := g.deleteObservationsTargeting(ctx, uid); err != nil {
		return err
	}
	_, err := g.store.db.ExecContext(ctx, `DELETE FROM items WHERE uid = ?`, uid.String())
	if err != nil {
		return fmt.Errorf("store: delete annotation: %w", err)
	}
	return nil
}

func (g *Graph) deleteImageCascade(ctx context.Context, uid model.UID) error {
	if err := g.deleteObservationsTargeting(ctx, uid); err != nil {
		return err
	}
	if _, err := g.store.db.ExecContext(ctx, `DELETE FROM image_relations WHERE image_uid = ?`, uid.String()); err != nil {
		return fmt.Errorf("store: delete image relations: %w", err)
	}
	if _, err := g.store.db.ExecContext(ctx, `DELETE FROM items WHERE uid = ?`, uid.String()); err != nil {
		return fmt.Errorf("store: delete image: %w", err)
	}
	return nil
}

func (g *Graph) deleteObservationsTargeting(ctx context.Context, targetUID model.UID) error {
	_, err := g.store.db.ExecContext(ctx, `DELETE FROM items WHERE kind = ? AND observation_target_uid = ?`,
		string(model.ItemObservation), targetUID.String())
	if err != nil {
		return fmt.Errorf("store: delete observations targeting %s: %w", targetUID, err)
	}
	return nil
}

// deleteOrReassignSample deletes sample uid unless one of its children
// lives outside batchUID, in which case it is moved to the owning
// project's default batch rather than deleted.
func (g *Graph) deleteOrReassignSample(ctx context.Context, uid, batchUID model.UID) error {
	hasOutside, err := g.sampleHasChildOutsideBatch(ctx, uid, batchUID)
	if err != nil {
		return err
	}
	if hasOutside {
		defaultBatch, err := g.projectDefaultBatchForBatch(ctx, batchUID)
		if err != nil {
			return err
		}
		_, err = g.store.db.ExecContext(ctx, `UPDATE items SET batch_uid = ? WHERE uid = ?`, defaultBatch.String(), uid.String())
		if err != nil {
			return fmt.Errorf("store: reassign sample to default batch: %w", err)
		}
		return nil
	}

	if _, err := g.store.db.ExecContext(ctx, `DELETE FROM sample_relations WHERE parent_uid = ? OR child_uid = ?`, uid.String(), uid.String()); err != nil {
		return fmt.Errorf("store: delete sample relations: %w", err)
	}
	if _, err := g.store.db.ExecContext(ctx, `DELETE FROM image_relations WHERE sample_uid = ?`, uid.String()); err != nil {
		return fmt.Errorf("store: delete sample image relations: %w", err)
	}
	if _, err := g.store.db.ExecContext(ctx, `DELETE FROM items WHERE uid = ?`, uid.String()); err != nil {
		return fmt.Errorf("store: delete sample: %w", err)
	}
	return nil
}

func (g *Graph) sampleHasChildOutsideBatch(ctx context.Context, sampleUID, batchUID model.UID) (bool, error) {
	row := g.store.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM sample_relations sr
			JOIN items child ON child.uid = sr.child_uid
			WHERE sr.parent_uid = ? AND child.batch_uid != ?
		)
	`, sampleUID.String(), batchUID.String())
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("store: check child batches: %w", err)
	}
	return exists, nil
}

func (g *Graph) projectDefaultBatchForBatch(ctx context.Context, batchUID model.UID) (model.UID, error) {
	row := g.store.db.QueryRowContext(ctx, `
		SELECT p.default_batch_uid FROM projects p
		JOIN batches b ON b.project_uid = p.uid
		WHERE b.uid = ?
	`, batchUID.String())
	var defaultBatch sql.NullString
	if err := row.Scan(&defaultBatch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.UID{}, fmt.Errorf("%w: batch %s", model.ErrNotFound, batchUID)
		}
		return model.UID{}, fmt.Errorf("store: lookup default batch: %w", err)
	}
	if !defaultBatch.Valid || defaultBatch.String == "" {
		return model.UID{}, fmt.Errorf("%w: project for batch %s has no default batch", model.ErrInvariantViolation, batchUID)
	}
	return parseUID(defaultBatch.String)
}
