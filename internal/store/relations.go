package store

import (
	"context"
	"fmt"

	"github.com/sectra/slidetap-core/internal/model"
)

// fillSampleRelations loads a sample's parent/child/image edges from
// the relation tables into its in-memory sets.
func (g *Graph) fillSampleRelations(ctx context.Context, sample *model.Sample) error {
	rows, err := g.store.db.QueryContext(ctx, `SELECT parent_uid FROM sample_relations WHERE child_uid = ?`, sample.UID.String())
	if err != nil {
		return fmt.Errorf("store: load parents: %w", err)
	}
	if err := scanUIDSet(rows, sample.ParentUIDs); err != nil {
		return err
	}

	rows, err = g.store.db.QueryContext(ctx, `SELECT child_uid FROM sample_relations WHERE parent_uid = ?`, sample.UID.String())
	if err != nil {
		return fmt.Errorf("store: load children: %w", err)
	}
	if err := scanUIDSet(rows, sample.ChildUIDs); err != nil {
		return err
	}

	rows, err = g.store.db.QueryContext(ctx, `SELECT image_uid FROM image_relations WHERE sample_uid = ?`, sample.UID.String())
	if err != nil {
		return fmt.Errorf("store: load sample images: %w", err)
	}
	return scanUIDSet(rows, sample.ImageUIDs)
}

func (g *Graph) fillImageRelations(ctx context.Context, image *model.Image) error {
	rows, err := g.store.db.QueryContext(ctx, `SELECT sample_uid FROM image_relations WHERE image_uid = ?`, image.UID.String())
	if err != nil {
		return fmt.Errorf("store: load image samples: %w", err)
	}
	return scanUIDSet(rows, image.SampleUIDs)
}

func scanUIDSet(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
	Close() error
}, set map[model.UID]struct{}) error {
	defer rows.Close()
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return err
		}
		uid, err := parseUID(s)
		if err != nil {
			return err
		}
		set[uid] = struct{}{}
	}
	return rows.Err()
}

// AddChildRelation records a parent→child edge between two samples,
// rejecting it if it would introduce a cycle into the sample DAG
// (§4.D "no cycles allowed - insertion must reject"; §9).
func (g *Graph) AddChildRelation(ctx context.Context, parentUID, childUID model.UID, relationName string) error {
	if parentUID == childUID {
		return fmt.Errorf("%w: sample cannot be its own parent", model.ErrCycle)
	}
	reachable, err := g.reachableFrom(ctx, childUID)
	if err != nil {
		return err
	}
	if _, found := reachable[parentUID]; found {
		return fmt.Errorf("%w: %s is already a descendant of %s", model.ErrCycle, parentUID, childUID)
	}
	_, err = g.store.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sample_relations (parent_uid, child_uid, relation_name) VALUES (?,?,?)
	`, parentUID.String(), childUID.String(), relationName)
	if err != nil {
		return fmt.Errorf("store: add child relation: %w", err)
	}
	return nil
}

// reachableFrom returns the set of sample uids reachable from start by
// following child edges (start's descendants, start included) - used
// to detect whether adding start as an ancestor elsewhere would close
// a cycle.
func (g *Graph) reachableFrom(ctx context.Context, start model.UID) (map[model.UID]struct{}, error) {
	visited := map[model.UID]struct{}{start: {}}
	queue := []model.UID{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		rows, err := g.store.db.QueryContext(ctx, `SELECT child_uid FROM sample_relations WHERE parent_uid = ?`, current.String())
		if err != nil {
			return nil, fmt.Errorf("store: walk descendants: %w", err)
		}
		var children []string
		for rows.Next() {
			var c string
			if err := rows.Scan(&c); err != nil {
				rows.Close()
				return nil, err
			}
			children = append(children, c)
		}
		rows.Close()
		for _, c := range children {
			uid, err := parseUID(c)
			if err != nil {
				return nil, err
			}
			if _, seen := visited[uid]; seen {
				continue
			}
			visited[uid] = struct{}{}
			queue = append(queue, uid)
		}
	}
	return visited, nil
}

// AddImageRelation links a sample to an image taken of it.
func (g *Graph) AddImageRelation(ctx context.Context, sampleUID, imageUID model.UID, relationName string) error {
	_, err := g.store.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO image_relations (sample_uid, image_uid, relation_name) VALUES (?,?,?)
	`, sampleUID.String(), imageUID.String(), relationName)
	if err != nil {
		return fmt.Errorf("store: add image relation: %w", err)
	}
	return nil
}

// Children returns sample's children restricted to childSchemaUID,
// selected or not.
func (g *Graph) Children(ctx context.Context, sampleUID, childSchemaUID model.UID) ([]*model.Item, error) {
	return g.queryItems(ctx, selectItemSQL+`
		WHERE schema_uid = ? AND uid IN (SELECT child_uid FROM sample_relations WHERE parent_uid = ?)
	`, childSchemaUID.String(), sampleUID.String())
}

// Parents returns sample's parents restricted to parentSchemaUID.
func (g *Graph) Parents(ctx context.Context, sampleUID, parentSchemaUID model.UID) ([]*model.Item, error) {
	return g.queryItems(ctx, selectItemSQL+`
		WHERE schema_uid = ? AND uid IN (SELECT parent_uid FROM sample_relations WHERE child_uid = ?)
	`, parentSchemaUID.String(), sampleUID.String())
}

// Images returns the images attached to sample, restricted to imageSchemaUID.
func (g *Graph) Images(ctx context.Context, sampleUID, imageSchemaUID model.UID) ([]*model.Item, error) {
	return g.queryItems(ctx, selectItemSQL+`
		WHERE schema_uid = ? AND uid IN (SELECT image_uid FROM image_relations WHERE sample_uid = ?)
	`, imageSchemaUID.String(), sampleUID.String())
}
