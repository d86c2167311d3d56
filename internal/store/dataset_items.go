package store

import (
	"context"
	"fmt"

	"github.com/sectra/slidetap-core/internal/model"
)

// AllItemsForDataset returns every item belonging to datasetUID across
// all item kinds and schemas - used by the Lifecycle Coordinator to
// sweep mapper application and validation over a whole project/dataset
// (§4.C "Applying mappers to a project", §4.E project/dataset
// validation).
func (g *Graph) AllItemsForDataset(ctx context.Context, datasetUID model.UID) ([]*model.Item, error) {
	return g.queryItems(ctx, selectItemSQL+` WHERE dataset_uid = ?`, datasetUID.String())
}

// AllItemsForBatch returns every item belonging to batchUID across all
// item kinds and schemas.
func (g *Graph) AllItemsForBatch(ctx context.Context, batchUID model.UID) ([]*model.Item, error) {
	items, err := g.queryItems(ctx, selectItemSQL+` WHERE batch_uid = ?`, batchUID.String())
	if err != nil {
		return nil, fmt.Errorf("store: all items for batch: %w", err)
	}
	return items, nil
}
