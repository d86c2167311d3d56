package lifecycle

import (
	"context"
	"fmt"
	"log"

	"github.com/sectra/slidetap-core/internal/model"
)

// StartSearch begins metadata search for a batch (INITIALIZED ->
// METADATA_SEARCHING). The metadata import collaborator is expected to
// call SearchComplete once it has finished calling search()/ingesting
// items through the Item Store.
func (c *Coordinator) StartSearch(ctx context.Context, batchUID model.UID) error {
	_, err := c.transition(ctx, batchUID, EventStartSearch)
	return err
}

// SearchComplete finishes metadata ingest: applies every mapper group
// attached to the owning project across all items of the project's
// dataset (not only this batch's), validates the batch's attributes and
// relations, then advances the batch to
// METADATA_SEARCH_COMPLETE (§4.F, data flow in §2).
func (c *Coordinator) SearchComplete(ctx context.Context, batchUID model.UID) error {
	batch, err := c.graph.GetBatch(ctx, batchUID)
	if err != nil {
		return err
	}
	project, err := c.graph.GetProject(ctx, batch.ProjectUID)
	if err != nil {
		return err
	}
	if err := c.ApplyMappersToProject(ctx, project); err != nil {
		return fmt.Errorf("lifecycle: search complete: apply mappers: %w", err)
	}
	if _, err := c.ValidateBatch(ctx, batchUID); err != nil {
		return fmt.Errorf("lifecycle: search complete: validate: %w", err)
	}
	_, err = c.transition(ctx, batchUID, EventSearchComplete)
	return err
}

// Reset moves a batch back to INITIALIZED from METADATA_SEARCH_COMPLETE.
func (c *Coordinator) Reset(ctx context.Context, batchUID model.UID) error {
	_, err := c.transition(ctx, batchUID, EventReset)
	return err
}

// Fail forces a batch to FAILED from any status.
func (c *Coordinator) Fail(ctx context.Context, batchUID model.UID) error {
	_, err := c.transition(ctx, batchUID, EventFail)
	return err
}

// DeleteBatch forces a batch to DELETED, refusing the project's default
// batch (§3 "undeletable"), cancels any in-flight image tasks, and
// cascades item deletion preserving the sample DAG (§4.D, §9).
func (c *Coordinator) DeleteBatch(ctx context.Context, batchUID model.UID) error {
	batch, err := c.transition(ctx, batchUID, EventDelete)
	if err != nil {
		return err
	}
	if c.pipeline != nil {
		c.pipeline.CancelBatch(batchUID)
	}
	for _, itemSchema := range c.allItemSchemasByDeletionOrder() {
		if err := c.graph.DeleteItems(ctx, batch.UID, itemSchema, false); err != nil {
			return fmt.Errorf("lifecycle: delete batch %s items: %w", batchUID, err)
		}
	}
	return nil
}

// allItemSchemasByDeletionOrder returns every item schema uid ordered
// leaves-first (Observation, Annotation, Image, Sample) so cascading
// single-schema deletes never strand a counterpart.
func (c *Coordinator) allItemSchemasByDeletionOrder() []model.UID {
	root := c.registry.Root()
	var out []model.UID
	for uid := range root.Observations {
		out = append(out, uid)
	}
	for uid := range root.Annotations {
		out = append(out, uid)
	}
	for uid := range root.Images {
		out = append(out, uid)
	}
	for uid := range root.Samples {
		out = append(out, uid)
	}
	return out
}

// StartPreProcessing advances METADATA_SEARCH_COMPLETE ->
// IMAGE_PRE_PROCESSING and enqueues every selected, not-yet-processed
// image across all image schemas for pre-processing (§4.F, §4.G).
func (c *Coordinator) StartPreProcessing(ctx context.Context, batchUID model.UID) error {
	batch, err := c.transition(ctx, batchUID, EventStartPreProcessing)
	if err != nil {
		return err
	}
	return c.enqueueImages(ctx, batch.UID, func(img *model.Image) bool {
		return img.Status == model.ImageNotStarted || img.Status == model.ImageDownloaded
	}, c.pipeline.EnqueuePreProcessing)
}

// StartPostProcessing advances IMAGE_PRE_PROCESSING_COMPLETE ->
// IMAGE_POST_PROCESSING and enqueues every selected pre-processed image
// for post-processing.
func (c *Coordinator) StartPostProcessing(ctx context.Context, batchUID model.UID) error {
	batch, err := c.transition(ctx, batchUID, EventStartPostProcessing)
	if err != nil {
		return err
	}
	return c.enqueueImages(ctx, batch.UID, func(img *model.Image) bool {
		return img.Status == model.ImagePreProcessed
	}, c.pipeline.EnqueuePostProcessing)
}

// RestartPostProcessing implements the forced recovery transition from
// IMAGE_POST_PROCESSING back to pre-processed (§4.F "A forced
// transition argument allows recovery ... Legal only from
// IMAGE_POST_PROCESSING").
func (c *Coordinator) RestartPostProcessing(ctx context.Context, batchUID model.UID) error {
	lock := c.lockFor(batchUID)
	lock.Lock()
	defer lock.Unlock()

	batch, err := c.graph.GetBatch(ctx, batchUID)
	if err != nil {
		return err
	}
	to, ok := AllowedBatchRestart(batch.Status)
	if !ok {
		return fmt.Errorf("%w: batch %s cannot restart from %s", model.ErrNotAllowedAction, batchUID, batch.Status)
	}
	if err := c.graph.UpdateBatchStatus(ctx, batchUID, to); err != nil {
		return err
	}
	log.Printf("[lifecycle] batch %s: forced restart %s -> %s", batchUID, batch.Status, to)
	return nil
}

func (c *Coordinator) enqueueImages(ctx context.Context, batchUID model.UID, eligible func(*model.Image) bool, enqueue func(context.Context, *model.Image) error) error {
	if c.pipeline == nil {
		return fmt.Errorf("%w: no pipeline configured", model.ErrNotAllowedAction)
	}
	for imageSchemaUID := range c.registry.Root().Images {
		images, err := c.graph.ImagesForBatch(ctx, batchUID, imageSchemaUID, true)
		if err != nil {
			return err
		}
		for _, img := range images {
			if !eligible(img) {
				continue
			}
			if err := enqueue(ctx, img); err != nil {
				return fmt.Errorf("lifecycle: enqueue image %s: %w", img.UID, err)
			}
		}
	}
	return nil
}

// completeBatch implements the batch-level "complete" transition
// (IMAGE_POST_PROCESSING_COMPLETE -> COMPLETED), locking every item and
// attribute in the batch (§4.F "locks all items+attributes") and
// recomputing the owning project's status.
func (c *Coordinator) completeBatch(ctx context.Context, batchUID model.UID) error {
	batch, err := c.transition(ctx, batchUID, EventComplete)
	if err != nil {
		return err
	}
	items, err := c.graph.AllItemsForBatch(ctx, batchUID)
	if err != nil {
		return err
	}
	for _, item := range items {
		base := item.Base()
		if base.Locked {
			continue
		}
		base.Locked = true
		for _, attr := range base.Attributes {
			lockAttribute(attr)
		}
		if err := c.graph.UpdateItem(ctx, item); err != nil {
			return fmt.Errorf("lifecycle: lock item %s: %w", base.UID, err)
		}
	}
	return c.recomputeProjectStatus(ctx, batch.ProjectUID)
}

// lockAttribute marks attr and every nested attribute it owns as
// locked, recursing through Object/List/Union payloads.
func lockAttribute(attr *model.Attribute) {
	if attr == nil {
		return
	}
	attr.Locked = true
	for _, member := range attr.ObjectMembers() {
		lockAttribute(member)
	}
	for _, member := range attr.ListMembers() {
		lockAttribute(member)
	}
	if union := attr.UnionMember(); union != nil {
		lockAttribute(union.Inner)
	}
}

func (c *Coordinator) recomputeProjectStatus(ctx context.Context, projectUID model.UID) error {
	project, err := c.graph.GetProject(ctx, projectUID)
	if err != nil {
		return err
	}
	batches, err := c.graph.ListBatches(ctx, projectUID)
	if err != nil {
		return err
	}
	newStatus := DeriveProjectStatus(project.Status, batches)
	if newStatus == project.Status {
		return nil
	}
	return c.graph.UpdateProjectStatus(ctx, projectUID, newStatus)
}

// StartExport begins exporting project (§4.F "on export start status
// becomes EXPORTING").
func (c *Coordinator) StartExport(ctx context.Context, projectUID model.UID) error {
	project, err := c.graph.GetProject(ctx, projectUID)
	if err != nil {
		return err
	}
	if !AllowedExportStart(project.Status) {
		return fmt.Errorf("%w: project %s is not COMPLETED (status %s)", model.ErrNotAllowedAction, projectUID, project.Status)
	}
	return c.graph.UpdateProjectStatus(ctx, projectUID, model.ProjectExporting)
}

// FinishExport completes exporting project (§4.F "on finish EXPORT_COMPLETE").
func (c *Coordinator) FinishExport(ctx context.Context, projectUID model.UID) error {
	project, err := c.graph.GetProject(ctx, projectUID)
	if err != nil {
		return err
	}
	if project.Status != model.ProjectExporting {
		return fmt.Errorf("%w: project %s is not EXPORTING", model.ErrNotAllowedAction, projectUID)
	}
	return c.graph.UpdateProjectStatus(ctx, projectUID, model.ProjectExportComplete)
}
