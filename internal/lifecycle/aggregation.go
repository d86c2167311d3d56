package lifecycle

import (
	"context"
	"log"

	"github.com/sectra/slidetap-core/internal/model"
)

// NotifyImageStatus is called by the Image Pipeline after it commits a
// new terminal status for an image (§4.G step 5, §4.F "Aggregation
// rule"). It is safe to call concurrently from many worker goroutines
// for the same batch: the actual check-and-advance is one atomic SQL
// statement (Graph.TryCompleteBatchPhase), so at most one caller ever
// observes the transition succeed for a given phase (testable property
// 6: batch aggregation transitions exactly once).
func (c *Coordinator) NotifyImageStatus(ctx context.Context, image *model.Image) error {
	phase, ok := phaseForImageStatus(image.Status)
	if !ok {
		return nil
	}

	advanceEvent := EventAllImagesPreOK
	if phase == postProcessingPhase {
		advanceEvent = EventAllImagesPostOK
	}

	advanced, err := c.graph.TryCompleteBatchPhase(ctx, image.BatchUID, phase.fromBatchStatus, phase.toBatchStatus, phase.nonTerminalImages)
	if err != nil {
		return err
	}
	if !advanced {
		return nil
	}
	log.Printf("[lifecycle] batch %s: aggregation (%s) -> %s", image.BatchUID, advanceEvent, phase.toBatchStatus)

	if phase == postProcessingPhase {
		return c.completeBatch(ctx, image.BatchUID)
	}
	return nil
}

// RetryImages resets every given image back to the pre-state of its
// current failure and re-enqueues it on the appropriate queue (§4.G
// "Retry semantics"). Images that are not currently in a *_FAILED
// status are skipped.
func (c *Coordinator) RetryImages(ctx context.Context, imageUIDs []model.UID) error {
	for _, uid := range imageUIDs {
		image, err := c.graph.GetImage(ctx, uid)
		if err != nil {
			return err
		}
		preState, ok := image.Status.PreStateOfFailure()
		if !ok {
			continue
		}
		image.Status = preState
		image.StatusMessage = ""
		if err := c.graph.UpdateItem(ctx, model.ItemFromImage(image)); err != nil {
			return err
		}
		if c.pipeline == nil {
			continue
		}
		if err := c.pipeline.Retry(ctx, image); err != nil {
			return err
		}
	}
	return nil
}
