package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sectra/slidetap-core/internal/model"
)

// phaseSpec names one side of the per-image execution contract (§4.G):
// pre-processing and post-processing share the same six-step contract,
// differing only in which status names apply and which steps run.
type phaseSpec struct {
	label          string
	steps          []Step
	alreadyDone    model.ImageStatus
	runningStatus  model.ImageStatus
	successStatus  model.ImageStatus
	failedStatus   model.ImageStatus
}

// runTask executes the per-image execution contract (§4.G numbered
// steps 1-6) for one image against one phase. It never returns an
// error to the caller: every failure is absorbed into the image's
// status and status_message (§7 "ProcessingFailure ... the task
// completes successfully").
func (p *Pipeline) runTask(ctx context.Context, imageUID model.UID, ph phaseSpec) {
	image, err := p.graph.GetImage(ctx, imageUID)
	if err != nil {
		log.Printf("[pipeline] %s: load image %s: %v", ph.label, imageUID, err)
		return
	}

	// Step 2: skip_image - already at the destination status.
	if image.Status == ph.alreadyDone {
		return
	}

	// Step 3: folder_path required.
	if image.FolderPath == nil {
		p.fail(ctx, image, ph, "no source folder", nil)
		return
	}

	// Step 4: mark processing.
	image.Status = ph.runningStatus
	if err := p.commit(ctx, image); err != nil {
		log.Printf("[pipeline] %s: commit processing status for %s: %v", ph.label, imageUID, err)
		return
	}

	project, err := p.projectForImage(ctx, image)
	if err != nil {
		p.fail(ctx, image, ph, "load project", err)
		return
	}

	sc := &StepContext{
		Registry:      p.registry,
		Storage:       p.storage,
		Project:       project,
		Image:         image,
		Path:          *image.FolderPath,
		OriginalPath:  *image.FolderPath,
		UsePseudonyms: p.config.UsePseudonyms,
	}

	type ranStep struct {
		step Step
		path string
	}
	var ran []ranStep

	for _, step := range ph.steps {
		if ctx.Err() != nil || p.isCanceled(image.BatchUID) {
			// Cancellation (§5 "releases scratch resources and records
			// nothing"): undo this attempt's scratch output and return
			// without committing again; the image keeps the processing
			// status committed in step 4.
			for _, r := range ran {
				if r.path != "" {
					os.RemoveAll(r.path)
				}
				r.step.Cleanup(sc)
			}
			return
		}

		newPath, err := step.Run(ctx, sc)
		if err != nil {
			p.fail(ctx, image, ph, fmt.Sprintf("step %s", step.Name()), err)
			for _, r := range ran {
				if r.path != "" {
					os.RemoveAll(r.path)
				}
				r.step.Cleanup(sc)
			}
			step.Cleanup(sc)
			return
		}
		ran = append(ran, ranStep{step: step, path: newPath})
		sc.Path = newPath
	}

	// Step 6: persist success.
	if sc.Path == "" {
		image.FolderPath = nil
	} else {
		image.FolderPath = &sc.Path
	}
	image.Status = ph.successStatus
	image.StatusMessage = ""
	if err := p.commit(ctx, image); err != nil {
		log.Printf("[pipeline] %s: commit success for %s: %v", ph.label, imageUID, err)
		return
	}
	// A step returning "" (Finish clearing folder_path) does not supersede
	// the output before it: the last non-empty path is kept.
	live := sc.Path
	for _, r := range ran {
		if r.path != "" {
			live = r.path
		}
	}
	for _, r := range ran {
		if r.path != "" && r.path != live {
			os.RemoveAll(r.path)
		}
		r.step.Cleanup(sc)
	}
	p.notify(ctx, image)
}

// fail implements §4.G step 5's failure branch: record the message,
// move to the phase's failed status, de-select the image so the batch
// can still converge, commit, and notify.
func (p *Pipeline) fail(ctx context.Context, image *model.Image, ph phaseSpec, reason string, cause error) {
	msg := reason
	if cause != nil {
		msg = fmt.Sprintf("Failed at %s due to %s", reason, cause)
	}
	image.Status = ph.failedStatus
	image.StatusMessage = msg
	image.Selected = false
	if err := p.commit(ctx, image); err != nil {
		log.Printf("[pipeline] %s: commit failure for %s: %v", ph.label, image.UID, err)
		return
	}
	p.notify(ctx, image)
}

func (p *Pipeline) commit(ctx context.Context, image *model.Image) error {
	return p.graph.UpdateItem(ctx, model.ItemFromImage(image))
}

func (p *Pipeline) notify(ctx context.Context, image *model.Image) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.NotifyImageStatus(ctx, image); err != nil {
		log.Printf("[pipeline] notify batch %s for image %s: %v", image.BatchUID, image.UID, err)
	}
}

func (p *Pipeline) projectForImage(ctx context.Context, image *model.Image) (*model.Project, error) {
	batch, err := p.graph.GetBatch(ctx, image.BatchUID)
	if err != nil {
		return nil, err
	}
	return p.graph.GetProject(ctx, batch.ProjectUID)
}
