// Package pipeline implements the Image Pipeline (§4.G): an ordered,
// composable sequence of processing steps run per image, scheduled on
// two bounded worker queues, with retry, cancellation, and batch
// status aggregation via the Lifecycle Coordinator. Control-loop
// skeleton (stop/done channels, run-loop mutex discipline) retargeted
// from polling a remote API to draining bounded task queues.
package pipeline

import (
	"context"

	"github.com/sectra/slidetap-core/internal/model"
	"github.com/sectra/slidetap-core/internal/schema"
	"github.com/sectra/slidetap-core/internal/storage"
)

// StepContext is the (schema, storage, project, image, path) tuple
// §4.G hands to every step. Image is mutated in place by each step;
// Path is the step's working directory, threaded from one step's
// returned new_path to the next.
type StepContext struct {
	Registry *schema.Registry
	Storage  *storage.Storage
	Project  *model.Project
	Image    *model.Image
	Path     string

	// OriginalPath is the folder_path the image had before this phase's
	// steps began running - the Finish step's optional source deletion
	// target (§4.G "Finish: optional deletion of source folder").
	OriginalPath string

	// UsePseudonyms forwards the pipeline configuration's
	// pseudonymization flag (config.PipelineConfig.UsePseudonyms) to
	// Store/Thumbnail (§6 "store_image(..., use_pseudonym?)"; §9 Open
	// Question "treat as a storage-layer concern; the core forwards the
	// flag").
	UsePseudonyms bool
}

// Step is one named unit of the per-image pipeline (§4.G "Built-in
// steps"). Run returns the new working path on success; the caller
// (Task) persists sc.Image and advances Path to the returned value.
// Cleanup is called for every step that ran, after the phase finishes
// (success or failure), and must never itself fail (§4.G step 5 "cleanup
// of all steps (cleanup is infallible)").
type Step interface {
	Name() string
	Run(ctx context.Context, sc *StepContext) (newPath string, err error)
	Cleanup(sc *StepContext)
}
