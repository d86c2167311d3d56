// Package lifecycle implements the Lifecycle Coordinator (§4.F): the
// batch and project state machines, transition guards, and the
// aggregation rule that cascades per-image completion into batch
// status. It is the sole authorized mutator of Batch.Status and
// Project.Status; any disallowed transition returns
// model.ErrNotAllowedAction.
package lifecycle

import "github.com/sectra/slidetap-core/internal/model"

// Event names a batch lifecycle trigger, matching §4.F's transition
// table column.
type Event string

const (
	EventStartSearch         Event = "start_search"
	EventSearchComplete      Event = "search_complete"
	EventReset               Event = "reset"
	EventFail                Event = "fail"
	EventStartPreProcessing  Event = "start_pre_processing"
	EventAllImagesPreOK      Event = "all_images_pre_ok"
	EventStartPostProcessing Event = "start_post_processing"
	EventAllImagesPostOK     Event = "all_images_post_ok"
	EventComplete            Event = "complete"
	EventDelete              Event = "delete"
)

// batchTransitions is the explicit (non-wildcard) transition table of
// §4.F: from-status -> event -> to-status.
var batchTransitions = map[model.BatchStatus]map[Event]model.BatchStatus{
	model.BatchInitialized: {
		EventStartSearch: model.BatchMetadataSearching,
	},
	model.BatchMetadataSearching: {
		EventSearchComplete: model.BatchMetadataSearchComplete,
	},
	model.BatchMetadataSearchComplete: {
		EventReset:              model.BatchInitialized,
		EventStartPreProcessing: model.BatchImagePreProcessing,
	},
	model.BatchImagePreProcessing: {
		EventAllImagesPreOK: model.BatchImagePreProcessingComplete,
	},
	model.BatchImagePreProcessingComplete: {
		EventStartPostProcessing: model.BatchImagePostProcessing,
	},
	model.BatchImagePostProcessing: {
		EventAllImagesPostOK: model.BatchImagePostProcessingComplete,
	},
	model.BatchImagePostProcessingComplete: {
		EventComplete: model.BatchCompleted,
	},
}

// AllowedBatchTransition reports the destination status for (from,
// event), honoring the wildcard fail/delete events that apply from any
// status (§4.F "* -> fail -> FAILED", "* -> delete -> DELETED").
func AllowedBatchTransition(from model.BatchStatus, event Event) (model.BatchStatus, bool) {
	switch event {
	case EventFail:
		return model.BatchFailed, true
	case EventDelete:
		return model.BatchDeleted, true
	}
	if byEvent, ok := batchTransitions[from]; ok {
		if to, ok := byEvent[event]; ok {
			return to, true
		}
	}
	return "", false
}

// batchRestartSource is the only state a forced restart is legal from
// (§4.F: "Legal only from IMAGE_POST_PROCESSING"), and batchRestartTarget
// is what it resets to: the batch-level equivalent of "pre-processed",
// i.e. pre-processing's completed state.
const (
	batchRestartSource = model.BatchImagePostProcessing
	batchRestartTarget = model.BatchImagePreProcessingComplete
)

// AllowedBatchRestart reports whether a forced restart transition
// (post-processing -> pre-processed) is legal from the given status.
func AllowedBatchRestart(from model.BatchStatus) (model.BatchStatus, bool) {
	if from == batchRestartSource {
		return batchRestartTarget, true
	}
	return "", false
}

// aggregationPhase describes one pre/post-processing aggregation step:
// the batch status it fires from, the non-terminal image status that
// must be absent among selected images, and the batch status it
// advances to (§4.F "Aggregation rule", §5 "conditional update").
type aggregationPhase struct {
	fromBatchStatus   model.BatchStatus
	nonTerminalImages []model.ImageStatus
	toBatchStatus     model.BatchStatus
}

// preProcessingPhase's non-terminal set includes DOWNLOADING as well as
// PRE_PROCESSING: the pre-processing task folds image download in
// before dicomization (images reach this phase from NOT_STARTED or
// DOWNLOADED), so a batch must not be declared complete while any
// selected image is still mid-download.
var preProcessingPhase = aggregationPhase{
	fromBatchStatus:   model.BatchImagePreProcessing,
	nonTerminalImages: []model.ImageStatus{model.ImageDownloading, model.ImagePreProcessing},
	toBatchStatus:     model.BatchImagePreProcessingComplete,
}

var postProcessingPhase = aggregationPhase{
	fromBatchStatus:   model.BatchImagePostProcessing,
	nonTerminalImages: []model.ImageStatus{model.ImagePostProcessing},
	toBatchStatus:     model.BatchImagePostProcessingComplete,
}

// phaseForImageStatus selects which aggregation phase a newly-reached
// terminal image status belongs to, or false if newStatus is not a
// phase-terminal status (§4.F "when an image status changes to a
// terminal pre/post state").
func phaseForImageStatus(newStatus model.ImageStatus) (aggregationPhase, bool) {
	switch newStatus {
	case model.ImagePreProcessed, model.ImagePreProcessingFailed:
		return preProcessingPhase, true
	case model.ImagePostProcessed, model.ImagePostProcessingFailed:
		return postProcessingPhase, true
	default:
		return aggregationPhase{}, false
	}
}
