package lifecycle

import "github.com/sectra/slidetap-core/internal/model"

// DeriveProjectStatus implements §4.F's project status derivation: all
// batches COMPLETED => project COMPLETED, otherwise IN_PROGRESS. A
// project already in a terminal state of its own (EXPORTING,
// EXPORT_COMPLETE, FAILED, DELETED) is never overridden by batch
// aggregation - those are only reachable through explicit export/fail/
// delete requests.
func DeriveProjectStatus(current model.ProjectStatus, batches []*model.Batch) model.ProjectStatus {
	switch current {
	case model.ProjectExporting, model.ProjectExportComplete, model.ProjectFailed, model.ProjectDeleted:
		return current
	}
	if allBatchesCompleted(batches) {
		return model.ProjectCompleted
	}
	return model.ProjectInProgress
}

func allBatchesCompleted(batches []*model.Batch) bool {
	if len(batches) == 0 {
		return false
	}
	for _, b := range batches {
		if b.Status == model.BatchDeleted {
			continue
		}
		if b.Status != model.BatchCompleted {
			return false
		}
	}
	return true
}

// AllowedExportStart reports whether export_project may start: the
// project must be COMPLETED (§4.F "Export requests require COMPLETED").
func AllowedExportStart(current model.ProjectStatus) bool {
	return current == model.ProjectCompleted
}
