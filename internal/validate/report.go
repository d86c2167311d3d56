package validate

import "github.com/sectra/slidetap-core/internal/model"

// ProjectValidation reports a project's overall validity and the
// attribute tags that failed (§4.E).
type ProjectValidation struct {
	Valid              bool     `json:"valid"`
	UID                model.UID `json:"uid"`
	NonValidAttributes []string `json:"nonValidAttributes"`
}

// DatasetValidation reports a dataset's overall validity.
type DatasetValidation struct {
	Valid              bool     `json:"valid"`
	UID                model.UID `json:"uid"`
	NonValidAttributes []string `json:"nonValidAttributes"`
}

// BatchValidation reports a batch's overall validity and the item uids
// that failed, across all items belonging to the batch.
type BatchValidation struct {
	Valid        bool        `json:"valid"`
	UID          model.UID    `json:"uid"`
	NonValidItems []model.UID `json:"nonValidItems"`
}
