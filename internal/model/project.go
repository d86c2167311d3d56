package model

import "time"

// Batch is a unit of work within a project that advances through the
// image pipeline as a group (§3, §4.F).
type Batch struct {
	UID        UID         `json:"uid"`
	Name       string      `json:"name"`
	ProjectUID UID         `json:"projectUid"`
	Status     BatchStatus `json:"status"`
	Created    time.Time   `json:"created"`
	IsDefault  bool        `json:"isDefault"`
}

// Project is a long-lived container owning batches, a dataset, attached
// mapper groups and top-level attributes (§3).
type Project struct {
	UID              UID                   `json:"uid"`
	Name             string                `json:"name"`
	Status           ProjectStatus         `json:"status"`
	RootSchemaUID    UID                   `json:"rootSchemaUid"`
	SchemaUID        UID                   `json:"schemaUid"`
	DatasetUID       UID                   `json:"datasetUid"`
	DefaultBatchUID  UID                   `json:"defaultBatchUid"`
	Attributes       map[string]*Attribute `json:"attributes"`
	MapperGroupUIDs  map[UID]struct{}      `json:"mapperGroupUids"`
	Locked           bool                  `json:"locked"`
	Created          time.Time             `json:"created"`
}

// Dataset is the finalized, exported product of a project (§3).
type Dataset struct {
	UID             UID                   `json:"uid"`
	Name            string                `json:"name"`
	SchemaUID       UID                   `json:"schemaUid"`
	Attributes      map[string]*Attribute `json:"attributes"`
	ValidAttributes *bool                 `json:"validAttributes,omitempty"`
}
