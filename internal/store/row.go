package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sectra/slidetap-core/internal/model"
)

func parseUID(s string) (model.UID, error) {
	return uuid.Parse(s)
}

func encodeImageFiles(files []model.ImageFile) (string, error) {
	data, err := json.Marshal(files)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeImageFiles(raw string) ([]model.ImageFile, error) {
	if raw == "" {
		return nil, nil
	}
	var files []model.ImageFile
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil, fmt.Errorf("decode image files: %w", err)
	}
	return files, nil
}

// itemRow is the flat on-disk representation of one items row,
// discriminated by kind; fields that don't apply to a kind are left
// at their zero value / NULL.
type itemRow struct {
	uid        string
	kind       string
	schemaUID  string
	datasetUID string
	batchUID   string
	identifier string
	name       string

	pseudonym       sql.NullString
	selected        bool
	locked          bool
	validAttributes sql.NullBool
	validRelations  sql.NullBool
	attributes      string

	status               sql.NullString
	statusMessage        sql.NullString
	folderPath           sql.NullString
	files                sql.NullString
	thumbnailPath        sql.NullString
	format               sql.NullString
	annotationImageUID   sql.NullString
	observationTarget    sql.NullString
	observationTargetUID sql.NullString
}

func toRow(item *model.Item, s *model.ItemSchema) (itemRow, error) {
	base := item.Base()
	attrJSON, err := encodeAttributeSet(base.Attributes, s.Attributes)
	if err != nil {
		return itemRow{}, err
	}
	r := itemRow{
		uid:        base.UID.String(),
		kind:       string(item.Kind),
		schemaUID:  base.SchemaUID.String(),
		datasetUID: base.DatasetUID.String(),
		batchUID:   base.BatchUID.String(),
		identifier: base.Identifier,
		name:       base.Name,
		selected:   base.Selected,
		locked:     base.Locked,
		attributes: attrJSON,
	}
	if base.Pseudonym != nil {
		r.pseudonym = sql.NullString{String: *base.Pseudonym, Valid: true}
	}
	if base.ValidAttributes != nil {
		r.validAttributes = sql.NullBool{Bool: *base.ValidAttributes, Valid: true}
	}
	if base.ValidRelations != nil {
		r.validRelations = sql.NullBool{Bool: *base.ValidRelations, Valid: true}
	}

	switch item.Kind {
	case model.ItemImage:
		img := item.Image
		r.status = sql.NullString{String: string(img.Status), Valid: true}
		r.statusMessage = sql.NullString{String: img.StatusMessage, Valid: true}
		if img.FolderPath != nil {
			r.folderPath = sql.NullString{String: *img.FolderPath, Valid: true}
		}
		if img.ThumbnailPath != nil {
			r.thumbnailPath = sql.NullString{String: *img.ThumbnailPath, Valid: true}
		}
		r.format = sql.NullString{String: string(img.Format), Valid: true}
		filesJSON, err := encodeImageFiles(img.Files)
		if err != nil {
			return itemRow{}, err
		}
		r.files = sql.NullString{String: filesJSON, Valid: true}
	case model.ItemAnnotation:
		r.annotationImageUID = sql.NullString{String: item.Annotation.ImageUID.String(), Valid: true}
	case model.ItemObservation:
		obs := item.Observation
		r.observationTarget = sql.NullString{String: string(obs.Target), Valid: true}
		r.observationTargetUID = sql.NullString{String: obs.TargetUID.String(), Valid: true}
	}
	return r, nil
}

func (g *Graph) fromRow(ctx context.Context, r itemRow) (*model.Item, error) {
	schemaUID, err := parseUID(r.schemaUID)
	if err != nil {
		return nil, err
	}
	s, err := g.itemSchema(schemaUID)
	if err != nil {
		return nil, err
	}
	attrs, err := decodeAttributeSet(r.attributes, s.Attributes)
	if err != nil {
		return nil, err
	}

	uid, err := parseUID(r.uid)
	if err != nil {
		return nil, err
	}
	datasetUID, err := parseUID(r.datasetUID)
	if err != nil {
		return nil, err
	}
	batchUID, err := parseUID(r.batchUID)
	if err != nil {
		return nil, err
	}

	base := model.ItemBase{
		UID:        uid,
		Identifier: r.identifier,
		Name:       r.name,
		Selected:   r.selected,
		Locked:     r.locked,
		SchemaUID:  schemaUID,
		DatasetUID: datasetUID,
		BatchUID:   batchUID,
		Attributes: attrs,
	}
	if r.pseudonym.Valid {
		base.Pseudonym = &r.pseudonym.String
	}
	if r.validAttributes.Valid {
		base.ValidAttributes = &r.validAttributes.Bool
	}
	if r.validRelations.Valid {
		base.ValidRelations = &r.validRelations.Bool
	}

	switch model.ItemKind(r.kind) {
	case model.ItemSample:
		sample := model.NewSample(base)
		if err := g.fillSampleRelations(ctx, sample); err != nil {
			return nil, err
		}
		return model.ItemFromSample(sample), nil
	case model.ItemImage:
		image := model.NewImage(base)
		if r.status.Valid {
			image.Status = model.ImageStatus(r.status.String)
		}
		image.StatusMessage = r.statusMessage.String
		if r.folderPath.Valid {
			image.FolderPath = &r.folderPath.String
		}
		if r.thumbnailPath.Valid {
			image.ThumbnailPath = &r.thumbnailPath.String
		}
		image.Format = model.ImageFormat(r.format.String)
		if r.files.Valid {
			files, err := decodeImageFiles(r.files.String)
			if err != nil {
				return nil, err
			}
			image.Files = files
		}
		if err := g.fillImageRelations(ctx, image); err != nil {
			return nil, err
		}
		return model.ItemFromImage(image), nil
	case model.ItemAnnotation:
		imageUID := parseOptionalUID(r.annotationImageUID)
		annotation := model.NewAnnotation(base, imageUID)
		return model.ItemFromAnnotation(annotation), nil
	case model.ItemObservation:
		targetUID := parseOptionalUID(r.observationTargetUID)
		observation := model.NewObservation(base, model.ObservationTarget(r.observationTarget.String), targetUID)
		return model.ItemFromObservation(observation), nil
	default:
		return nil, fmt.Errorf("%w: unknown item kind %q", model.ErrInvariantViolation, r.kind)
	}
}
