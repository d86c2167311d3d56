package model

// ImageFile names one file on disk belonging to an Image item (§3).
type ImageFile struct {
	UID      UID    `json:"uid"`
	Filename string `json:"filename"`
}

// ImageFormat names the on-disk/binary format of an image's files.
type ImageFormat string

const (
	ImageFormatUnknown  ImageFormat = ""
	ImageFormatDicomWSI ImageFormat = "DICOM_WSI"
	ImageFormatOtherWSI ImageFormat = "OTHER_WSI"
)

// ItemBase carries the fields common to every Item variant (§3).
type ItemBase struct {
	UID              UID      `json:"uid"`
	Identifier       string   `json:"identifier"`
	Name             string   `json:"name"`
	Pseudonym        *string  `json:"pseudonym,omitempty"`
	Selected         bool     `json:"selected"`
	ValidAttributes  *bool    `json:"validAttributes,omitempty"`
	ValidRelations   *bool    `json:"validRelations,omitempty"`
	Locked           bool     `json:"locked"`
	SchemaUID        UID      `json:"schemaUid"`
	DatasetUID       UID      `json:"datasetUid"`
	BatchUID         UID      `json:"batchUid"`
	Attributes        map[string]*Attribute `json:"attributes"`
	PrivateAttributes map[string]*Attribute `json:"-"`
}

// Valid implements invariant (v): valid == valid_attributes && valid_relations.
func (b *ItemBase) Valid() bool {
	return b.ValidAttributes != nil && *b.ValidAttributes &&
		b.ValidRelations != nil && *b.ValidRelations
}

// Sample is a node in the curated sample DAG (specimen/block/slide/...).
type Sample struct {
	ItemBase
	ParentUIDs      map[UID]struct{} `json:"parentUids"`
	ChildUIDs       map[UID]struct{} `json:"childUids"`
	ImageUIDs       map[UID]struct{} `json:"imageUids"`
	ObservationUIDs map[UID]struct{} `json:"observationUids"`
}

// Image is a whole-slide image attached to one or more samples.
type Image struct {
	ItemBase
	Status        ImageStatus `json:"status"`
	StatusMessage string      `json:"statusMessage"`
	FolderPath    *string     `json:"folderPath,omitempty"`
	Files         []ImageFile `json:"files,omitempty"`
	ThumbnailPath *string     `json:"thumbnailPath,omitempty"`
	Format        ImageFormat `json:"format"`
	SampleUIDs    map[UID]struct{} `json:"sampleUids"`
}

// Annotation references exactly one Image and a set of Observations.
type Annotation struct {
	ItemBase
	ImageUID        UID              `json:"imageUid"`
	ObservationUIDs map[UID]struct{} `json:"observationUids"`
}

// ObservationTarget tags which single counterpart an Observation
// attaches to (§3: exactly one of {Image, Sample, Annotation}).
type ObservationTarget string

const (
	ObservesImage      ObservationTarget = "image"
	ObservesSample     ObservationTarget = "sample"
	ObservesAnnotation ObservationTarget = "annotation"
)

// Observation attaches metadata to exactly one of {Image, Sample,
// Annotation}.
type Observation struct {
	ItemBase
	Target   ObservationTarget `json:"target"`
	TargetUID UID              `json:"targetUid"`
}

// Item is a tagged union over the four item kinds, used wherever a
// component (Item Store, Lifecycle Coordinator, Image Pipeline) needs
// to hold or pass "any item" without knowing its kind up front.
type Item struct {
	Kind        ItemKind
	Sample      *Sample
	Image       *Image
	Annotation  *Annotation
	Observation *Observation
}

// Base returns the common ItemBase fields regardless of variant.
func (it *Item) Base() *ItemBase {
	switch it.Kind {
	case ItemSample:
		return &it.Sample.ItemBase
	case ItemImage:
		return &it.Image.ItemBase
	case ItemAnnotation:
		return &it.Annotation.ItemBase
	case ItemObservation:
		return &it.Observation.ItemBase
	default:
		return nil
	}
}

// ItemFromSample, ItemFromImage, ItemFromAnnotation and
// ItemFromObservation lift a concrete item into the tagged union.
func ItemFromSample(s *Sample) *Item           { return &Item{Kind: ItemSample, Sample: s} }
func ItemFromImage(i *Image) *Item             { return &Item{Kind: ItemImage, Image: i} }
func ItemFromAnnotation(a *Annotation) *Item   { return &Item{Kind: ItemAnnotation, Annotation: a} }
func ItemFromObservation(o *Observation) *Item { return &Item{Kind: ItemObservation, Observation: o} }

func newSetOf(uids ...UID) map[UID]struct{} {
	m := make(map[UID]struct{}, len(uids))
	for _, u := range uids {
		m[u] = struct{}{}
	}
	return m
}

// NewSample constructs an empty Sample with initialized relation sets.
func NewSample(base ItemBase) *Sample {
	return &Sample{
		ItemBase:        base,
		ParentUIDs:      newSetOf(),
		ChildUIDs:       newSetOf(),
		ImageUIDs:       newSetOf(),
		ObservationUIDs: newSetOf(),
	}
}

// NewImage constructs an empty Image with initialized relation sets.
func NewImage(base ItemBase) *Image {
	return &Image{
		ItemBase:   base,
		Status:     ImageNotStarted,
		SampleUIDs: newSetOf(),
	}
}

// NewAnnotation constructs an empty Annotation.
func NewAnnotation(base ItemBase, imageUID UID) *Annotation {
	return &Annotation{ItemBase: base, ImageUID: imageUID, ObservationUIDs: newSetOf()}
}

// NewObservation constructs an Observation targeting the given counterpart.
func NewObservation(base ItemBase, target ObservationTarget, targetUID UID) *Observation {
	return &Observation{ItemBase: base, Target: target, TargetUID: targetUID}
}
