package validate

// RelationCount describes one relation edge's declared cardinality
// bound and the observed count of selected counterparts, so the
// Validator can check it without depending on the Item Store directly
// (the caller - internal/lifecycle or internal/store - supplies the
// counts it already has on hand).
type RelationCount struct {
	Name          string
	Min           int
	Max           int // 0 means unbounded
	SelectedCount int
}

func (r RelationCount) ok() bool {
	if r.SelectedCount < r.Min {
		return false
	}
	if r.Max > 0 && r.SelectedCount > r.Max {
		return false
	}
	return true
}

// ValidateSampleRelations implements §4.E's Sample relation rule: for
// each child relation, selected child count in [min,max]; same for
// parents; for each image relation, at least one selected image.
func ValidateSampleRelations(childRelations, parentRelations []RelationCount, imageRelations []RelationCount) (bool, []string) {
	var invalid []string
	valid := true
	for _, r := range childRelations {
		if !r.ok() {
			valid = false
			invalid = append(invalid, "child:"+r.Name)
		}
	}
	for _, r := range parentRelations {
		if !r.ok() {
			valid = false
			invalid = append(invalid, "parent:"+r.Name)
		}
	}
	for _, r := range imageRelations {
		if r.SelectedCount < 1 {
			valid = false
			invalid = append(invalid, "image:"+r.Name)
		}
	}
	return valid, invalid
}

// ValidateImageRelations implements §4.E's Image rule: at least one
// sample attached.
func ValidateImageRelations(selectedSampleCount int) bool {
	return selectedSampleCount >= 1
}

// ValidateAnnotationRelation implements §4.E's Annotation rule: the
// referenced image is set and selected.
func ValidateAnnotationRelation(imageSet, imageSelected bool) bool {
	return imageSet && imageSelected
}

// ValidateObservationRelation implements §4.E's Observation rule:
// exactly one of {Image, Sample, Annotation} is set and selected, and
// that counterpart's schema is declared in the observation's schema.
func ValidateObservationRelation(targetSet, targetSelected, targetSchemaDeclared bool) bool {
	return targetSet && targetSelected && targetSchemaDeclared
}
