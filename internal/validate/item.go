package validate

import "github.com/sectra/slidetap-core/internal/model"

// ValidateItemAttributes sets item.ValidAttributes from the declared
// attribute set on itemSchema and returns the tags that failed.
func (v *Validator) ValidateItemAttributes(item *model.ItemBase, itemSchema *model.ItemSchema) []string {
	valid, invalid := v.ValidateAttributeSet(item.Attributes, itemSchema.Attributes)
	item.ValidAttributes = &valid
	return invalid
}

// SetRelationValidity sets item.ValidRelations directly from a
// relation-check result computed by the caller (internal/lifecycle),
// which has the graph context (store-provided counts) the Validator
// itself does not hold.
func SetRelationValidity(item *model.ItemBase, valid bool) {
	item.ValidRelations = &valid
}
