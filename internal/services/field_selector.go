package services

import (
	"errors"
	"regexp"

	"github.com/fieldvault/revisiondb/internal/models"
	"gorm.io/gorm"
)

// Repeater items reference their base field with a numeric suffix
// (e.g. "body_repeater1234"); the suffix is stripped before lookup.
var repeaterSuffix = regexp.MustCompile(`_repeater[0-9]+$`)

// FieldSelector identifies a host platform field either by id or by name.
// An explicit ID wins over Name; a zero-value selector is unresolvable.
type FieldSelector struct {
	ID   uint64
	Name string
}

// ResolveFieldID resolves a selector to a field id against the host fields
// table. Every dependent operation treats ErrUnknownField as "cannot proceed"
// rather than silently matching zero rows.
func ResolveFieldID(db *gorm.DB, field FieldSelector) (uint64, error) {
	if field.ID != 0 {
		return field.ID, nil
	}
	if field.Name == "" {
		return 0, ErrUnknownField
	}
	name := repeaterSuffix.ReplaceAllString(field.Name, "")
	var row models.Field
	if err := db.Where("name = ?", name).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUnknownField
		}
		return 0, err
	}
	return row.ID, nil
}
