// data_delete.go
//
// Field-level content versioning engine for web content management platforms
//
// This file is part of revisiondb.
// revisiondb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// revisiondb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with revisiondb.
// If not, see <https://www.gnu.org/licenses/>.

package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fieldvault/revisiondb/internal/models"
	"gorm.io/gorm"
)

// DeleteForTemplate removes stored data for every page using a template,
// optionally restricted to a subset of fields. When fields are given but none
// of them resolve, nothing is deleted: a partial resolution failure must not
// widen into an unscoped delete.
func DeleteForTemplate(db *gorm.DB, templateID uint64, fields []FieldSelector) error {
	if templateID == 0 {
		return ErrInvalidInput
	}

	pageScope := db.Model(&models.Page{}).Select("id").Where("templates_id = ?", templateID)
	revisionScope := db.Model(&models.Revision{}).Select("id").Where("page_id IN (?)", pageScope)

	if len(fields) > 0 {
		fieldIDs := make([]uint64, 0, len(fields))
		for _, field := range fields {
			fieldID, err := ResolveFieldID(db, field)
			if err != nil {
				if errors.Is(err, ErrUnknownField) {
					continue
				}
				return err
			}
			fieldIDs = append(fieldIDs, fieldID)
		}
		if len(fieldIDs) == 0 {
			return ErrUnknownField
		}
		return db.Where("field_id IN ? AND revisions_id IN (?)", fieldIDs, revisionScope).
			Delete(&models.FieldData{}).Error
	}

	// no field restriction: the revisions go too
	return db.Transaction(func(tx *gorm.DB) error {
		pages := tx.Model(&models.Page{}).Select("id").Where("templates_id = ?", templateID)
		revisions := tx.Model(&models.Revision{}).Select("id").Where("page_id IN (?)", pages)
		if err := tx.Where("revisions_id IN (?)", revisions).
			Delete(&models.FieldData{}).Error; err != nil {
			return err
		}
		pages = tx.Model(&models.Page{}).Select("id").Where("templates_id = ?", templateID)
		return tx.Where("page_id IN (?)", pages).
			Delete(&models.Revision{}).Error
	})
}

// DeleteForField removes all stored data rows for one field across every page.
func DeleteForField(db *gorm.DB, field FieldSelector) error {
	fieldID, err := ResolveFieldID(db, field)
	if err != nil {
		return err
	}
	return db.Where("field_id = ?", fieldID).Delete(&models.FieldData{}).Error
}

// DeleteForPage removes a page's revisions together with their data rows.
func DeleteForPage(db *gorm.DB, pageID uint64) error {
	if pageID == 0 {
		return ErrInvalidInput
	}
	return db.Transaction(func(tx *gorm.DB) error {
		revisionScope := tx.Model(&models.Revision{}).Select("id").Where("page_id = ?", pageID)
		if err := tx.Where("revisions_id IN (?)", revisionScope).
			Delete(&models.FieldData{}).Error; err != nil {
			return err
		}
		return tx.Where("page_id = ?", pageID).
			Delete(&models.Revision{}).Error
	})
}

// Purge deletes revisions older than the given relative age, cascading to
// their data rows, and returns the number of pruned revisions. An empty or
// malformed age is rejected without deleting anything: a bad argument must
// never purge everything.
func Purge(db *gorm.DB, maxAge string) (int64, error) {
	age, err := ParseMaxAge(maxAge)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-age)

	var pruned int64
	err = db.Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&models.Revision{}).Select("id").Where("timestamp < ?", cutoff)
		if err := tx.Where("revisions_id IN (?)", expired).
			Delete(&models.FieldData{}).Error; err != nil {
			return err
		}
		result := tx.Where("timestamp < ?", cutoff).Delete(&models.Revision{})
		if result.Error != nil {
			return result.Error
		}
		pruned = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return pruned, nil
}

// ParseMaxAge parses a relative age expression. Plain Go durations are
// accepted, plus day and week suffixes ("90d", "4w") since retention windows
// are usually expressed in days rather than hours.
func ParseMaxAge(maxAge string) (time.Duration, error) {
	maxAge = strings.TrimSpace(maxAge)
	if maxAge == "" {
		return 0, ErrInvalidInput
	}

	for suffix, unit := range map[string]time.Duration{
		"d": 24 * time.Hour,
		"w": 7 * 24 * time.Hour,
	} {
		if strings.HasSuffix(maxAge, suffix) {
			count, err := strconv.Atoi(strings.TrimSuffix(maxAge, suffix))
			if err != nil || count <= 0 {
				return 0, fmt.Errorf("%w: bad age expression %q", ErrInvalidInput, maxAge)
			}
			return time.Duration(count) * unit, nil
		}
	}

	age, err := time.ParseDuration(maxAge)
	if err != nil || age <= 0 {
		return 0, fmt.Errorf("%w: bad age expression %q", ErrInvalidInput, maxAge)
	}
	return age, nil
}
