// data_service.go
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
	"encoding/json"
	"errors"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fieldvault/revisiondb/internal/models"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// Localized properties carry the host language id as a suffix, e.g. "data1023".
var localizedProperty = regexp.MustCompile(`^data([0-9]+)$`)

// PageDataRow is the uniform row shape returned by both reconstruction modes.
type PageDataRow struct {
	PageID     uint64      `json:"page_id"`
	RevisionID uint64      `json:"revision_id"`
	FieldID    uint64      `json:"field_id"`
	Property   string      `json:"property"`
	Data       models.JSON `json:"data"`
	FieldName  string      `json:"field_name"`
	Timestamp  time.Time   `json:"timestamp"`
	UserID     *uint64     `json:"user_id"`
	Username   *string     `json:"username"`
}

// GetForPages answers the reconstruction query for one or more pages.
//
// With a time or revision bound, the result holds, for every (page, field,
// property) combination ever written, the value from the latest revision at or
// before the bound: an inner query groups the max qualifying revision id per
// combination, and the outer query joins back to fetch that revision's data
// row. Without a bound, the full history of every combination is returned,
// newest data row first within each field.
//
// An empty page id set is an error, never a valid query with zero results.
func GetForPages(db *gorm.DB, pageIDs []uint64, at *time.Time, revisionID *uint64) ([]PageDataRow, error) {
	pageIDs = compactIDs(pageIDs)
	if len(pageIDs) == 0 {
		return nil, ErrInvalidInput
	}

	var rows []PageDataRow

	if at != nil || revisionID != nil {
		latest := db.Model(&models.FieldData{}).
			Select("MAX(r.id) AS id, r.page_id, data.field_id, data.property").
			Joins("INNER JOIN revisions r ON r.id = data.revisions_id").
			Where("r.page_id IN ?", pageIDs)
		if revisionID != nil {
			latest = latest.Where("r.id <= ?", *revisionID)
		}
		if at != nil {
			latest = latest.Where("r.timestamp <= ?", *at)
		}
		latest = latest.Group("r.page_id, data.field_id, data.property")

		err := db.Table("(?) AS latest", latest).
			Clauses(hints.CommentBefore("select", "revisiondb reconstruction")).
			Select("latest.page_id, latest.id AS revision_id, d.field_id, d.property, d.data, " +
				"f.name AS field_name, r.timestamp, r.user_id, r.username").
			Joins("INNER JOIN data d ON d.revisions_id = latest.id AND d.field_id = latest.field_id AND d.property = latest.property").
			Joins("INNER JOIN revisions r ON r.id = latest.id").
			Joins("INNER JOIN fields f ON f.id = d.field_id").
			Order("revision_id ASC").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		return rows, nil
	}

	err := db.Model(&models.FieldData{}).
		Clauses(hints.CommentBefore("select", "revisiondb reconstruction")).
		Select("r.page_id, r.id AS revision_id, data.field_id, data.property, data.data, " +
			"f.name AS field_name, r.timestamp, r.user_id, r.username").
		Joins("INNER JOIN revisions r ON r.id = data.revisions_id").
		Joins("INNER JOIN fields f ON f.id = data.field_id").
		Where("r.page_id IN ?", pageIDs).
		Order("r.page_id, data.field_id, data.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FieldRevisionRow is one stored value of a field at a specific revision.
type FieldRevisionRow struct {
	RevisionID uint64      `json:"revision_id"`
	PageID     uint64      `json:"page_id"`
	FieldID    uint64      `json:"field_id"`
	Property   string      `json:"property"`
	Kind       string      `json:"kind"`
	Data       models.JSON `json:"data"`
}

// GetForField fetches stored values for one field across a specific set of
// revisions, ordered by revision id ascending.
func GetForField(db *gorm.DB, field FieldSelector, revisionIDs []uint64) ([]FieldRevisionRow, error) {
	fieldID, err := ResolveFieldID(db, field)
	if err != nil {
		return nil, err
	}
	revisionIDs = compactIDs(revisionIDs)
	if len(revisionIDs) == 0 {
		return nil, ErrInvalidInput
	}

	var rows []FieldRevisionRow
	err = db.Model(&models.FieldData{}).
		Select("r.id AS revision_id, r.page_id, data.field_id, data.property, data.kind, data.data").
		Joins("INNER JOIN revisions r ON r.id = data.revisions_id").
		Where("data.field_id = ? AND r.id IN ?", fieldID, revisionIDs).
		Order("revision_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveForField stores one property map for a field under the given revision.
// A property name containing a separator marks file-linked data: the raw value
// is parsed as file metadata, the transient source-filename marker is stripped
// from the stored payload, and the file is registered with the file store
// keyed to the inserted data row. An unresolvable field is a silent no-op.
func SaveForField(db *gorm.DB, files *FileStore, field FieldSelector, fieldData map[string]*string, revisionID uint64) error {
	fieldID, err := ResolveFieldID(db, field)
	if err != nil {
		if errors.Is(err, ErrUnknownField) {
			return nil
		}
		return err
	}

	// deterministic insertion order
	properties := make([]string, 0, len(fieldData))
	for property := range fieldData {
		properties = append(properties, property)
	}
	sort.Strings(properties)

	for _, property := range properties {
		raw := fieldData[property]
		kind := classifyProperty(property)

		var payload models.JSON
		var fileRef *fileReference

		if kind == models.KindFile && raw != nil {
			metadata := make(map[string]interface{})
			if err := json.Unmarshal([]byte(*raw), &metadata); err != nil {
				return err
			}
			fileRef = &fileReference{}
			if filename, ok := metadata["filename"].(string); ok {
				fileRef.filename = filename
			}
			if source, ok := metadata[models.SourceFilenameKey].(string); ok {
				fileRef.sourceFilename = source
			}
			delete(metadata, models.SourceFilenameKey)
			encoded, err := json.Marshal(metadata)
			if err != nil {
				return err
			}
			payload.JSON = encoded
		} else if raw != nil {
			encoded, err := json.Marshal(*raw)
			if err != nil {
				return err
			}
			payload.JSON = encoded
		}

		row := models.FieldData{
			RevisionID: revisionID,
			FieldID:    fieldID,
			Property:   property,
			Kind:       kind,
			Data:       payload,
		}
		if err := db.Create(&row).Error; err != nil {
			return err
		}

		if fileRef != nil && files != nil {
			if _, err := files.Add(fileRef.filename, fileRef.sourceFilename, &row.ID); err != nil {
				// file registration failure leaves the data row valid; the
				// payload still carries the filename for later reconciliation
				log.Printf("Failed to register file %q for data row %d: %v", fileRef.filename, row.ID, err)
			}
		}
	}
	return nil
}

type fileReference struct {
	filename       string
	sourceFilename string
}

// classifyProperty decides the property kind once, at write time. A separator
// inside the name marks multipart (file-linked) data; a bare "data<N>" name is
// a per-language value.
func classifyProperty(property string) string {
	if strings.Index(property, models.FilePropertySep) > 0 {
		return models.KindFile
	}
	if match := localizedProperty.FindStringSubmatch(property); match != nil {
		return models.KindLocalized + models.LocalizedKindSep + match[1]
	}
	return models.KindPlain
}
