// revision_service.go
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
	"sort"
	"strings"
	"time"

	"github.com/fieldvault/revisiondb/internal/models"
	"gorm.io/gorm"
)

// Maximum stored comment length; longer values are silently truncated.
const commentMaxLen = 255

// Columns of the revisions table that callers may read or write directly.
var revisionColumns = []string{"id", "parent", "page_id", "user_id", "username", "timestamp", "comment"}

// AddRevisionInput carries the caller-supplied parts of a new revision.
// Parent is normally left nil and derived from the page's existing history.
type AddRevisionInput struct {
	PageID   uint64
	UserID   *uint64
	Username string
	Parent   *uint64
}

// AddRevision inserts a new revision for a page and links it into the page's
// parent chain. The parent backfill is a separate statement because the new id
// is not known before insertion; both statements run inside one transaction so
// overlapping saves cannot interleave between them.
func AddRevision(db *gorm.DB, in AddRevisionInput) (uint64, error) {
	if in.PageID == 0 {
		return 0, ErrInvalidInput
	}

	var revisionID uint64
	err := db.Transaction(func(tx *gorm.DB) error {
		revision := models.Revision{
			Parent:    in.Parent,
			PageID:    in.PageID,
			UserID:    in.UserID,
			Timestamp: time.Now(),
		}
		if in.Username != "" {
			username := in.Username
			revision.Username = &username
		}
		if err := tx.Create(&revision).Error; err != nil {
			return err
		}

		if in.Parent == nil {
			var prev models.Revision
			err := tx.Select("id").
				Where("page_id = ? AND id < ?", in.PageID, revision.ID).
				Order("id DESC").
				First(&prev).Error
			if err == nil {
				if err := tx.Model(&models.Revision{}).
					Where("id = ?", revision.ID).
					Update("parent", prev.ID).Error; err != nil {
					return err
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		revisionID = revision.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return revisionID, nil
}

// UpdateRevision applies a partial update restricted to the allow-listed
// revision columns. Unrecognized keys are dropped; comment values are
// truncated to 255 characters before storage. Returns the stored values.
func UpdateRevision(db *gorm.DB, revisionID uint64, data map[string]interface{}) (map[string]interface{}, error) {
	updates := make(map[string]interface{})
	for key, value := range data {
		if key == "id" || !isRevisionColumn(key) {
			continue
		}
		if key == "comment" {
			if comment, ok := value.(string); ok {
				value = truncateComment(comment)
			}
		}
		updates[key] = value
	}
	if len(updates) == 0 {
		return nil, ErrInvalidInput
	}

	result := db.Model(&models.Revision{}).Where("id = ?", revisionID).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return updates, nil
}

// GetRevisionData returns an allow-listed projection of one revision row.
// Unknown requested keys are dropped; an all-unknown key set cannot be
// answered at all.
func GetRevisionData(db *gorm.DB, revisionID uint64, keys []string) (map[string]interface{}, error) {
	if len(keys) == 0 {
		keys = revisionColumns
	} else {
		filtered := make([]string, 0, len(keys))
		for _, key := range keys {
			if isRevisionColumn(key) {
				filtered = append(filtered, key)
			}
		}
		if len(filtered) == 0 {
			return nil, ErrInvalidInput
		}
		keys = filtered
	}

	result := make(map[string]interface{})
	err := db.Model(&models.Revision{}).
		Select(keys).
		Where("id = ?", revisionID).
		Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return result, nil
}

// PageUser is one distinct author of a page's history.
type PageUser struct {
	Username string `json:"username"`
	UserID   uint64 `json:"user_id"`
}

// GetPageUsers returns the distinct authors that have ever edited the page,
// sorted by username. Authors are resolved against the live users table when
// possible; for deleted users the denormalized username snapshot is used.
func GetPageUsers(db *gorm.DB, pageID uint64) ([]PageUser, error) {
	if pageID == 0 {
		return []PageUser{}, nil
	}

	var userIDs []uint64
	if err := db.Model(&models.Revision{}).
		Distinct("user_id").
		Where("page_id = ? AND user_id IS NOT NULL", pageID).
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, err
	}

	users := make([]PageUser, 0, len(userIDs))
	for _, userID := range userIDs {
		var user models.User
		err := db.Where("id = ?", userID).First(&user).Error
		if err == nil {
			users = append(users, PageUser{Username: user.Name, UserID: userID})
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// user no longer exists; fall back to the snapshotted username
		var revision models.Revision
		err = db.Select("username").
			Where("user_id = ?", userID).
			Take(&revision).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		if revision.Username != nil {
			users = append(users, PageUser{Username: *revision.Username, UserID: userID})
		}
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}

// GetCurrentRevisionID returns the most recent revision id for the page.
func GetCurrentRevisionID(db *gorm.DB, pageID uint64) (uint64, error) {
	if pageID == 0 {
		return 0, ErrInvalidInput
	}
	var revision models.Revision
	err := db.Select("id").
		Where("page_id = ?", pageID).
		Order("id DESC").
		First(&revision).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return revision.ID, nil
}

// RevisionStamp pairs a revision id with its creation instant.
type RevisionStamp struct {
	ID        uint64    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// GetPageRevisionIDs lists the page's revision ids with timestamps, newest
// first, optionally capped at limit.
func GetPageRevisionIDs(db *gorm.DB, pageID uint64, limit int) ([]RevisionStamp, error) {
	if pageID == 0 {
		return nil, ErrInvalidInput
	}
	query := db.Model(&models.Revision{}).
		Select("id", "timestamp").
		Where("page_id = ?", pageID).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var stamps []RevisionStamp
	if err := query.Scan(&stamps).Error; err != nil {
		return nil, err
	}
	return stamps, nil
}

// HistoryFilters narrows a history listing; currently by author.
type HistoryFilters struct {
	UserID *uint64
}

// HistoryRow is one revision in a page's history listing. Changes aggregates
// the distinct (field, property) pairs touched by the revision into
// comma-joined "field_id:property" tokens.
type HistoryRow struct {
	ID        uint64    `json:"id"`
	UserID    *uint64   `json:"user_id"`
	Username  *string   `json:"username"`
	Changes   string    `json:"changes"`
	Timestamp time.Time `json:"timestamp"`
	Comment   *string   `json:"comment"`
}

// HistoryResult is one page of history rows plus the filter-aware total.
type HistoryResult struct {
	Rows  []HistoryRow `json:"rows"`
	Total int64        `json:"total"`
}

// GetPageHistory returns a paginated, author-filterable history listing for a
// page, ordered by timestamp descending with revision id as tie-break. When
// start points past the end, it is clamped so the final page is still fully
// populated. The changes summary is aggregated in Go rather than with
// GROUP_CONCAT so the query stays portable across all supported drivers.
func GetPageHistory(db *gorm.DB, pageID uint64, start, limit int, filters HistoryFilters) (HistoryResult, error) {
	result := HistoryResult{Rows: []HistoryRow{}}
	if pageID == 0 {
		return result, nil
	}

	matching := func() *gorm.DB {
		query := db.Model(&models.Revision{}).Where("page_id = ?", pageID)
		if filters.UserID != nil {
			query = query.Where("user_id = ?", *filters.UserID)
		}
		return query
	}

	if err := matching().Count(&result.Total).Error; err != nil {
		return result, err
	}
	if result.Total == 0 {
		return result, nil
	}

	if limit > 0 && int64(start) > result.Total {
		start = int(result.Total) - limit
		if start < 0 {
			start = 0
		}
	}

	listing := matching().Order("timestamp DESC, id DESC")
	if limit > 0 {
		listing = listing.Offset(start).Limit(limit)
	}
	var revisions []models.Revision
	if err := listing.Find(&revisions).Error; err != nil {
		return result, err
	}

	revisionIDs := make([]uint64, len(revisions))
	for i, revision := range revisions {
		revisionIDs[i] = revision.ID
	}
	changes, err := changesByRevision(db, revisionIDs)
	if err != nil {
		return result, err
	}

	for _, revision := range revisions {
		result.Rows = append(result.Rows, HistoryRow{
			ID:        revision.ID,
			UserID:    revision.UserID,
			Username:  revision.Username,
			Changes:   changes[revision.ID],
			Timestamp: revision.Timestamp,
			Comment:   revision.Comment,
		})
	}
	return result, nil
}

// changesByRevision aggregates the distinct (field, property) pairs touched by
// each listed revision into one comma-joined summary per revision.
func changesByRevision(db *gorm.DB, revisionIDs []uint64) (map[uint64]string, error) {
	changes := make(map[uint64]string, len(revisionIDs))
	if len(revisionIDs) == 0 {
		return changes, nil
	}

	type touchedPair struct {
		RevisionID uint64 `gorm:"column:revisions_id"`
		FieldID    uint64 `gorm:"column:field_id"`
		Property   string `gorm:"column:property"`
	}
	var pairs []touchedPair
	err := db.Model(&models.FieldData{}).
		Distinct("revisions_id", "field_id", "property").
		Where("revisions_id IN ?", revisionIDs).
		Order("revisions_id, field_id, property").
		Scan(&pairs).Error
	if err != nil {
		return nil, err
	}

	tokens := make(map[uint64][]string, len(revisionIDs))
	for _, pair := range pairs {
		tokens[pair.RevisionID] = append(tokens[pair.RevisionID],
			fmt.Sprintf("%d:%s", pair.FieldID, pair.Property))
	}
	for revisionID, revisionTokens := range tokens {
		changes[revisionID] = strings.Join(revisionTokens, ",")
	}
	return changes, nil
}

// RevisionTouch is one (revision, field) touch event, used for cross-page
// auditing.
type RevisionTouch struct {
	PageID     uint64    `json:"page_id"`
	RevisionID uint64    `json:"revision_id"`
	FieldID    uint64    `json:"field_id"`
	FieldName  string    `json:"field_name"`
	Timestamp  time.Time `json:"timestamp"`
	UserID     *uint64   `json:"user_id"`
	Username   *string   `json:"username"`
}

// GetRevisionsForPages lists every (revision, field) touch across the given
// pages, newest revision first within each field. An empty page id set is an
// error, not an empty result.
func GetRevisionsForPages(db *gorm.DB, pageIDs []uint64) ([]RevisionTouch, error) {
	pageIDs = compactIDs(pageIDs)
	if len(pageIDs) == 0 {
		return nil, ErrInvalidInput
	}

	var touches []RevisionTouch
	err := db.Model(&models.FieldData{}).
		Distinct("r.page_id", "r.id AS revision_id", "data.field_id", "f.name AS field_name",
			"r.timestamp", "r.user_id", "r.username").
		Joins("INNER JOIN revisions r ON r.id = data.revisions_id").
		Joins("INNER JOIN fields f ON f.id = data.field_id").
		Where("r.page_id IN ?", pageIDs).
		Order("r.page_id, data.field_id, revision_id DESC").
		Scan(&touches).Error
	if err != nil {
		return nil, err
	}
	return touches, nil
}

// DeleteRevision removes a revision and all of its field-data rows in one
// transaction. Data rows of other revisions are never touched.
func DeleteRevision(db *gorm.DB, revisionID uint64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("revisions_id = ?", revisionID).
			Delete(&models.FieldData{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", revisionID).Delete(&models.Revision{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func isRevisionColumn(key string) bool {
	for _, column := range revisionColumns {
		if key == column {
			return true
		}
	}
	return false
}

func truncateComment(comment string) string {
	runes := []rune(comment)
	if len(runes) > commentMaxLen {
		return string(runes[:commentMaxLen])
	}
	return comment
}

// compactIDs drops zero values and duplicates while keeping input order.
func compactIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	compact := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		compact = append(compact, id)
	}
	return compact
}
