// data.go
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

package helpers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fieldvault/revisiondb/internal/models"
	"gorm.io/gorm"
)

// CreateTestField seeds a host platform field
func CreateTestField(t *testing.T, db *gorm.DB, id uint64, name string) {
	field := models.Field{ID: id, Name: name, Type: "FieldtypeText"}
	if err := db.Create(&field).Error; err != nil {
		t.Fatalf("Failed to create field: %v", err)
	}
}

// CreateTestPage seeds a host platform page
func CreateTestPage(t *testing.T, db *gorm.DB, id, templateID uint64, name string) {
	page := models.Page{ID: id, TemplateID: templateID, Name: name}
	if err := db.Create(&page).Error; err != nil {
		t.Fatalf("Failed to create page: %v", err)
	}
}

// CreateTestUser seeds a host platform user
func CreateTestUser(t *testing.T, db *gorm.DB, id uint64, name string) {
	user := models.User{ID: id, Name: name}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
}

// CreateTestRevision inserts a revision row directly, bypassing the parent
// chain backfill, for tests that need a known shape.
func CreateTestRevision(t *testing.T, db *gorm.DB, pageID uint64, parent *uint64, userID *uint64, username string, at time.Time) uint64 {
	revision := models.Revision{
		Parent:    parent,
		PageID:    pageID,
		UserID:    userID,
		Timestamp: at,
	}
	if username != "" {
		revision.Username = &username
	}
	if err := db.Create(&revision).Error; err != nil {
		t.Fatalf("Failed to create revision: %v", err)
	}
	return revision.ID
}

// CreateTestData inserts one stored property payload for a revision
func CreateTestData(t *testing.T, db *gorm.DB, revisionID, fieldID uint64, property, value string) uint64 {
	payload, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	row := models.FieldData{
		RevisionID: revisionID,
		FieldID:    fieldID,
		Property:   property,
		Kind:       models.KindPlain,
	}
	row.Data.JSON = payload
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("Failed to create data row: %v", err)
	}
	return row.ID
}
