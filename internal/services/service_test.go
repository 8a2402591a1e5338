package services_test

import (
	"testing"
	"time"

	"github.com/fieldvault/revisiondb/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	// a fresh pool connection would see a fresh in-memory database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to access pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Revision{},
		&models.FieldData{},
		&models.File{},
		&models.DataFile{},
		&models.Field{},
		&models.Page{},
		&models.User{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func seedField(t *testing.T, db *gorm.DB, id uint64, name string) {
	t.Helper()
	if err := db.Create(&models.Field{ID: id, Name: name, Type: "FieldtypeText"}).Error; err != nil {
		t.Fatalf("Failed to seed field %s: %v", name, err)
	}
}

func seedPage(t *testing.T, db *gorm.DB, id, templateID uint64) {
	t.Helper()
	if err := db.Create(&models.Page{ID: id, TemplateID: templateID, Name: "page"}).Error; err != nil {
		t.Fatalf("Failed to seed page %d: %v", id, err)
	}
}

func seedUser(t *testing.T, db *gorm.DB, id uint64, name string) {
	t.Helper()
	if err := db.Create(&models.User{ID: id, Name: name}).Error; err != nil {
		t.Fatalf("Failed to seed user %s: %v", name, err)
	}
}

func seedRevision(t *testing.T, db *gorm.DB, pageID uint64, userID *uint64, username string, at time.Time) uint64 {
	t.Helper()
	revision := models.Revision{
		PageID:    pageID,
		UserID:    userID,
		Timestamp: at,
	}
	if username != "" {
		revision.Username = &username
	}
	if err := db.Create(&revision).Error; err != nil {
		t.Fatalf("Failed to seed revision: %v", err)
	}
	return revision.ID
}

func seedData(t *testing.T, db *gorm.DB, revisionID, fieldID uint64, property, value string) uint64 {
	t.Helper()
	row := models.FieldData{
		RevisionID: revisionID,
		FieldID:    fieldID,
		Property:   property,
		Kind:       models.KindPlain,
	}
	row.Data.JSON = []byte(`"` + value + `"`)
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("Failed to seed data row: %v", err)
	}
	return row.ID
}

func uintPtr(v uint64) *uint64 {
	return &v
}
