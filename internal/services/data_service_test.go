package services_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fieldvault/revisiondb/internal/models"
	"github.com/fieldvault/revisiondb/internal/services"
)

func decodePayload(t *testing.T, data models.JSON) string {
	t.Helper()
	var value string
	if err := json.Unmarshal(data.JSON, &value); err != nil {
		t.Fatalf("Failed to decode payload %s: %v", string(data.JSON), err)
	}
	return value
}

// Two revisions where the second touches only one of two properties: the
// reconstruction picks the newest value per property, not per revision.
func TestGetForPagesLatestPerProperty(t *testing.T) {
	db := setupTestDB(t)
	seedField(t, db, 100, "body")
	seedField(t, db, 101, "title")

	now := time.Now()
	r1 := seedRevision(t, db, 7477, uintPtr(1), "alice", now)
	r2 := seedRevision(t, db, 7477, uintPtr(1), "alice", now.Add(time.Hour))
	seedData(t, db, r1, 100, "data", "first body")
	seedData(t, db, r1, 101, "data", "first title")
	seedData(t, db, r2, 100, "data", "second body")

	rows, err := services.GetForPages(db, []uint64{7477}, nil, &r2)
	if err != nil {
		t.Fatalf("GetForPages failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	values := map[string]string{}
	for _, row := range rows {
		values[row.FieldName] = decodePayload(t, row.Data)
		if row.RevisionID > r2 {
			t.Errorf("Row from revision %d exceeds bound %d", row.RevisionID, r2)
		}
	}
	if values["body"] != "second body" {
		t.Errorf("body should come from revision %d, got %q", r2, values["body"])
	}
	if values["title"] != "first title" {
		t.Errorf("title should survive from revision %d, got %q", r1, values["title"])
	}
}

func TestGetForPagesBoundedByRevision(t *testing.T) {
	db := setupTestDB(t)
	seedField(t, db, 100, "body")

	now := time.Now()
	r1 := seedRevision(t, db, 7477, nil, "", now)
	r2 := seedRevision(t, db, 7477, nil, "", now.Add(time.Hour))
	seedData(t, db, r1, 100, "data", "old")
	seedData(t, db, r2, 100, "data", "new")

	rows, err := services.GetForPages(db, []uint64{7477}, nil, &r1)
	if err != nil {
		t.Fatalf("GetForPages failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].RevisionID != r1 || decodePayload(t, rows[0].Data) != "old" {
		t.Errorf("Bounded query must never return a later revision: %+v", rows[0])
	}
}

func TestGetForPagesBoundedByTime(t *testing.T) {
	db := setupTestDB(t)
	seedField(t, db, 100, "body")

	now := time.Now()
	r1 := seedRevision(t, db, 8, nil, "", now.Add(-2*time.Hour))
	r2 := seedRevision(t, db, 8, nil, "", now)
	seedData(t, db, r1, 100, "data", "old")
	seedData(t, db, r2, 100, "data", "new")

	bound := now.Add(-time.Hour)
	rows, err := services.GetForPages(db, []uint64{8}, &bound, nil)
	if err != nil {
		t.Fatalf("GetForPages failed: %v", err)
	}
	if len(rows) != 1 || rows[0].RevisionID != r1 {
		t.Fatalf("Expected only the pre-bound revision, got %+v", rows)
	}
}

func TestGetForPagesUnboundedFullHistory(t *testing.T) {
	db := setupTestDB(t)
	seedField(t, db, 100, "body")

	now := time.Now()
	r1 := seedRevision(t, db, 9, nil, "", now)
	r2 := seedRevision(t, db, 9, nil, "", now.Add(time.Minute))
	seedData(t, db, r1, 100, "data", "old")
	seedData(t, db, r2, 100, "data", "new")

	rows, err := services.GetForPages(db, []uint64{9}, nil, nil)
	if err != nil {
		t.Fatalf("GetForPages failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Unbounded query returns the full history, got %d rows", len(rows))
	}
	// newest data row first within the field
	if rows[0].RevisionID != r2 || rows[1].RevisionID != r1 {
		t.Errorf("Unexpected order: %+v", rows)
	}
}

func TestGetForPagesEmptySet(t *testing.T) {
	db := setupTestDB(t)

	if _, err := services.GetForPages(db, nil, nil, nil); !errors.Is(err, services.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := services.GetForPages(db, []uint64{0}, nil, nil); !errors.Is(err, services.ErrInvalidInput) {
		t.Errorf("Zero ids are dropped; expected ErrInvalidInput, got %v", err)
	}
}

func TestGetForField(t *testing.T) {
	db := setupTestDB(t)
	seedField(t, db, 100, "body")
	seedField(t, db, 101, "title")

	now := time.Now()
	r1 := seedRevision(t, db, 10, nil, "", now)
	r2 := seedRevision(t, db, 10, nil, "", now.Add(time.Minute))
	seedData(t, db, r1, 100, "data", "a")
	seedData(t, db, r2, 100, "data", "b")
	seedData(t, db, r2, 101, "data", "other field")

	rows, err := services.GetForField(db, services.FieldSelector{Name: "body"}, []uint64{r1, r2})
	if err != nil {
		t.Fatalf("GetForField failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].RevisionID != r1 || rows[1].RevisionID != r2 {
		t.Errorf("Expected ascending revision order: %+v", rows)
	}

	if _, err := services.GetForField(db, services.FieldSelector{Name: "body"}, nil); !errors.Is(err, services.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty revision set, got %v", err)
	}
	if _, err := services.GetForField(db, services.FieldSelector{Name: "nope"}, []uint64{r1}); !errors.Is(err, services.ErrUnknownField) {
		t.Errorf("Expected ErrUnknownField, got %v", err)
	}
}

func TestResolveFieldID(t *testing.T) {
	db := setupTestDB(t)
	seedField(t, db, 100, "body")

	// numeric id wins without a lookup
	id, err := services.ResolveFieldID(db, services.FieldSelector{ID: 55})
	if err != nil || id != 55 {
		t.Errorf("Expected id passthrough, got %d, %v", id, err)
	}

	id, err = services.ResolveFieldID(db, services.FieldSelector{Name: "body"})
	if err != nil || id != 100 {
		t.Errorf("Expected lookup by name, got %d, %v", id, err)
	}

	// repeater suffix is stripped before the lookup
	id, err = services.ResolveFieldID(db, services.FieldSelector{Name: "body_repeater1234"})
	if err != nil || id != 100 {
		t.Errorf("Expected repeater suffix stripped, got %d, %v", id, err)
	}

	if _, err := services.ResolveFieldID(db, services.FieldSelector{Name: "missing"}); !errors.Is(err, services.ErrUnknownField) {
		t.Errorf("Expected ErrUnknownField, got %v", err)
	}
}

func TestSaveForFieldPlain(t *testing.T) {
	db := setupTestDB(t)
	seedField(t, db, 100, "body")
	revisionID := seedRevision(t, db, 11, nil, "", time.Now())

	value := "hello world"
	err := services.SaveForField(db, nil, services.FieldSelector{Name: "body"}, map[string]*string{
		"data":  &value,
		"empty": nil,
	}, revisionID)
	if err != nil {
		t.Fatalf("SaveForField failed: %v", err)
	}

	var rows []models.FieldData
	if err := db.Order("property").Find(&rows).Error; err != nil {
		t.Fatalf("Failed to load data rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].Property != "data" || rows[0].Kind != models.KindPlain {
		t.Errorf("Unexpected row: %+v", rows[0])
	}
	if decodePayload(t, rows[0].Data) != "hello world" {
		t.Errorf("Plain values are stored as JSON strings, got %s", string(rows[0].Data.JSON))
	}
	// nil raw value stores an empty payload
	if !rows[1].Data.IsNull() {
		t.Errorf("Expected empty payload for nil value, got %s", string(rows[1].Data.JSON))
	}
}

func TestSaveForFieldUnknownFieldIsNoop(t *testing.T) {
	db := setupTestDB(t)
	revisionID := seedRevision(t, db, 11, nil, "", time.Now())

	value := "x"
	err := services.SaveForField(db, nil, services.FieldSelector{Name: "untracked"}, map[string]*string{"data": &value}, revisionID)
	if err != nil {
		t.Fatalf("Unknown field must be a silent no-op, got %v", err)
	}

	var count int64
	db.Model(&models.FieldData{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no rows stored, got %d", count)
	}
}

func TestSaveForFieldLocalizedKind(t *testing.T) {
	db := setupTestDB(t)
	seedField(t, db, 100, "body")
	revisionID := seedRevision(t, db, 11, nil, "", time.Now())

	def := "default"
	fin := "oletus"
	err := services.SaveForField(db, nil, services.FieldSelector{Name: "body"}, map[string]*string{
		"data":     &def,
		"data1023": &fin,
	}, revisionID)
	if err != nil {
		t.Fatalf("SaveForField failed: %v", err)
	}

	var rows []models.FieldData
	db.Order("property").Find(&rows)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].Kind != models.KindPlain {
		t.Errorf("Default language value is plain, got %q", rows[0].Kind)
	}
	if rows[1].Kind != "lang:1023" {
		t.Errorf("Expected localized kind lang:1023, got %q", rows[1].Kind)
	}
}

func TestSaveForFieldFileKindStripsSourceMarker(t *testing.T) {
	db := setupTestDB(t)
	seedField(t, db, 100, "images")
	revisionID := seedRevision(t, db, 11, nil, "", time.Now())

	metadata := `{"filename":"abc123.photo.jpg","description":"a photo","_original_filename":"/tmp/upload/photo.jpg"}`
	err := services.SaveForField(db, nil, services.FieldSelector{Name: "images"}, map[string]*string{
		"abc123.photo.jpg": &metadata,
	}, revisionID)
	if err != nil {
		t.Fatalf("SaveForField failed: %v", err)
	}

	var row models.FieldData
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("Failed to load row: %v", err)
	}
	if row.Kind != models.KindFile {
		t.Errorf("Expected file kind, got %q", row.Kind)
	}

	var stored map[string]interface{}
	if err := json.Unmarshal(row.Data.JSON, &stored); err != nil {
		t.Fatalf("Failed to decode stored metadata: %v", err)
	}
	if _, ok := stored[models.SourceFilenameKey]; ok {
		t.Error("Transient source filename marker must be stripped from storage")
	}
	if stored["filename"] != "abc123.photo.jpg" || stored["description"] != "a photo" {
		t.Errorf("Remaining metadata must survive: %v", stored)
	}
}
