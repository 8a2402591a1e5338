// handlers_test.go
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

package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/fieldvault/revisiondb/internal/handlers"
	"github.com/fieldvault/revisiondb/internal/models"
	"github.com/fieldvault/revisiondb/internal/services"
	"github.com/fieldvault/revisiondb/tests/helpers"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	// a fresh pool connection would see a fresh in-memory database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to access sql.DB: %v", err)
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

func setupApp(t *testing.T, db *gorm.DB) *fiber.App {
	files, err := services.NewFileStore(db, t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}

	app := fiber.New()

	historyHandler := &handlers.HistoryHandler{DB: db}
	dataHandler := &handlers.DataHandler{DB: db, Files: files}
	revisionHandler := &handlers.RevisionHandler{DB: db}

	app.Get("/api/pages/state", dataHandler.GetPagesState)
	app.Get("/api/pages/revisions", historyHandler.GetPagesRevisions)
	app.Get("/api/pages/:page/history", historyHandler.GetPageHistory)
	app.Get("/api/pages/:page/revisions", historyHandler.GetPageRevisions)
	app.Get("/api/pages/:page/users", historyHandler.GetPageUsers)
	app.Post("/api/pages/:page/revisions", dataHandler.CreateRevision)
	app.Get("/api/fields/:field/data", dataHandler.GetFieldData)
	app.Get("/api/revisions/:id", revisionHandler.GetRevision)
	app.Patch("/api/revisions/:id", revisionHandler.UpdateRevision)
	app.Delete("/api/revisions/:id", revisionHandler.DeleteRevision)

	return app
}

// seedPageWithHistory creates a page with two revisions touching one field.
// Returns the two revision ids, oldest first.
func seedPageWithHistory(t *testing.T, db *gorm.DB) (uint64, uint64) {
	helpers.CreateTestField(t, db, 100, "body")
	helpers.CreateTestPage(t, db, 7477, 5, "about")
	helpers.CreateTestUser(t, db, 40, "alice")

	userID := uint64(40)
	base := time.Now().Add(-2 * time.Hour).UTC()

	r1 := helpers.CreateTestRevision(t, db, 7477, nil, &userID, "alice", base)
	helpers.CreateTestData(t, db, r1, 100, "data", "first draft")

	r2 := helpers.CreateTestRevision(t, db, 7477, &r1, &userID, "alice", base.Add(time.Hour))
	helpers.CreateTestData(t, db, r2, 100, "data", "second draft")

	return r1, r2
}

// TestGetPageHistory tests the GET /api/pages/:page/history endpoint
func TestGetPageHistory(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)
	seedPageWithHistory(t, db)

	req := httptest.NewRequest("GET", "/api/pages/7477/history?start=0&limit=10", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)

	var result struct {
		Rows []struct {
			ID       uint64 `json:"id"`
			Username string `json:"username"`
			Changes  string `json:"changes"`
		} `json:"rows"`
		Total int64 `json:"total"`
	}
	helpers.ParseJSON(t, resp, &result)

	if result.Total != 2 {
		t.Errorf("Expected total 2, got %d", result.Total)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(result.Rows))
	}
	// newest first
	if result.Rows[0].ID <= result.Rows[1].ID {
		t.Errorf("Expected newest revision first, got %d then %d",
			result.Rows[0].ID, result.Rows[1].ID)
	}
	if result.Rows[0].Username != "alice" {
		t.Errorf("Expected username 'alice', got %q", result.Rows[0].Username)
	}
}

// TestGetPageHistoryValidation tests bad pagination and page ids
func TestGetPageHistoryValidation(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)

	for _, url := range []string{
		"/api/pages/0/history",
		"/api/pages/7477/history?start=-1",
		"/api/pages/7477/history?limit=0",
	} {
		req := httptest.NewRequest("GET", url, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to execute request for %s: %v", url, err)
		}
		helpers.AssertStatus(t, resp, 400)
	}
}

// TestGetPageRevisionsNoContent tests the 204 response for a page without history
func TestGetPageRevisionsNoContent(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)

	req := httptest.NewRequest("GET", "/api/pages/9999/revisions", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertNoContent(t, resp)
}

// TestGetPagesState tests the GET /api/pages/state endpoint with a revision bound
func TestGetPagesState(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)
	r1, r2 := seedPageWithHistory(t, db)

	// bounded at the first revision only the first draft is visible
	req := httptest.NewRequest("GET", "/api/pages/state?pages=7477&revision="+itoa(r1), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)

	var rows []struct {
		PageID     uint64          `json:"page_id"`
		RevisionID uint64          `json:"revision_id"`
		FieldName  string          `json:"field_name"`
		Data       json.RawMessage `json:"data"`
	}
	helpers.ParseJSON(t, resp, &rows)

	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].RevisionID != r1 {
		t.Errorf("Expected revision %d, got %d", r1, rows[0].RevisionID)
	}
	if rows[0].FieldName != "body" {
		t.Errorf("Expected field 'body', got %q", rows[0].FieldName)
	}

	var value string
	if err := json.Unmarshal(rows[0].Data, &value); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if value != "first draft" {
		t.Errorf("Expected 'first draft', got %q", value)
	}

	// bounded at the newer revision its draft wins
	req = httptest.NewRequest("GET", "/api/pages/state?pages=7477&revision="+itoa(r2), nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)
	helpers.ParseJSON(t, resp, &rows)
	if len(rows) != 1 || rows[0].RevisionID != r2 {
		t.Errorf("Expected single row at revision %d, got %+v", r2, rows)
	}
}

// TestGetPagesStateRequiresPages tests that pages= is mandatory
func TestGetPagesStateRequiresPages(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)

	req := httptest.NewRequest("GET", "/api/pages/state", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 400)
}

// TestCreateRevision tests the POST /api/pages/:page/revisions endpoint
func TestCreateRevision(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)

	helpers.CreateTestField(t, db, 100, "body")
	helpers.CreateTestPage(t, db, 7477, 5, "about")
	helpers.CreateTestUser(t, db, 40, "alice")

	value := "hello world"
	reqBody := map[string]interface{}{
		"user_id":  40,
		"username": "alice",
		"comment":  "initial import",
		"fields": map[string]map[string]*string{
			"body": {"data": &value},
		},
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest("POST", "/api/pages/7477/revisions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)

	var result map[string]interface{}
	helpers.ParseJSON(t, resp, &result)

	if result["ok"] != true {
		t.Errorf("Expected ok=true, got %v", result["ok"])
	}
	if result["revision"] == nil || result["revision"] == "" {
		t.Error("Expected a revision id in the response")
	}
	if result["affectedRows"].(float64) != 1 {
		t.Errorf("Expected affectedRows 1, got %v", result["affectedRows"])
	}

	// the revision carries the comment and author snapshot
	var rev models.Revision
	if err := db.Order("id DESC").First(&rev).Error; err != nil {
		t.Fatalf("Failed to load revision: %v", err)
	}
	if rev.Comment == nil || *rev.Comment != "initial import" {
		t.Errorf("Expected comment 'initial import', got %v", rev.Comment)
	}
	if rev.Username == nil || *rev.Username != "alice" {
		t.Errorf("Expected username 'alice', got %v", rev.Username)
	}
}

// TestCreateRevisionValidation tests the input checks on revision creation
func TestCreateRevisionValidation(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)

	// no field payloads
	body, _ := json.Marshal(map[string]interface{}{"username": "alice"})
	req := httptest.NewRequest("POST", "/api/pages/7477/revisions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 400)

	// page id 0
	req = httptest.NewRequest("POST", "/api/pages/0/revisions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 400)
}

// TestRevisionLifecycle tests GET, PATCH and DELETE on /api/revisions/:id
func TestRevisionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)
	r1, _ := seedPageWithHistory(t, db)

	// GET
	req := httptest.NewRequest("GET", "/api/revisions/"+itoa(r1), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)

	var revision map[string]interface{}
	helpers.ParseJSON(t, resp, &revision)
	if revision["username"] != "alice" {
		t.Errorf("Expected username 'alice', got %v", revision["username"])
	}

	// PATCH the comment
	body, _ := json.Marshal(map[string]interface{}{"comment": "fixed typo"})
	req = httptest.NewRequest("PATCH", "/api/revisions/"+itoa(r1), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)

	// DELETE
	req = httptest.NewRequest("DELETE", "/api/revisions/"+itoa(r1), nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)

	// gone now
	req = httptest.NewRequest("GET", "/api/revisions/"+itoa(r1), nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 404)
}

// TestGetFieldDataByName tests the GET /api/fields/:field/data endpoint
func TestGetFieldDataByName(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)
	r1, r2 := seedPageWithHistory(t, db)

	req := httptest.NewRequest("GET",
		"/api/fields/body/data?revisions="+itoa(r1)+","+itoa(r2), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)

	var rows []struct {
		RevisionID uint64 `json:"revision_id"`
		Property   string `json:"property"`
	}
	helpers.ParseJSON(t, resp, &rows)

	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].RevisionID != r1 || rows[1].RevisionID != r2 {
		t.Errorf("Expected ascending revision order %d,%d, got %+v", r1, r2, rows)
	}

	// unknown field name
	req = httptest.NewRequest("GET", "/api/fields/nonexistent/data?revisions="+itoa(r1), nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 400)
}

// TestErrorResponseShape verifies the JSON error envelope
func TestErrorResponseShape(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)

	req := httptest.NewRequest("GET", "/api/revisions/424242", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 404)

	var result map[string]interface{}
	helpers.ParseJSON(t, resp, &result)

	if result["ok"] != false {
		t.Errorf("Expected ok=false, got %v", result["ok"])
	}
	if result["url"] != "/api/revisions/424242" {
		t.Errorf("Expected echoed url, got %v", result["url"])
	}
	if result["timestamp"] == nil {
		t.Error("Expected a timestamp in the error envelope")
	}
}

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}
