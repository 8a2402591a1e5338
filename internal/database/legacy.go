package database

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/fieldvault/revisiondb/internal/models"
	"gorm.io/gorm"
)

// Legacy table names from the predecessor single-table schema.
const (
	legacyTable     = "version_control_for_text_fields"
	legacyDataTable = "version_control_for_text_fields__data"
)

type legacyRow struct {
	ID        uint64    `gorm:"column:id"`
	PageID    uint64    `gorm:"column:pages_id"`
	FieldID   uint64    `gorm:"column:fields_id"`
	UserID    *uint64   `gorm:"column:users_id"`
	Username  *string   `gorm:"column:username"`
	Timestamp time.Time `gorm:"column:timestamp"`
}

type legacyDataRow struct {
	Property string  `gorm:"column:property"`
	Data     *string `gorm:"column:data"`
}

// ImportLegacy migrates rows from the predecessor single-table schema into the
// revisions/data tables, preserving original timestamps and usernames and
// establishing parent chains in insertion order. It is a no-op when the legacy
// tables are absent or when revisions already exist (re-running an import over
// migrated data would double every revision).
func ImportLegacy(db *gorm.DB) error {
	m := db.Migrator()
	if !m.HasTable(legacyTable) || !m.HasTable(legacyDataTable) {
		return nil
	}

	var existing int64
	if err := db.Model(&models.Revision{}).Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to inspect revisions table: %w", err)
	}
	if existing > 0 {
		log.Printf("Legacy import skipped: revisions table already populated (%d rows)", existing)
		return nil
	}

	var rows []legacyRow
	if err := db.Table(legacyTable).Order("id ASC").Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to read legacy table: %w", err)
	}

	imported := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		// one chain head per page, linked in insertion order
		lastByPage := make(map[uint64]uint64)

		for _, row := range rows {
			var parent *uint64
			if prev, ok := lastByPage[row.PageID]; ok {
				p := prev
				parent = &p
			}

			revision := models.Revision{
				Parent:    parent,
				PageID:    row.PageID,
				UserID:    row.UserID,
				Username:  row.Username,
				Timestamp: row.Timestamp,
			}
			if err := tx.Create(&revision).Error; err != nil {
				return fmt.Errorf("failed to import legacy revision %d: %w", row.ID, err)
			}
			lastByPage[row.PageID] = revision.ID

			var dataRows []legacyDataRow
			if err := tx.Table(legacyDataTable).
				Where(legacyTable+"_id = ?", row.ID).
				Find(&dataRows).Error; err != nil {
				return fmt.Errorf("failed to read legacy data rows for %d: %w", row.ID, err)
			}

			for _, dataRow := range dataRows {
				var payload models.JSON
				if dataRow.Data != nil {
					encoded, err := json.Marshal(*dataRow.Data)
					if err != nil {
						return fmt.Errorf("failed to encode legacy data row for %d: %w", row.ID, err)
					}
					payload.JSON = encoded
				}
				fieldData := models.FieldData{
					RevisionID: revision.ID,
					FieldID:    row.FieldID,
					Property:   dataRow.Property,
					Kind:       models.KindPlain,
					Data:       payload,
				}
				if err := tx.Create(&fieldData).Error; err != nil {
					return fmt.Errorf("failed to import legacy data row for %d: %w", row.ID, err)
				}
			}

			imported++
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Imported %d legacy revisions", imported)
	return nil
}
