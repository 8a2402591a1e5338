// Prints the DDL that AutoMigrate produces for the versioning models, for
// keeping data/initdb in sync with the gorm schema.
package main

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fieldvault/revisiondb/internal/models"
)

func main() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		log.Fatal(err)
	}

	if err := db.AutoMigrate(
		&models.Revision{},
		&models.FieldData{},
		&models.File{},
		&models.DataFile{},
		&models.Field{},
		&models.Page{},
		&models.User{},
	); err != nil {
		log.Fatal(err)
	}

	var tables []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name").Scan(&tables)

	for _, table := range tables {
		var ddl string
		db.Raw("SELECT sql FROM sqlite_master WHERE name = ?", table).Scan(&ddl)
		fmt.Printf("\n=== Table: %s ===\n%s\n", table, ddl)
	}
}
