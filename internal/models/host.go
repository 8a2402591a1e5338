package models

// The host CMS owns the fields, pages, and users tables. revisiondb only reads
// them: fields for name resolution in the reconstruction join, pages for
// template-scoped deletes, users for resolving authors that still exist.
// They are listed here so tests can seed them against an empty database.

// Field is a host platform field registry row.
type Field struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"uniqueIndex;size:255;not null"`
	Type string `gorm:"size:255"`
}

// TableName overrides the table name for Field
func (Field) TableName() string {
	return "fields"
}

// Page is a host platform page row.
type Page struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	TemplateID uint64 `gorm:"column:templates_id;index"`
	Name       string `gorm:"size:255"`
}

// TableName overrides the table name for Page
func (Page) TableName() string {
	return "pages"
}

// User is a host platform user row.
type User struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:255;not null"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
