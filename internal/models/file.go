package models

// File represents one stored file in the content-addressed file store. The
// filename is derived from a content hash, so identical content maps to the
// same row. The unique index doubles as the concurrency guard for racing
// add operations: an insert conflict means "already stored, re-fetch the id".
type File struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	Filename string `gorm:"uniqueIndex;size:255;not null"`
	MimeType string `gorm:"size:255"`
	Size     uint64 `gorm:"not null;default:0"`
}

// TableName overrides the table name for File
func (File) TableName() string {
	return "files"
}
