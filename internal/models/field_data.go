package models

// Property kind markers, decided once at write time and stored alongside the
// property name. Localized properties carry the language id as a suffix, e.g.
// "lang:1023".
const (
	KindPlain         = "plain"
	KindFile          = "file"
	KindLocalized     = "lang"
	LocalizedKindSep  = ":"
	FilePropertySep   = "."
	SourceFilenameKey = "_original_filename"
)

// FieldData holds one (revision, field, property) value record. Each row is
// owned by exactly one Revision and is deleted together with it. The payload
// is an opaque JSON document: plain values are stored as JSON strings, file
// properties as the file metadata object with the transient source-filename
// marker stripped.
type FieldData struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	RevisionID uint64 `gorm:"column:revisions_id;index;not null"`
	FieldID    uint64 `gorm:"column:field_id;index;not null"`
	Property   string `gorm:"size:255;not null"`
	Kind       string `gorm:"size:32;not null;default:plain"`
	Data       JSON   `gorm:"type:json"`
}

// TableName overrides the table name for FieldData
func (FieldData) TableName() string {
	return "data"
}

// DataFile joins stored files to the data rows that reference them. A single
// stored file may be referenced by many data rows (content-addressed dedup),
// so file deletion must consult this table for orphaning.
type DataFile struct {
	DataID  uint64 `gorm:"column:data_id;primaryKey;autoIncrement:false"`
	FilesID uint64 `gorm:"column:files_id;primaryKey;autoIncrement:false"`
}

// TableName overrides the table name for DataFile
func (DataFile) TableName() string {
	return "data_files"
}
