// file_service.go
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
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fieldvault/revisiondb/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columns of the files table that callers may read.
var fileColumns = []string{"id", "filename", "mime_type", "size"}

// FileStore is content-addressed storage for binary field values. Files are
// stored under a two-hex-character prefix subdirectory derived from their
// hash-based filename to bound directory fan-out, with metadata rows in the
// files table and references from data rows through the data_files join table.
type FileStore struct {
	db   *gorm.DB
	path string
}

// NewFileStore creates a file store rooted at path. The root directory is
// created up front; failing that is an environment misconfiguration the
// caller cannot recover from.
func NewFileStore(db *gorm.DB, path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path is required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create file store directory %s: %w", path, err)
	}
	return &FileStore{db: db, path: path}, nil
}

// Path returns the file store root directory.
func (s *FileStore) Path() string {
	return s.path
}

// AddFile stores a file under a name derived from its content hash:
// "<sha1 of content>.<basename>". Identical content therefore maps to the
// same stored file and the same database id.
func (s *FileStore) AddFile(sourcePath string, dataID *uint64) (uint64, error) {
	hash, err := hashFile(sourcePath)
	if err != nil {
		return 0, ErrInvalidInput
	}
	filename := hash + "." + filepath.Base(sourcePath)
	return s.Add(filename, sourcePath, dataID)
}

// Add stores sourcePath under the given destination filename and returns the
// database id of the stored file. If a file with the same destination name
// already exists, the existing id is returned without re-copying. When dataID
// is given, a data_files join row links the stored file to that data row.
func (s *FileStore) Add(filename, sourcePath string, dataID *uint64) (uint64, error) {
	if filename == "" || sourcePath == "" {
		return 0, ErrInvalidInput
	}
	if info, err := os.Stat(sourcePath); err != nil || info.IsDir() {
		return 0, ErrInvalidInput
	}

	dir := filepath.Join(s.path, shardPrefix(filename))
	dest := filepath.Join(dir, filename)

	// existing file: reuse the stored id instead of copying again
	if _, err := os.Stat(dest); err == nil {
		if fileID, err := s.idByFilename(filename); err == nil {
			if dataID != nil {
				if err := s.link(*dataID, fileID); err != nil {
					return 0, err
				}
			}
			return fileID, nil
		} else if !errors.Is(err, ErrNotFound) {
			return 0, err
		}
	}

	// the variations subdirectory is created up front since derivative
	// assets may need it later on
	if err := os.MkdirAll(filepath.Join(dir, "variations"), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create file store shard %s: %w", dir, err)
	}

	if err := copyStaged(sourcePath, dest); err != nil {
		return 0, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return 0, err
	}

	file := models.File{
		Filename: filename,
		MimeType: detectMimeType(dest),
		Size:     uint64(info.Size()),
	}
	// a concurrent add may have inserted the same filename between our stat
	// and this insert; the unique index turns that into a no-op and we
	// re-fetch the winner's id
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&file).Error; err != nil {
		return 0, err
	}
	fileID := file.ID
	if fileID == 0 {
		fileID, err = s.idByFilename(filename)
		if err != nil {
			return 0, err
		}
	}

	if dataID != nil {
		if err := s.link(*dataID, fileID); err != nil {
			return 0, err
		}
	}
	return fileID, nil
}

// GetData returns an allow-listed projection of one stored file's metadata.
func (s *FileStore) GetData(fileID uint64, keys []string) (map[string]interface{}, error) {
	if len(keys) == 0 {
		keys = fileColumns
	} else {
		filtered := make([]string, 0, len(keys))
		for _, key := range keys {
			for _, column := range fileColumns {
				if key == column {
					filtered = append(filtered, key)
					break
				}
			}
		}
		if len(filtered) == 0 {
			return nil, ErrInvalidInput
		}
		keys = filtered
	}

	result := make(map[string]interface{})
	err := s.db.Model(&models.File{}).
		Select(keys).
		Where("id = ?", fileID).
		Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return result, nil
}

// Delete removes a stored file's metadata row and any join rows referencing
// it. The on-disk file is left alone: deduplication means another data row may
// still point at the same content, so reclaiming disk space is a separate
// cleanup concern.
func (s *FileStore) Delete(fileID uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("files_id = ?", fileID).
			Delete(&models.DataFile{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", fileID).Delete(&models.File{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ReferenceCount reports how many data rows still reference a stored file.
func (s *FileStore) ReferenceCount(fileID uint64) (int64, error) {
	var count int64
	err := s.db.Model(&models.DataFile{}).
		Where("files_id = ?", fileID).
		Count(&count).Error
	return count, err
}

func (s *FileStore) idByFilename(filename string) (uint64, error) {
	var file models.File
	err := s.db.Select("id").Where("filename = ?", filename).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return file.ID, nil
}

func (s *FileStore) link(dataID, fileID uint64) error {
	join := models.DataFile{DataID: dataID, FilesID: fileID}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&join).Error
}

// shardPrefix bounds directory fan-out with the first two characters of the
// hash-derived filename.
func shardPrefix(filename string) string {
	if len(filename) < 2 {
		return filename
	}
	return filename[:2]
}

// copyStaged copies source to dest through a uniquely named temp file in the
// destination directory, then renames it into place.
func copyStaged(sourcePath, dest string) error {
	in, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dest + "." + uuid.NewString() + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

// detectMimeType falls back through extension mapping and content sniffing;
// it never fails, returning an empty string when neither strategy applies.
func detectMimeType(path string) string {
	if mimeType := mime.TypeByExtension(filepath.Ext(path)); mimeType != "" {
		return mimeType
	}

	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return ""
	}
	return http.DetectContentType(buffer[:n])
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha1.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
