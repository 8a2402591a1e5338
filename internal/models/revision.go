// revision.go
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

package models

import (
	"time"
)

// Revision represents one edit event for a page. Revision ids are process-wide
// and monotonic. Per page, the Parent pointers form a singly linked chain with
// the newest revision pointing at the next-older one; the oldest revision in
// the chain has Parent = NULL.
//
// Username is denormalized on purpose: the author name is snapshotted at write
// time so page history survives user deletion.
type Revision struct {
	ID        uint64  `gorm:"primaryKey;autoIncrement"`
	Parent    *uint64 `gorm:"default:null"`
	PageID    uint64  `gorm:"column:page_id;index;not null"`
	UserID    *uint64 `gorm:"column:user_id"`
	Username  *string `gorm:"size:255"`
	Timestamp time.Time
	Comment   *string `gorm:"size:255"`
}

// TableName overrides the table name for Revision
func (Revision) TableName() string {
	return "revisions"
}
