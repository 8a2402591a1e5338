// file_handler.go
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

package handlers

import (
	"github.com/fieldvault/revisiondb/internal/services"
	"github.com/fieldvault/revisiondb/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// FileHandler handles stored file metadata routes
type FileHandler struct {
	Files *services.FileStore
}

// GetFile handles GET /api/files/:id?keys=...
// @Summary Get stored file metadata
// @Description Get a projection of one stored file's metadata columns
// @Tags Files
// @Accept json
// @Produce json
// @Param id path int true "File ID"
// @Param keys query string false "Comma-separated column names"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files/{id} [get]
func (h *FileHandler) GetFile(c *fiber.Ctx) error {
	fileID := paramUint64(c, "id")
	if fileID == 0 {
		return utils.ErrorResponse(c, "Invalid file id", fiber.StatusBadRequest, "revisions.validation.input")
	}

	data, err := h.Files.GetData(fileID, parseKeyList(c, "keys"))
	if err != nil {
		return serviceErrorResponse(c, err, "getFile")
	}

	return c.Status(fiber.StatusOK).JSON(data)
}

// DeleteFile handles DELETE /api/files/:id
// @Summary Delete stored file metadata
// @Description Delete one stored file's metadata row and its data references
// @Tags Files
// @Accept json
// @Produce json
// @Param id path int true "File ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files/{id} [delete]
func (h *FileHandler) DeleteFile(c *fiber.Ctx) error {
	fileID := paramUint64(c, "id")
	if fileID == 0 {
		return utils.ErrorResponse(c, "Invalid file id", fiber.StatusBadRequest, "revisions.validation.input")
	}

	if err := h.Files.Delete(fileID); err != nil {
		return serviceErrorResponse(c, err, "deleteFile")
	}

	return utils.MutationSuccessResponse(c, 0, 1)
}
