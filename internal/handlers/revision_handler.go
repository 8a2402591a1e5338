// revision_handler.go
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
	"gorm.io/gorm"
)

// RevisionHandler handles single-revision routes
type RevisionHandler struct {
	DB *gorm.DB
}

// GetRevision handles GET /api/revisions/:id?keys=...
// @Summary Get revision metadata
// @Description Get a projection of one revision's metadata columns
// @Tags Revisions
// @Accept json
// @Produce json
// @Param id path int true "Revision ID"
// @Param keys query string false "Comma-separated column names"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /revisions/{id} [get]
func (h *RevisionHandler) GetRevision(c *fiber.Ctx) error {
	revisionID := paramUint64(c, "id")
	if revisionID == 0 {
		return utils.ErrorResponse(c, "Invalid revision id", fiber.StatusBadRequest, "revisions.validation.input")
	}

	data, err := services.GetRevisionData(h.DB, revisionID, parseKeyList(c, "keys"))
	if err != nil {
		return serviceErrorResponse(c, err, "getRevision")
	}

	return c.Status(fiber.StatusOK).JSON(data)
}

// UpdateRevision handles PATCH /api/revisions/:id
// @Summary Update revision metadata
// @Description Update allow-listed revision metadata columns such as the comment
// @Tags Revisions
// @Accept json
// @Produce json
// @Param id path int true "Revision ID"
// @Param body body object true "Columns to update"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /revisions/{id} [patch]
func (h *RevisionHandler) UpdateRevision(c *fiber.Ctx) error {
	revisionID := paramUint64(c, "id")
	if revisionID == 0 {
		return utils.ErrorResponse(c, "Invalid revision id", fiber.StatusBadRequest, "revisions.validation.input")
	}

	var body map[string]interface{}
	if err := c.BodyParser(&body); err != nil || len(body) == 0 {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "revisions.validation.input")
	}

	applied, err := services.UpdateRevision(h.DB, revisionID, body)
	if err != nil {
		return serviceErrorResponse(c, err, "updateRevision")
	}

	return c.Status(fiber.StatusOK).JSON(applied)
}

// DeleteRevision handles DELETE /api/revisions/:id
// @Summary Delete a revision
// @Description Delete one revision and its stored payloads
// @Tags Revisions
// @Accept json
// @Produce json
// @Param id path int true "Revision ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /revisions/{id} [delete]
func (h *RevisionHandler) DeleteRevision(c *fiber.Ctx) error {
	revisionID := paramUint64(c, "id")
	if revisionID == 0 {
		return utils.ErrorResponse(c, "Invalid revision id", fiber.StatusBadRequest, "revisions.validation.input")
	}

	if err := services.DeleteRevision(h.DB, revisionID); err != nil {
		return serviceErrorResponse(c, err, "deleteRevision")
	}

	return utils.MutationSuccessResponse(c, revisionID, 1)
}
