// data_handler.go
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
	"sort"
	"strconv"
	"time"

	"github.com/fieldvault/revisiondb/internal/services"
	"github.com/fieldvault/revisiondb/internal/types"
	"github.com/fieldvault/revisiondb/internal/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// DataHandler handles field data routes
type DataHandler struct {
	DB    *gorm.DB
	Files *services.FileStore

	// PurgeMaxAge is the configured retention window used when a purge
	// request does not supply its own.
	PurgeMaxAge string
}

// GetPagesState handles GET /api/pages/state?pages=1,2&revision=&time=
// @Summary Reconstruct page field data
// @Description Reconstruct the latest field data per (page, field, property), optionally bounded by a revision id or a point in time
// @Tags Data
// @Accept json
// @Produce json
// @Param pages query string true "Comma-separated page IDs"
// @Param revision query int false "Upper bound revision ID"
// @Param time query string false "Upper bound instant (RFC3339 or unix seconds)"
// @Success 200 {array} services.PageDataRow
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /pages/state [get]
func (h *DataHandler) GetPagesState(c *fiber.Ctx) error {
	pageIDs := parseIDList(c, "pages")
	if len(pageIDs) == 0 {
		return utils.ErrorResponse(c, "At least one page id is required", fiber.StatusBadRequest, "revisions.validation.input")
	}

	var revisionID *uint64
	if raw := c.Query("revision"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return utils.ErrorResponse(c, "Invalid revision id", fiber.StatusBadRequest, "revisions.validation.input")
		}
		revisionID = &id
	}

	var at *time.Time
	if raw := c.Query("time"); raw != "" {
		instant, err := parseInstant(raw)
		if err != nil {
			return utils.ErrorResponse(c, "Invalid time bound", fiber.StatusBadRequest, "revisions.validation.input")
		}
		at = &instant
	}

	rows, err := services.GetForPages(h.DB, pageIDs, at, revisionID)
	if err != nil {
		return serviceErrorResponse(c, err, "getPagesState")
	}
	if len(rows) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.Status(fiber.StatusOK).JSON(rows)
}

// CreateRevision handles POST /api/pages/:page/revisions
// @Summary Record a new revision
// @Description Record a new revision for a page with per-field property payloads
// @Tags Data
// @Accept json
// @Produce json
// @Param page path int true "Page ID"
// @Param body body object true "Revision author, optional comment, and field payloads"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /pages/{page}/revisions [post]
func (h *DataHandler) CreateRevision(c *fiber.Ctx) error {
	pageID := paramUint64(c, "page")
	if pageID == 0 {
		return utils.ErrorResponse(c, "Invalid page id", fiber.StatusBadRequest, "revisions.validation.input")
	}

	var body struct {
		UserID   *types.FlexUint64             `json:"user_id"`
		Username string                        `json:"username"`
		Comment  string                        `json:"comment"`
		Fields   map[string]map[string]*string `json:"fields"`
	}

	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "revisions.validation.input")
	}
	if len(body.Fields) == 0 {
		return utils.ErrorResponse(c, "At least one field payload is required", fiber.StatusBadRequest, "revisions.validation.input")
	}

	input := services.AddRevisionInput{
		PageID:   pageID,
		Username: body.Username,
	}
	if body.UserID != nil {
		userID := body.UserID.Uint64()
		input.UserID = &userID
	}

	revisionID, err := services.AddRevision(h.DB, input)
	if err != nil {
		return serviceErrorResponse(c, err, "createRevision")
	}

	if body.Comment != "" {
		if _, err := services.UpdateRevision(h.DB, revisionID, map[string]interface{}{"comment": body.Comment}); err != nil {
			return serviceErrorResponse(c, err, "createRevision")
		}
	}

	// deterministic field order so a failure is reproducible
	names := make([]string, 0, len(body.Fields))
	for name := range body.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var affected int64
	for _, name := range names {
		field := services.FieldSelector{Name: name}
		if id, err := strconv.ParseUint(name, 10, 64); err == nil {
			field = services.FieldSelector{ID: id}
		}
		if err := services.SaveForField(h.DB, h.Files, field, body.Fields[name], revisionID); err != nil {
			return serviceErrorResponse(c, err, "createRevision")
		}
		affected += int64(len(body.Fields[name]))
	}

	return utils.MutationSuccessResponse(c, revisionID, affected)
}

// GetFieldData handles GET /api/fields/:field/data?revisions=1,2
// @Summary Get stored data for a field
// @Description Get stored property payloads for a field, optionally restricted to given revisions
// @Tags Data
// @Accept json
// @Produce json
// @Param field path string true "Field ID or name"
// @Param revisions query string false "Comma-separated revision IDs"
// @Success 200 {array} services.FieldRevisionRow
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /fields/{field}/data [get]
func (h *DataHandler) GetFieldData(c *fiber.Ctx) error {
	field := fieldSelectorParam(c, "field")
	revisionIDs := parseIDList(c, "revisions")

	rows, err := services.GetForField(h.DB, field, revisionIDs)
	if err != nil {
		return serviceErrorResponse(c, err, "getFieldData")
	}
	if len(rows) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.Status(fiber.StatusOK).JSON(rows)
}

// DeleteTemplateData handles DELETE /api/templates/:id/data?fields=...
// @Summary Delete stored data for a template
// @Description Delete stored revision data for every page using a template, optionally restricted to given fields
// @Tags Data
// @Accept json
// @Produce json
// @Param id path int true "Template ID"
// @Param fields query string false "Comma-separated field IDs or names"
// @Param body body object false "Optional field restriction, single name or array"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /templates/{id}/data [delete]
func (h *DataHandler) DeleteTemplateData(c *fiber.Ctx) error {
	templateID := paramUint64(c, "id")
	if templateID == 0 {
		return utils.ErrorResponse(c, "Invalid template id", fiber.StatusBadRequest, "revisions.validation.input")
	}

	names := parseKeyList(c, "fields")
	if len(names) == 0 && len(c.Body()) > 0 {
		// restriction may also arrive in the body, single name or array
		var body struct {
			Fields types.FlexList[string] `json:"fields"`
		}
		if err := c.BodyParser(&body); err != nil {
			return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "revisions.validation.input")
		}
		names = body.Fields.Slice()
	}

	var fields []services.FieldSelector
	for _, name := range names {
		if id, err := strconv.ParseUint(name, 10, 64); err == nil {
			fields = append(fields, services.FieldSelector{ID: id})
		} else {
			fields = append(fields, services.FieldSelector{Name: name})
		}
	}

	if err := services.DeleteForTemplate(h.DB, templateID, fields); err != nil {
		return serviceErrorResponse(c, err, "deleteTemplateData")
	}

	return utils.MutationSuccessResponse(c, 0, 0)
}

// DeleteFieldData handles DELETE /api/fields/:field/data
// @Summary Delete stored data for a field
// @Description Delete every stored payload of one field across all pages
// @Tags Data
// @Accept json
// @Produce json
// @Param field path string true "Field ID or name"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /fields/{field}/data [delete]
func (h *DataHandler) DeleteFieldData(c *fiber.Ctx) error {
	field := fieldSelectorParam(c, "field")

	if err := services.DeleteForField(h.DB, field); err != nil {
		return serviceErrorResponse(c, err, "deleteFieldData")
	}

	return utils.MutationSuccessResponse(c, 0, 0)
}

// DeletePageData handles DELETE /api/pages/:page/data
// @Summary Delete stored data for a page
// @Description Delete every revision and payload recorded for a page
// @Tags Data
// @Accept json
// @Produce json
// @Param page path int true "Page ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /pages/{page}/data [delete]
func (h *DataHandler) DeletePageData(c *fiber.Ctx) error {
	pageID := paramUint64(c, "page")

	if err := services.DeleteForPage(h.DB, pageID); err != nil {
		return serviceErrorResponse(c, err, "deletePageData")
	}

	return utils.MutationSuccessResponse(c, 0, 0)
}

// Purge handles POST /api/maintenance/purge
// @Summary Purge old revisions
// @Description Delete revisions and payloads older than the configured or supplied maximum age
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param body body object false "Optional max_age override such as 30d or 4w"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /maintenance/purge [post]
func (h *DataHandler) Purge(c *fiber.Ctx) error {
	var body struct {
		MaxAge string `json:"max_age"`
	}
	// body is optional; a missing or empty body falls back to configuration
	_ = c.BodyParser(&body)

	maxAge := body.MaxAge
	if maxAge == "" {
		maxAge = c.Query("max_age")
	}
	if maxAge == "" {
		maxAge = h.PurgeMaxAge
	}

	affected, err := services.Purge(h.DB, maxAge)
	if err != nil {
		return serviceErrorResponse(c, err, "purge")
	}

	return utils.MutationSuccessResponse(c, 0, affected)
}

// parseInstant accepts RFC3339 or unix seconds.
func parseInstant(raw string) (time.Time, error) {
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(seconds, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}
