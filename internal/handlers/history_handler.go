// history_handler.go
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
	"strconv"

	"github.com/fieldvault/revisiondb/internal/services"
	"github.com/fieldvault/revisiondb/internal/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HistoryHandler handles page history and audit routes
type HistoryHandler struct {
	DB *gorm.DB
}

// GetPageHistory handles GET /api/pages/:page/history
// @Summary Get page revision history
// @Description Get a paginated, author-filterable revision history for a page
// @Tags History
// @Accept json
// @Produce json
// @Param page path int true "Page ID"
// @Param start query int false "Pagination offset"
// @Param limit query int false "Page size"
// @Param user query int false "Filter by author user ID"
// @Success 200 {object} services.HistoryResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /pages/{page}/history [get]
func (h *HistoryHandler) GetPageHistory(c *fiber.Ctx) error {
	pageID := paramUint64(c, "page")
	if pageID == 0 {
		return utils.ErrorResponse(c, "Invalid page id", fiber.StatusBadRequest, "revisions.validation.input")
	}

	start := c.QueryInt("start", 0)
	limit := c.QueryInt("limit", 10)
	if start < 0 || limit <= 0 {
		return utils.ErrorResponse(c, "Invalid pagination", fiber.StatusBadRequest, "revisions.validation.input")
	}

	filters := services.HistoryFilters{}
	if user := c.Query("user"); user != "" {
		userID, err := strconv.ParseUint(user, 10, 64)
		if err != nil {
			return utils.ErrorResponse(c, "Invalid user id", fiber.StatusBadRequest, "revisions.validation.input")
		}
		filters.UserID = &userID
	}

	result, err := services.GetPageHistory(h.DB, pageID, start, limit, filters)
	if err != nil {
		return serviceErrorResponse(c, err, "getPageHistory")
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// GetPageRevisions handles GET /api/pages/:page/revisions
// @Summary List page revision ids
// @Description List the page's revision ids with timestamps, newest first
// @Tags History
// @Accept json
// @Produce json
// @Param page path int true "Page ID"
// @Param limit query int false "Maximum number of revisions to return"
// @Success 200 {array} services.RevisionStamp
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /pages/{page}/revisions [get]
func (h *HistoryHandler) GetPageRevisions(c *fiber.Ctx) error {
	pageID := paramUint64(c, "page")
	limit := c.QueryInt("limit", 0)

	stamps, err := services.GetPageRevisionIDs(h.DB, pageID, limit)
	if err != nil {
		return serviceErrorResponse(c, err, "getPageRevisions")
	}
	if len(stamps) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.Status(fiber.StatusOK).JSON(stamps)
}

// GetPageUsers handles GET /api/pages/:page/users
// @Summary List page authors
// @Description List the distinct users that authored revisions for a page
// @Tags History
// @Accept json
// @Produce json
// @Param page path int true "Page ID"
// @Success 200 {array} services.PageUser
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /pages/{page}/users [get]
func (h *HistoryHandler) GetPageUsers(c *fiber.Ctx) error {
	pageID := paramUint64(c, "page")

	users, err := services.GetPageUsers(h.DB, pageID)
	if err != nil {
		return serviceErrorResponse(c, err, "getPageUsers")
	}
	if len(users) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.Status(fiber.StatusOK).JSON(users)
}

// GetPagesRevisions handles GET /api/pages/revisions?pages=1,2
// @Summary List revision touches across pages
// @Description List every (revision, field) touch event across the given pages
// @Tags History
// @Accept json
// @Produce json
// @Param pages query string true "Comma-separated page IDs"
// @Success 200 {array} services.RevisionTouch
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /pages/revisions [get]
func (h *HistoryHandler) GetPagesRevisions(c *fiber.Ctx) error {
	pageIDs := parseIDList(c, "pages")

	touches, err := services.GetRevisionsForPages(h.DB, pageIDs)
	if err != nil {
		return serviceErrorResponse(c, err, "getPagesRevisions")
	}
	if len(touches) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.Status(fiber.StatusOK).JSON(touches)
}
