// common.go
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
	"errors"
	"strconv"
	"strings"

	"github.com/fieldvault/revisiondb/internal/services"
	"github.com/fieldvault/revisiondb/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// parseIDList extracts numeric ids from query parameters, supporting both
// multiple occurrences of the key and comma-separated values.
func parseIDList(c *fiber.Ctx, name string) []uint64 {
	idMap := make(map[uint64]struct{})
	order := make([]uint64, 0)

	args := c.Context().QueryArgs()
	for key, value := range args.All() {
		if string(key) != name {
			continue
		}
		for _, v := range strings.Split(string(value), ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil || id == 0 {
				continue
			}
			if _, seen := idMap[id]; !seen {
				idMap[id] = struct{}{}
				order = append(order, id)
			}
		}
	}

	return order
}

// parseKeyList extracts string values for a query key, comma-separated or repeated.
func parseKeyList(c *fiber.Ctx, name string) []string {
	keyMap := make(map[string]struct{})
	order := make([]string, 0)

	args := c.Context().QueryArgs()
	for key, value := range args.All() {
		if string(key) != name {
			continue
		}
		for _, v := range strings.Split(string(value), ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, seen := keyMap[v]; !seen {
				keyMap[v] = struct{}{}
				order = append(order, v)
			}
		}
	}

	return order
}

// paramUint64 parses a numeric path parameter, returning 0 when missing or invalid.
func paramUint64(c *fiber.Ctx, name string) uint64 {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// fieldSelectorParam builds a field selector from a path parameter that may be
// a numeric id or a field name.
func fieldSelectorParam(c *fiber.Ctx, name string) services.FieldSelector {
	raw := c.Params(name)
	if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return services.FieldSelector{ID: id}
	}
	return services.FieldSelector{Name: raw}
}

// serviceErrorResponse maps service sentinel errors onto HTTP responses.
func serviceErrorResponse(c *fiber.Ctx, err error, errorType string) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrUnknownField):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, errorType)
	default:
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, errorType)
	}
}
