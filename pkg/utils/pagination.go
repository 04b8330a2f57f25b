package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const maxPageSize = 100

type PaginationParams struct {
	Page     int
	PageSize int
	Offset   int
}

// ParsePagination resolves the page size from the query parameters
// (`page_size`, with `per_page` as an accepted alias), falling back to the
// caller-supplied default (the requesting user's profile page size, or
// DefaultPageSize for anonymous requests).
func ParsePagination(c *fiber.Ctx, defaultPageSize int) PaginationParams {
	page := parseIntDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}

	raw := c.Query("page_size")
	if raw == "" {
		raw = c.Query("per_page")
	}
	pageSize := parseIntDefault(raw, defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}
}

func ApplyPagination(db *gorm.DB, p PaginationParams) *gorm.DB {
	return db.Offset(p.Offset).Limit(p.PageSize)
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
