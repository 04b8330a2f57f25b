package utils

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// ValidationFailed reports every offending field at once, one message list
// per field path.
func ValidationFailed(c *fiber.Ctx, fields map[string][]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"errors":  fields,
	})
}

// Paginated writes the list envelope: total count, effective page size,
// next/previous page links and the result slice.
func Paginated(c *fiber.Ctx, results interface{}, p PaginationParams, total int64) error {
	var next, previous interface{}
	if int64(p.Offset+p.PageSize) < total {
		next = pageLink(c, p.Page+1, p.PageSize)
	}
	if p.Page > 1 {
		previous = pageLink(c, p.Page-1, p.PageSize)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":   true,
		"count":     total,
		"page_size": p.PageSize,
		"next":      next,
		"previous":  previous,
		"results":   results,
	})
}

func pageLink(c *fiber.Ctx, page, pageSize int) string {
	return fmt.Sprintf("%s?page=%d&page_size=%d", c.Path(), page, pageSize)
}
