package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"surveyapp/internal/services"
)

// Pagination describes one page of a listing
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes the page count for total items split into pages of pageSize
func NewPagination(page, pageSize, total int) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
}

// ParsePagination parses standard pagination query params from the request.
// It enforces bounds and applies defaults when values are missing or invalid.
func ParsePagination(c *gin.Context, defaultPage, defaultSize, maxSize int) (int, int) {
	pageStr := c.DefaultQuery("page", strconv.Itoa(defaultPage))
	sizeStr := c.DefaultQuery("page_size", strconv.Itoa(defaultSize))

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = defaultPage
	}

	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 1 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	if limit := services.MaxPage(size); page > limit {
		page = limit
	}

	return page, size
}

// WritePaginated writes the items under itemsKey next to a pagination block
func WritePaginated(c *gin.Context, itemsKey string, items any, pagination Pagination) {
	c.JSON(http.StatusOK, gin.H{
		itemsKey:     items,
		"pagination": pagination,
	})
}
