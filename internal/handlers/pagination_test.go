package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"surveyapp/internal/services"
)

func TestParsePagination_DefaultsAndBounds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var gotPage, gotSize int

	r.GET("/test", func(c *gin.Context) {
		gotPage, gotSize = ParsePagination(c, 1, 5, 20)
		c.Status(http.StatusOK)
	})

	tests := []struct {
		query    string
		page     int
		pageSize int
	}{
		{"", 1, 5},
		{"?page=abc&page_size=-5", 1, 5},
		{"?page=3&page_size=10", 3, 10},
		{"?page=2&page_size=5000", 2, 20},
		{"?page=0", 1, 5},
		{"?page=9223372036854775807&page_size=20", services.MaxPage(20), 20},
		{"?page=99999999999999999999", 1, 5},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test"+tt.query, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, tt.page, gotPage, tt.query)
		assert.Equal(t, tt.pageSize, gotSize, tt.query)
	}
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, PageSize: 5, Total: 0, TotalPages: 0}, NewPagination(1, 5, 0))
	assert.Equal(t, 1, NewPagination(1, 5, 5).TotalPages)
	assert.Equal(t, 3, NewPagination(2, 5, 11).TotalPages)
}

func TestWritePaginated_BuildsStandardResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.GET("/paginated", func(c *gin.Context) {
		WritePaginated(c, "data", []int{1, 2, 3}, NewPagination(1, 5, 3))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/paginated", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "\"data\":[1,2,3]")
	assert.Contains(t, body, "\"total_pages\":1")
}
