package helpers

import (
	"strconv"

	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultPage     = 1
)

// Page is a normalized 1-based page request
type Page struct {
	Number int
	Size   int
}

// NormalizePage clamps a page request into range: page < 1 becomes the
// first page, a size outside (0, MaxPageSize] becomes DefaultPageSize.
func NormalizePage(number, size int) Page {
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	if number < 1 {
		number = DefaultPage
	}
	return Page{Number: number, Size: size}
}

// Offset is the number of rows to skip
func (p Page) Offset() uint64 { return uint64((p.Number - 1) * p.Size) }

// Limit is the number of rows to return
func (p Page) Limit() uint64 { return uint64(p.Size) }

// Info builds the response metadata for a result set of total rows. A page
// past the end reports the last page; an empty set reports one empty page.
func (p Page) Info(total int64) *dto.PaginationInfo {
	totalPages := int((total + int64(p.Size) - 1) / int64(p.Size))
	if totalPages == 0 {
		totalPages = 1
	}
	current := p.Number
	if current > totalPages {
		current = totalPages
	}
	return &dto.PaginationInfo{
		CurrentPage: current,
		TotalPages:  totalPages,
		PageSize:    p.Size,
		TotalItems:  total,
	}
}

// ParsePaginationParams reads ?page= and ?size= (or ?pageSize=), falling back
// to defaults for missing or malformed values.
func ParsePaginationParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page"))
	sizeParam := c.Query("size")
	if sizeParam == "" {
		sizeParam = c.Query("pageSize")
	}
	size, _ = strconv.Atoi(sizeParam)

	p := NormalizePage(page, size)
	return p.Number, p.Size
}
