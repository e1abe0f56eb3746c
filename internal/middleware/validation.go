package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
)

// BindJSON binds and validates the request body. On failure it writes a 400
// listing the failing fields and returns false.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return false
	}
	return true
}

// ParseIDParam reads a positive int64 path parameter, writing a 400 when it
// is missing or malformed
func ParseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+name).WithField(name)
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return 0, false
	}
	return id, true
}

// ParseDateQuery reads an optional YYYY-MM-DD query parameter, defaulting to
// today in UTC
func ParseDateQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return helpers.StartOfDay(time.Now().UTC()), true
	}
	day, err := helpers.ParseDate(raw)
	if err != nil {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, name+" must be YYYY-MM-DD").WithField(name)
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return time.Time{}, false
	}
	return day, true
}
