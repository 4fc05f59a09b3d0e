package utils

import (
	"time"

	"github.com/gin-gonic/gin"
)

// SendErrorResponse sends a standardized error response
func SendErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": message})
}

// ParseDateQuery parses a date query parameter, accepting YYYY-MM-DD or
// RFC3339. Returns nil when the parameter is absent.
func ParseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Try an alternate format
		parsed, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, false
		}
	}
	return &parsed, true
}
