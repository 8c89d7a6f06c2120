// Package size caps request bodies before handlers read them.
package size

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodySizeLimiter wraps the request body so reads fail past limit bytes.
// Handlers see *http.MaxBytesError and decide the response themselves.
// A non-positive limit disables the cap.
func BodySizeLimiter(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
