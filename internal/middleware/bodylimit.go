package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
)

// BodyLimit rejects request bodies larger than max bytes. Declared lengths are
// refused up front; chunked bodies fail while being read.
func BodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > max {
			abort(c, apperr.New(http.StatusRequestEntityTooLarge, apperr.UnprocessableEntity, "Request body too large"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}
