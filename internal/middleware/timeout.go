package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/consultation-api/pkg/httputil"
)

const DefaultTimeout = 30 * time.Second

// Timeout bounds the request context. Handlers run on the request goroutine
// and are expected to honor ctx; if one returns after the deadline without
// writing a response, a 504 is sent.
func Timeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		d = DefaultTimeout
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if !c.Writer.Written() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, httputil.NewErrorResponse("Request timeout"))
		}
	}
}
