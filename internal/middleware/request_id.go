package middleware

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
)

// RequestID sets X-Request-ID on every response, reusing the caller's value
// when present.
func RequestID() gin.HandlerFunc {
	return requestid.New()
}

// GetRequestID returns the id assigned by RequestID.
func GetRequestID(c *gin.Context) string {
	return requestid.Get(c)
}
