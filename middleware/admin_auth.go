package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"mabletask/tracker/utils"
)

// AdminAuth guards the operational endpoints with a static token from the
// environment. An unset ADMIN_TOKEN disables the admin surface entirely.
func AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := os.Getenv("ADMIN_TOKEN")
		if expected == "" {
			utils.RespondError(c, http.StatusForbidden, "Admin endpoints are disabled")
			return
		}

		got := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid admin token")
			return
		}

		c.Next()
	}
}
