package utils

import (
	"github.com/gin-gonic/gin"
)

// Tracking endpoints wrap every payload in the same envelope so the client
// SDK can unwrap responses uniformly: { success, data, message }.

// RespondData writes a successful envelope with a nested data object.
func RespondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// RespondMessage writes a successful envelope with no data.
func RespondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": true, "message": message})
}

// RespondError writes a failure envelope and aborts the handler chain.
func RespondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
