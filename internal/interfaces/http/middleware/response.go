// internal/interfaces/http/middleware/response.go
package middleware

import "github.com/gin-gonic/gin"

// abort stops the chain with the standard error envelope
func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
		"status":  status,
	})
}
