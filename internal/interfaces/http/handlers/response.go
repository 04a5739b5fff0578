// internal/interfaces/http/handlers/response.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/interfaces/http/middleware"
	"github.com/your-org/catalog-backend/internal/pkg/apperror"
)

const genericFailure = "Something went wrong. Please try again."

// respondError writes the error envelope. Internal causes are logged, never sent.
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.Internal(genericFailure, err)
	}
	status := apperror.HTTPStatus(appErr.Kind)

	if appErr.Kind == apperror.KindInternal {
		log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetRequestID(c),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
		}).Error("request failed")
	}

	body := gin.H{
		"success": false,
		"message": appErr.Message,
		"status":  status,
	}
	if len(appErr.Fields) > 0 {
		body["errors"] = appErr.Fields
	}
	c.JSON(status, body)
}

// respondBadRequest reports a body that could not be decoded
func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Invalid request data",
		"status":  http.StatusBadRequest,
		"details": err.Error(),
	})
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// idParam parses a positive numeric path parameter, answering 404 otherwise
func idParam(c *gin.Context, name, notFound string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": notFound,
			"status":  http.StatusNotFound,
		})
		return 0, false
	}
	return uint(id), true
}

// pageQuery reads ?page=, defaulting to 1
func pageQuery(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// currentUser returns the authenticated user id or answers 401
func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Unauthenticated.",
			"status":  http.StatusUnauthorized,
		})
	}
	return userID, ok
}
