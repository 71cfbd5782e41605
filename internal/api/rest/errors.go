package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/api/apierr"
	"github.com/feral-file/ff-media-ledger/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierr.NewResponse(apierr.ErrCodeBadRequest, message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, details string) {
	c.JSON(http.StatusBadRequest, apierr.NewResponse(apierr.ErrCodeValidationFailed, "Validation failed", details))
}

// respondError maps a ledger error onto the error envelope. Server side failures are logged.
func respondError(c *gin.Context, err error, message string, fields ...zap.Field) {
	status, code := apierr.Classify(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorCtx(c.Request.Context(), err, append(fields, zap.String("path", c.Request.URL.Path))...)
		c.JSON(status, apierr.NewResponse(code, message))
		return
	}
	c.JSON(status, apierr.NewResponse(code, message, err.Error()))
}
