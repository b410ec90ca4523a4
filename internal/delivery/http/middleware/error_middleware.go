package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/response"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
	"github.com/Gradiiai/gradii-sub007/pkg/validation"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		ctx := c.Request.Context()

		appErr, ok := apperror.As(err)
		if !ok || appErr.Code >= http.StatusInternalServerError {
			// Never expose internal error details to clients.
			logger.Error(ctx, "request failed", zap.Error(err), zap.String("path", c.FullPath()))
			if ok && appErr.Code != http.StatusInternalServerError {
				response.Error(c, appErr.Code, appErr.Message, nil)
				return
			}
			response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
			return
		}

		var details any
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details = validation.FormatValidationErrors(verrs)
		}
		if appErr.Code == http.StatusUnauthorized || appErr.Code == http.StatusForbidden {
			logger.Info(ctx, "request denied", zap.Int("status", appErr.Code), zap.String("reason", appErr.Message))
		}
		response.Error(c, appErr.Code, appErr.Message, details)
	}
}
