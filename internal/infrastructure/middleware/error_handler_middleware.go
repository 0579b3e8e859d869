package middleware

import (
	"net/http"

	"conference/internal/core/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// problemDetails is the RFC 7807 response body used across the HTTP API
// (spec §7): type carries the stable error slug, the rest is for humans.
type problemDetails struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
	Status int    `json:"status"`
}

// ErrorHandlerMiddleware maps the last handler error into an RFC 7807 body,
// preferring a *domain.DomainError's slug/status when one is present in the
// chain and falling back to a generic 500 otherwise.
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		if de := domain.AsDomainError(err); de != nil {
			status := de.Slug.HTTPStatus()
			logger.Errorw("domain error",
				"slug", de.Slug,
				"title", de.Title,
				"status", status,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			c.JSON(status, problemDetails{
				Type:   string(de.Slug),
				Title:  de.Title,
				Detail: de.Detail,
				Status: status,
			})
			return
		}

		logger.Errorw("unhandled error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		c.JSON(http.StatusInternalServerError, problemDetails{
			Type:   "internal_error",
			Title:  "internal server error",
			Status: http.StatusInternalServerError,
		})
	}
}

// RecoveryMiddleware recovers from panics and returns an RFC 7807 body
// instead of tearing down the connection.
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)
				c.JSON(http.StatusInternalServerError, problemDetails{
					Type:   "internal_error",
					Title:  "internal server error",
					Status: http.StatusInternalServerError,
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
