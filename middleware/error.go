package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/tubetitle/logging"
)

// ErrorHandler middleware recovers from any panics and handles errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logging.Log.WithFields(logrus.Fields{
					"panic":     err,
					"path":      c.Request.URL.Path,
					"requestId": c.GetString(RequestIDKey),
					"stack":     string(debug.Stack()),
				}).Error("Panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "An unexpected error occurred",
				})
			}
		}()

		c.Next()

		// Errors attached with c.Error but never rendered
		if len(c.Errors) > 0 && !c.Writer.Written() {
			logging.Log.WithFields(logrus.Fields{
				"path":      c.Request.URL.Path,
				"requestId": c.GetString(RequestIDKey),
				"errors":    c.Errors.String(),
			}).Error("Request failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "An unexpected error occurred",
			})
		}
	}
}
