package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/tubetitle/logging"
)

// KeywordKey is set by analysis handlers so the keyword can be ranked
const KeywordKey = "keyword"

const persistEvery = 100

func isAnalysisRequest(c *gin.Context) bool {
	if c.Request.Method != "POST" {
		return false
	}
	path := c.FullPath()
	return strings.HasPrefix(path, "/api/analyze") || path == "/api/score"
}

// Stats tracks visitors and analysis requests
func Stats(statistics *logging.Statistics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		statistics.TrackVisitor(c.ClientIP())

		c.Next()

		if !isAnalysisRequest(c) {
			return
		}
		loadTime := float64(time.Since(start).Milliseconds())
		statistics.TrackAnalysis(c.GetString(KeywordKey), loadTime, c.Writer.Status() >= 400)

		// Periodically save statistics
		if statistics.TotalRequests()%persistEvery == 0 {
			go func() {
				if err := statistics.Save(); err != nil {
					logging.Log.WithError(err).Warn("Could not save statistics")
				}
			}()
		}
	}
}
