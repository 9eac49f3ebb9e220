package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/seo-optimizer/auditor/logging"
)

const saveEvery = 100

// Stats tracks visitors on every request and the duration of analysis requests. Statistics are
// saved in the background after every hundredth analysis.
func Stats(stats *logging.Statistics, analysisRoutes ...string) gin.HandlerFunc {
	tracked := make(map[string]bool, len(analysisRoutes))
	for _, route := range analysisRoutes {
		tracked[route] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		stats.TrackVisitor(c.ClientIP())

		c.Next()

		if !tracked[c.FullPath()] || c.Request.Method != "POST" {
			return
		}
		stats.TrackRequest(float64(time.Since(start).Milliseconds()))

		if n := stats.Requests(); n > 0 && n%saveEvery == 0 {
			go func() {
				if err := stats.Save(); err != nil {
					logging.Log.Warn("Failed to save statistics", zap.Error(err))
				}
			}()
		}
	}
}
