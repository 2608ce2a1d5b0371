package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/clinicbook/booking-api/pkg/metrics"
)

// Metrics records per-route request counts and latency. The route template
// (not the raw path) is the label, so /appointments/:id stays one series.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		timer := prometheus.NewTimer(m.HTTPLatency.WithLabelValues(c.Request.Method, path))
		c.Next()
		timer.ObserveDuration()

		m.HTTPRequests.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}
