package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type MetricsHandler struct {
	exposition http.Handler
}

// NewMetricsHandler serves the given Prometheus exposition handler.
func NewMetricsHandler(exposition http.Handler) *MetricsHandler {
	return &MetricsHandler{exposition: exposition}
}

func (h *MetricsHandler) ServeMetrics(c *gin.Context) {
	h.exposition.ServeHTTP(c.Writer, c.Request)
}
