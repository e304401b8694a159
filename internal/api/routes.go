package api

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rawblock/signalengine/internal/catalog"
	"github.com/rawblock/signalengine/internal/dispatcher"
	"github.com/rawblock/signalengine/internal/forwarder"
)

// APIHandler holds the collaborators the HTTP surface reports on.
// Nothing here is write-capable today; the auth/rate-limit middleware
// is still wired onto a reserved protected group so a future
// write-capable endpoint has somewhere to land without a router
// reshuffle.
type APIHandler struct {
	cat        *catalog.Catalog
	dispatcher *dispatcher.Dispatcher
	fwd        *forwarder.Client
}

// SetupRouter builds the Gin engine: CORS middleware, the read-only
// health/status/stream routes, and a reserved auth-and-rate-limited
// group for future write-capable endpoints.
func SetupRouter(cat *catalog.Catalog, disp *dispatcher.Dispatcher, fwd *forwarder.Client, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{
		cat:        cat,
		dispatcher: disp,
		fwd:        fwd,
	}

	r.GET("/health", handler.handleHealth)
	r.GET("/api/status", handler.handleStatus)

	pub := r.Group("/api/v1")
	{
		pub.GET("/stream", wsHub.Subscribe)
	}

	// Reserved protected group: no routes live here today, but the
	// middleware is wired and ready for any future write-capable
	// endpoint.
	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	auth.Use(NewRateLimiter(30, 5).Middleware())

	return r
}

// handleHealth reports process liveness.
func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "signal-engine",
		"timestamp": time.Now().UTC(),
	})
}

// handleStatus reports catalog size, forwarder counters, and live
// per-pair tracker counts.
func (h *APIHandler) handleStatus(c *gin.Context) {
	byPair := gin.H{}
	total := 0
	for _, pair := range h.dispatcher.Pairs() {
		pipe := h.dispatcher.PipelineFor(pair)
		if pipe == nil {
			continue
		}
		n := pipe.Tracker().Snapshot()
		byPair[pair] = n
		total += n
	}

	signalsSent := int64(0)
	if h.fwd != nil {
		signalsSent = h.fwd.SignalsSent()
	}

	c.JSON(http.StatusOK, gin.H{
		"scanner": gin.H{
			"totalPaths":    len(h.cat.Paths),
			"isInitialized": h.cat != nil,
		},
		"signalsSent": signalsSent,
		"activeSignals": gin.H{
			"total":  total,
			"byPair": byPair,
		},
	})
}
