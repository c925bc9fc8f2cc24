// internal/handlers/stream.go
package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/events"
	"github.com/javajoker/storefront-backend/internal/utils"
)

const keepAliveInterval = 25 * time.Second

// StreamHandler pushes bus events to browsers as server-sent events. Each
// subscription ends when the client disconnects.
type StreamHandler struct {
	bus events.Bus
}

func NewStreamHandler(bus events.Bus) *StreamHandler {
	return &StreamHandler{bus: bus}
}

// GET /cart/stream
func (h *StreamHandler) CartStream(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.stream(c, events.CartTopic(userID))
}

// GET /products/stream
func (h *StreamHandler) ProductStream(c *gin.Context) {
	h.stream(c, events.TopicProducts)
}

// GET /admin/orders/stream
func (h *StreamHandler) OrderStream(c *gin.Context) {
	h.stream(c, events.TopicOrders, events.TopicProducts)
}

func (h *StreamHandler) stream(c *gin.Context, topics ...string) {
	ch, err := h.bus.Subscribe(c.Request.Context(), topics...)
	if err != nil {
		logrus.WithError(err).WithField("topics", topics).Error("Failed to subscribe")
		utils.InternalErrorResponse(c, "")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	c.SSEvent("ready", gin.H{"topics": topics})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(event.Type, event)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
