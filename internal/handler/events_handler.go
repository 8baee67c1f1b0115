package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/crowd-playback/pkg/log"
	"github.com/weiawesome/crowd-playback/pkg/pubsub"
	"github.com/weiawesome/crowd-playback/pkg/response"
)

const sseHeartbeat = 15 * time.Second

// EventsHandler streams viewer navigation events as server-sent events.
type EventsHandler struct {
	subscriber pubsub.Subscriber
	prefix     string
}

// NewEventsHandler creates an events handler. A nil subscriber disables the
// stream.
func NewEventsHandler(subscriber pubsub.Subscriber, prefix string) *EventsHandler {
	return &EventsHandler{subscriber: subscriber, prefix: prefix}
}

// RegisterRoutes registers the events route.
func (h *EventsHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/v1/events", h.Stream)
}

// Stream follows one viewer with ?viewer_id=, or every viewer.
func (h *EventsHandler) Stream(c *gin.Context) {
	if h.subscriber == nil {
		response.ServiceUnavailable(c, "event bus disabled")
		return
	}

	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var (
		events <-chan *pubsub.Event
		err    error
	)
	if id := c.Query("viewer_id"); id != "" {
		c.Set(log.FieldViewerID, id)
		events, err = h.subscriber.Subscribe(ctx, pubsub.ViewerChannel(h.prefix, id))
	} else {
		events, err = h.subscriber.SubscribePattern(ctx, pubsub.AllViewersPattern(h.prefix))
	}
	if err != nil {
		l.Error().Err(err).Msg("failed to subscribe to viewer events")
		response.InternalError(c, "failed to subscribe")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	// Flush headers once subscribed.
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			return true
		case <-ctx.Done():
			return false
		}
	})
}
