package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/crowd-playback/internal/domain"
	"github.com/weiawesome/crowd-playback/internal/grid"
	"github.com/weiawesome/crowd-playback/internal/hub"
	"github.com/weiawesome/crowd-playback/internal/media"
	"github.com/weiawesome/crowd-playback/internal/player"
	"github.com/weiawesome/crowd-playback/internal/service"
	pkglog "github.com/weiawesome/crowd-playback/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSHandler connects a browser video element to a viewer. The viewer's
// media commands go down the socket and the element's events come back up.
type WSHandler struct {
	hub         *hub.Hub
	playbackSvc *service.PlaybackService
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, svc *service.PlaybackService) *WSHandler {
	return &WSHandler{
		hub:         h,
		playbackSvc: svc,
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket handles WebSocket upgrade and message routing.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	l := pkglog.L()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn)
	viewer := h.playbackSvc.Mount(service.MountOptions{
		DeviceID: c.Query("device_id"),
		Surface:  media.NewRemoteSurface(client),
		Pinned:   true,
		OnChange: func(s player.Snapshot) {
			client.SendMessage(domain.SnapshotMessage{Type: domain.MsgTypeSnapshot, Snapshot: s})
		},
	})
	client.ViewerID = viewer.ID
	c.Set(pkglog.FieldViewerID, viewer.ID)

	// The viewer lives as long as the connection.
	client.OnDisconnect(func(cl *hub.Client) {
		if err := h.playbackSvc.Unmount(cl.ViewerID); err != nil && !errors.Is(err, service.ErrViewerNotFound) {
			l.Error().Err(err).Str("client_id", cl.ID).Msg("unmount viewer failed")
		}
	})

	h.hub.Register(client)
	client.SendMessage(domain.WelcomeMessage{Type: domain.MsgTypeWelcome, ViewerID: viewer.ID, DeviceID: viewer.DeviceID})

	client.Serve(h.handleMessage)
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	if base.Type == domain.MsgTypePing {
		client.SendMessage(map[string]string{"type": domain.MsgTypePong})
		return
	}

	viewer, err := h.playbackSvc.Get(client.ViewerID)
	if err != nil {
		// Reaped or unmounted elsewhere: the socket has nothing left to drive.
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeUnavailable, "Viewer closed"))
		h.hub.Unregister(client)
		return
	}

	ctx := context.Background()

	switch base.Type {
	case domain.MsgTypeActivate:
		var msg domain.ActivateMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid activate message"))
			return
		}
		if msg.IsHourly() {
			_, err = viewer.ActivateHourly(ctx, msg.HourlyPoint())
		} else {
			ts, perr := msg.Instant(h.playbackSvc.Location())
			if perr != nil {
				client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, perr.Error()))
				return
			}
			_, err = viewer.Activate(ctx, ts, msg.Count)
		}
		// The empty grid is already in the snapshot.
		if errors.Is(err, grid.ErrNoCameras) {
			err = nil
		}

	case domain.MsgTypeSelectCamera:
		var msg domain.SelectCameraMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid select_camera message"))
			return
		}
		_, err = viewer.SelectCamera(ctx, msg.Camera)

	case domain.MsgTypeNavigate:
		var msg domain.NavigateMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid navigate message"))
			return
		}
		_, err = viewer.Navigate(ctx, service.Action(msg.Action), msg.Seconds)
		if errors.Is(err, grid.ErrNoCameras) {
			err = nil
		}

	case domain.MsgTypeKey:
		var msg domain.KeyMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid key message"))
			return
		}
		_, _, err = viewer.Key(ctx, msg.Key)

	case domain.MsgTypeMediaReady, domain.MsgTypeMediaError, domain.MsgTypeTimeUpdate, domain.MsgTypePlaybackState:
		ev, perr := mediaEventFromMessage(base.Type, message)
		if perr != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid "+base.Type+" message"))
			return
		}
		viewer.Post(ev)

	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Unknown message type"))
	}

	if err != nil {
		_, code, ok := classify(err)
		if !ok {
			l := pkglog.L()
			l.Error().Err(err).Str(pkglog.FieldViewerID, client.ViewerID).Str("message_type", base.Type).Msg("viewer command failed")
		}
		client.SendMessage(domain.NewErrorMessage(code, err.Error()))
	}
}

// mediaEventFromMessage decodes a media event reported by the client.
func mediaEventFromMessage(typ string, message []byte) (player.MediaEvent, error) {
	switch typ {
	case domain.MsgTypeMediaReady:
		var msg domain.MediaReadyMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return player.MediaEvent{}, err
		}
		return player.MediaEvent{Token: msg.Token, Kind: player.MediaReady, Duration: msg.Duration}, nil

	case domain.MsgTypeMediaError:
		var msg domain.MediaErrorMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return player.MediaEvent{}, err
		}
		reason := media.ErrorReason(msg.Code)
		if reason == "" {
			reason = msg.Message
		}
		return player.MediaEvent{Token: msg.Token, Kind: player.MediaFailed, Reason: reason}, nil

	case domain.MsgTypeTimeUpdate:
		var msg domain.TimeUpdateMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return player.MediaEvent{}, err
		}
		return player.MediaEvent{Token: msg.Token, Kind: player.MediaTimeUpdate, Position: msg.Position}, nil

	default:
		var msg domain.PlaybackStateMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return player.MediaEvent{}, err
		}
		kind := player.MediaPaused
		if msg.Playing {
			kind = player.MediaPlaying
		}
		return player.MediaEvent{Token: msg.Token, Kind: kind}, nil
	}
}
