package adaptor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"event-seating/internal/data/repository"
	"event-seating/internal/dto/request"
	"event-seating/internal/realtime"
	"event-seating/internal/usecase"
	"event-seating/pkg/utils"

	"github.com/gorilla/websocket"
	"github.com/igm/sockjs-go/sockjs"
	"go.uber.org/zap"
)

const maxChannelMessageSize = 64 * 1024

// ChannelHandler serves the persistent seat channel over WebSocket and
// SockJS. Every decoded command goes through the same SeatService as the
// HTTP routes; failures are answered with an error event and the channel
// stays open.
type ChannelHandler struct {
	service      usecase.SeatService
	hub          *realtime.Hub
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	log          *zap.Logger
}

func NewChannelHandler(service usecase.SeatService, hub *realtime.Hub, config *utils.Config, log *zap.Logger) *ChannelHandler {
	allowed := make(map[string]bool, len(config.App.CORSOrigins))
	for _, origin := range config.App.CORSOrigins {
		allowed[origin] = true
	}

	return &ChannelHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		writeTimeout: config.Realtime.WriteTimeout,
		log:          log.With(zap.String("handler", "channel")),
	}
}

// ServeWebSocket handles GET /ws/seats
func (h *ChannelHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.Warn("WebSocket upgrade failed", zap.Error(err), zap.String("ip", r.RemoteAddr))
		return
	}

	client, err := h.hub.Register(realtime.NewWebSocketConn(conn, h.writeTimeout))
	if err != nil {
		h.log.Warn("Rejecting channel", zap.Error(err))
		_ = conn.Close()
		return
	}
	defer h.hub.Unregister(client.ID)

	conn.SetReadLimit(maxChannelMessageSize)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("Channel read ended", zap.String("client_id", client.ID), zap.Error(err))
			}
			return
		}
		h.Dispatch(r.Context(), client.ID, data)
	}
}

// SockJSHandler serves the same protocol under prefix for clients that
// cannot open a raw WebSocket.
func (h *ChannelHandler) SockJSHandler(prefix string) http.Handler {
	return sockjs.NewHandler(prefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		client, err := h.hub.Register(realtime.NewSockJSConn(session))
		if err != nil {
			h.log.Warn("Rejecting channel", zap.Error(err))
			_ = session.Close(1001, "server shutting down")
			return
		}
		defer h.hub.Unregister(client.ID)

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			h.Dispatch(context.Background(), client.ID, []byte(msg))
		}
	})
}

// Dispatch decodes one inbound message and runs it for clientID.
func (h *ChannelHandler) Dispatch(ctx context.Context, clientID string, raw []byte) {
	cmd, err := request.DecodeChannelMessage(raw)
	if err != nil {
		h.reply(clientID, realtime.Error(err.Error()))
		return
	}

	sessionID := cmd.SessionID
	if sessionID == "" {
		sessionID = h.hub.SessionOf(clientID)
	}

	switch cmd.Kind {
	case request.CommandJoin:
		err = h.join(ctx, clientID, sessionID)
	case request.CommandHold:
		_, err = h.service.HoldSeat(ctx, &request.HoldSeatRequest{SessionID: sessionID, SeatID: cmd.SeatID})
	case request.CommandRelease:
		_, err = h.service.ReleaseSeat(ctx, &request.ReleaseSeatRequest{SessionID: sessionID, SeatID: cmd.SeatID})
	case request.CommandComplete:
		_, err = h.service.CompleteReservation(ctx, &request.CompleteReservationRequest{SessionID: sessionID, SeatIDs: cmd.SeatIDs})
	}

	if err != nil {
		h.reply(clientID, realtime.Error(h.channelErrorMessage(err, cmd.Kind)))
	}
}

func (h *ChannelHandler) join(ctx context.Context, clientID, sessionID string) error {
	if sessionID == "" {
		return &usecase.ValidationError{Fields: map[string]string{"SessionID": "This field is required"}}
	}
	if err := h.hub.Join(clientID, sessionID); err != nil {
		return err
	}

	seats, err := h.service.Snapshot(ctx)
	if err != nil {
		return err
	}
	h.reply(clientID, realtime.Joined(sessionID, seats))
	return nil
}

func (h *ChannelHandler) reply(clientID string, ev realtime.Event) {
	if err := h.hub.Send(clientID, ev); err != nil {
		h.log.Debug("Reply dropped", zap.String("client_id", clientID), zap.Error(err))
	}
}

// channelErrorMessage hides unexpected failures behind a generic message.
func (h *ChannelHandler) channelErrorMessage(err error, kind request.CommandKind) string {
	switch {
	case errors.Is(err, usecase.ErrValidation),
		errors.Is(err, repository.ErrInvalidHold),
		errors.Is(err, repository.ErrCapExceeded),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrForbidden),
		errors.Is(err, repository.ErrNotFound):
		return err.Error()
	default:
		h.log.Error("Channel command failed", zap.String("command", string(kind)), zap.Error(err))
		return "Internal server error"
	}
}
