package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/qazaqedu/iquiz-server/internal/core"
	"github.com/qazaqedu/iquiz-server/internal/hub"
	"github.com/qazaqedu/iquiz-server/internal/proto"
	"github.com/qazaqedu/iquiz-server/internal/service"
)

// WSHandler upgrades room stream requests and bridges them to the hub.
type WSHandler struct {
	hub *hub.Hub
	svc *service.Service
	log *zerolog.Logger
}

// NewWSHandler builds the room stream handler.
func NewWSHandler(h *hub.Hub, svc *service.Service, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: h, svc: svc, log: logger}
}

// Handle serves GET /api/iquiz/ws/:roomId.
func (h *WSHandler) Handle(c *gin.Context) {
	roomID := core.NormalizeCode(c.Param("roomId"))
	ctx := c.Request.Context()

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	sub := h.hub.Subscribe(roomID)
	defer h.hub.Unsubscribe(sub)

	// Bootstrap the new connection with the current player list, then tell
	// the whole room a connection attached. The snapshot is queued while the
	// room's event order is pinned, so a join racing the attach cannot slip
	// its delta ahead of a staler snapshot. Unknown rooms get no snapshot;
	// the client keeps its soft-failed empty view.
	view := h.svc.RoomStateSync(roomID, func(v service.StateView) {
		h.deliver(sub, proto.NewSnapshot(core.RoomState{RoomID: v.RoomID, Status: v.Status, Players: v.Players}))
	})
	if view.Exists {
		h.hub.Broadcast(roomID, proto.NewConnected(len(view.Players)))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sub)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sub)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("room_id", roomID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop consumes inbound frames. Every frame counts as liveness; a ping
// gets a pong queued behind any pending room events. Frames that are not
// valid JSON or carry an unknown type are ignored rather than killing the
// connection.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sub *hub.Subscriber) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		sub.Touch()

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Debug().Str("room_id", sub.RoomID()).Msg("ignoring malformed ws frame")
			continue
		}

		if inbound.Type == proto.InboundTypePing {
			h.deliver(sub, proto.NewPong())
		}
	}
}

// writeLoop is the only writer to the stream; it drains the subscriber's
// queue until the hub drops it or the connection dies.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *hub.Subscriber) error {
	for {
		select {
		case frame := <-sub.Events():
			if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
				h.log.Debug().Err(err).Str("room_id", sub.RoomID()).Msg("write ws event")
				return err
			}
		case <-sub.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) deliver(sub *hub.Subscriber, payload any) {
	frame, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", sub.RoomID()).Msg("marshal ws payload")
		return
	}
	sub.Deliver(frame)
}
