package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/qazaqedu/iquiz-server/internal/core"
	"github.com/qazaqedu/iquiz-server/internal/proto"
	"github.com/qazaqedu/iquiz-server/internal/service"
)

// Handlers provides HTTP handlers for the room lifecycle endpoints.
type Handlers struct {
	svc     *service.Service
	limiter *rateLimiter
	log     *zerolog.Logger
}

// NewHandlers creates the lifecycle handlers. createPerMinute caps room
// creation; zero disables the cap.
func NewHandlers(svc *service.Service, createPerMinute int, logger *zerolog.Logger) *Handlers {
	return &Handlers{
		svc:     svc,
		limiter: newRateLimiter(createPerMinute),
		log:     logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CreateRoomRequest represents the create room request body. All fields are
// optional; an empty body creates an anonymous room.
type CreateRoomRequest struct {
	HostName   string `json:"host_name"`
	HostAvatar string `json:"host_avatar"`
}

// CreateRoomResponse is returned to the host.
type CreateRoomResponse struct {
	RoomID    string                `json:"roomId"`
	Players   []proto.PlayerPayload `json:"players"`
	HostToken string                `json:"hostToken"`
}

// JoinRoomRequest represents the join request body.
type JoinRoomRequest struct {
	RoomCode string `json:"room_code" binding:"required"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

// JoinRoomResponse is the identity handed back to the joining player.
type JoinRoomResponse struct {
	PlayerID string `json:"playerId"`
	RoomID   string `json:"roomId"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

// RoomStateResponse is the soft-fail state query body.
type RoomStateResponse struct {
	Exists  bool                  `json:"exists"`
	RoomID  string                `json:"roomId"`
	Status  string                `json:"status,omitempty"`
	Players []proto.PlayerPayload `json:"players"`
}

// StartRoomResponse confirms the lifecycle transition.
type StartRoomResponse struct {
	RoomID string `json:"roomId"`
	Status string `json:"status"`
}

// HistoryEntry is one archived room in the history listing.
type HistoryEntry struct {
	RoomID    string     `json:"roomId"`
	HostName  string     `json:"hostName"`
	CreatedAt time.Time  `json:"createdAt"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	JoinCount int        `json:"joinCount"`
}

// CreateRoom handles room creation.
// POST /api/iquiz/create
func (h *Handlers) CreateRoom(c *gin.Context) {
	if !h.limiter.allow() {
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many rooms created, slow down"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	created, err := h.svc.CreateRoom(c.Request.Context(), req.HostName, req.HostAvatar)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, CreateRoomResponse{
		RoomID:    created.RoomID,
		Players:   proto.FromPlayers(created.Players),
		HostToken: created.HostToken,
	})
}

// JoinRoom handles a player joining a room by code.
// POST /api/iquiz/join
func (h *Handlers) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid join request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	joined, err := h.svc.JoinRoom(c.Request.Context(), req.RoomCode, req.Name, req.Avatar)
	if err != nil {
		h.writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, JoinRoomResponse{
		PlayerID: joined.PlayerID,
		RoomID:   joined.RoomID,
		Name:     joined.Name,
		Avatar:   joined.Avatar,
	})
}

// RoomState handles the bootstrap state query. Unknown rooms answer 200 with
// exists:false so clients can render an empty room instead of an error page.
// GET /api/iquiz/room/:roomId/state
func (h *Handlers) RoomState(c *gin.Context) {
	view := h.svc.RoomState(c.Request.Context(), c.Param("roomId"))

	c.JSON(http.StatusOK, RoomStateResponse{
		Exists:  view.Exists,
		RoomID:  view.RoomID,
		Status:  string(view.Status),
		Players: proto.FromPlayers(view.Players),
	})
}

// StartRoom transitions a room to started. The host token middleware has
// already verified the caller holds the token for this room.
// POST /api/iquiz/room/:roomId/start
func (h *Handlers) StartRoom(c *gin.Context) {
	view, err := h.svc.StartRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		h.writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, StartRoomResponse{
		RoomID: view.RoomID,
		Status: string(view.Status),
	})
}

// History lists recently archived rooms.
// GET /api/iquiz/history?limit=20
func (h *Handlers) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 100", Code: core.ErrCodeBadRequest})
		return
	}

	records, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list room history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, HistoryEntry{
			RoomID:    rec.RoomID,
			HostName:  rec.HostName,
			CreatedAt: rec.CreatedAt,
			StartedAt: rec.StartedAt,
			JoinCount: rec.JoinCount,
		})
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handlers) writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found", Code: core.ErrCodeRoomNotFound})
	case errors.Is(err, core.ErrInvalidName):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name must not be empty", Code: core.ErrCodeInvalidName})
	case errors.Is(err, core.ErrRoomStarted):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "quiz already started", Code: core.ErrCodeRoomStarted})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unexpected domain error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
