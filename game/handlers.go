package game

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/PRobi23/doodlekong/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type BasicApiResponse struct {
	Successful bool   `json:"successful"`
	Message    string `json:"message,omitempty"`
}

type CreateRoomRequest struct {
	Name       string `json:"name" binding:"required"`
	MaxPlayers int    `json:"maxPlayers" binding:"required"`
}

type GameHandler struct {
	registry    *Registry
	dispatcher  *Dispatcher
	upgrader    websocket.Upgrader
	readTimeout time.Duration
	logger      zerolog.Logger
}

func NewGameHandler(registry *Registry, dispatcher *Dispatcher, allowedOrigins []string, readTimeout time.Duration, logger zerolog.Logger) *GameHandler {
	return &GameHandler{
		registry:   registry,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
		},
		readTimeout: readTimeout,
		logger:      logger,
	}
}

func (h *GameHandler) CreateRoomHandler(ctx *gin.Context) {
	var req CreateRoomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, BasicApiResponse{Message: "invalid-request"})
		return
	}

	_, err := h.registry.CreateRoom(req.Name, req.MaxPlayers)
	switch {
	case err == nil:
		h.logger.Info().Str("room", req.Name).Int("max_players", req.MaxPlayers).Msg("room created")
		ctx.JSON(http.StatusOK, BasicApiResponse{Successful: true})
	case errors.Is(err, ErrRoomExists):
		ctx.JSON(http.StatusOK, BasicApiResponse{Message: "Room already exists."})
	case errors.Is(err, ErrRoomTooSmall):
		ctx.JSON(http.StatusOK, BasicApiResponse{Message: "The minimum room size is 2."})
	case errors.Is(err, ErrRoomTooLarge):
		ctx.JSON(http.StatusOK, BasicApiResponse{Message: fmt.Sprintf("The maximum room size is %d.", h.registry.MaxRoomSize())})
	case errors.Is(err, ErrInvalidRoomName):
		ctx.JSON(http.StatusOK, BasicApiResponse{Message: "The room name must not be empty."})
	default:
		h.logger.Error().Err(err).Msg("unexpected error creating room")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, BasicApiResponse{Message: "unknown-error"})
	}
}

func (h *GameHandler) GetRoomsHandler(ctx *gin.Context) {
	query, ok := ctx.GetQuery("searchQuery")
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, BasicApiResponse{Message: "missing-search-query"})
		return
	}
	ctx.JSON(http.StatusOK, h.registry.ListRooms(query))
}

func (h *GameHandler) JoinRoomHandler(ctx *gin.Context) {
	username := ctx.Query("username")
	roomName := ctx.Query("roomName")
	if username == "" || roomName == "" {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, BasicApiResponse{Message: "missing-parameters"})
		return
	}

	room, ok := h.registry.Room(roomName)
	switch {
	case !ok:
		ctx.JSON(http.StatusOK, BasicApiResponse{Message: "Room not found."})
	case room.HasUsername(username):
		ctx.JSON(http.StatusOK, BasicApiResponse{Message: "A player with this username already joined."})
	case room.IsFull():
		ctx.JSON(http.StatusOK, BasicApiResponse{Message: "This room is already full."})
	default:
		ctx.JSON(http.StatusOK, BasicApiResponse{Successful: true})
	}
}

// DrawSocketHandler upgrades the request and runs the receive loop for the
// client id the session middleware resolved.
func (h *GameHandler) DrawSocketHandler(ctx *gin.Context) {
	clientID := session.ClientID(ctx)
	if clientID == "" {
		h.logger.Error().
			Str("ip", ctx.ClientIP()).
			Str("user_agent", ctx.Request.UserAgent()).
			Msg("client id missing, is the session middleware installed?")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, BasicApiResponse{Message: "unknown-error"})
		return
	}

	var responseHeader http.Header
	if cookies := ctx.Writer.Header().Values("Set-Cookie"); len(cookies) > 0 {
		responseHeader = http.Header{"Set-Cookie": cookies}
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, responseHeader)
	if err != nil {
		h.logger.Warn().Err(err).Str("client", clientID).Msg("websocket upgrade failed")
		return
	}

	h.dispatcher.Serve(ctx.Request.Context(), clientID, NewWebsocketConnection(conn, h.readTimeout))
}
