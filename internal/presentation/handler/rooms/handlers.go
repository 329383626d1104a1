package rooms

import (
	"errors"
	"log"
	"net/http"

	"codepair/internal/domain"
	"codepair/internal/infrastructure/events"
	"codepair/internal/infrastructure/json"
	"codepair/internal/infrastructure/metrics"
	"codepair/internal/infrastructure/ws"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	roomRegistry domain.RoomRegistry
	roomManager  *ws.RoomManager
	core         *ws.Core
	publisher    *events.RoomPublisher
	metrics      *metrics.Metrics
}

func NewHandler(
	roomRegistry domain.RoomRegistry,
	roomManager *ws.RoomManager,
	core *ws.Core,
	publisher *events.RoomPublisher,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		roomRegistry: roomRegistry,
		roomManager:  roomManager,
		core:         core,
		publisher:    publisher,
		metrics:      m,
	}
}

// CreateRoomHandler provisions an empty room and hands back its id. The
// room holds no participants until someone joins over the socket.
func (h *Handler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	room, err := h.roomRegistry.Create(ctx)
	if err != nil {
		log.Printf("Failed to create room: %v", err)
		json.WriteInternalError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RoomsCreated.Inc()
		h.metrics.ActiveRooms.Inc()
	}

	if err := h.publisher.PublishRoomCreated(ctx, room); err != nil {
		log.Printf("Failed to publish room created event for %s: %v", room.ID, err)
	}

	json.Write(w, http.StatusCreated, createRoomResponse{
		RoomID: room.ID,
	})
}

// GetRoomHandler reports whether a room exists and its current shape,
// without the document body.
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	room, err := h.roomRegistry.Get(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			json.WriteNotFoundError(w, "Room not found")
			return
		}
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, roomResponse{
		RoomID:           room.ID,
		Language:         room.Language,
		ParticipantCount: room.ParticipantCount(),
	})
}

// ServeWS upgrades the connection and starts its pumps. Room membership is
// not decided here: the client drives it with join-room and leave-room
// events over this one socket.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.roomManager.Upgrade(w, r)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := ws.NewClient(conn, uuid.NewString())

	h.core.Register() <- client

	go client.WriteMessage()
	go client.ReadMessage(h.core)
}
