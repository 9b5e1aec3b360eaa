package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/votify/go/internal/models"
	"github.com/mcdev12/votify/go/internal/room"
)

// SnapshotProvider defines what the state handler needs to serve read-only
// room snapshots.
type SnapshotProvider interface {
	Snapshot(roomID string) (models.RoomSnapshot, error)
}

// StateHandler serves room snapshots over plain HTTP, mirroring the
// get_room_state event for clients that only need a one-shot read.
type StateHandler struct {
	provider SnapshotProvider
}

// NewStateHandler creates a new state handler.
func NewStateHandler(provider SnapshotProvider) *StateHandler {
	return &StateHandler{
		provider: provider,
	}
}

// HandleRoomState handles GET /rooms/{roomID}/state.
func (h *StateHandler) HandleRoomState(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")

	state, err := h.provider.Snapshot(roomID)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to build room snapshot")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to write room snapshot")
	}
}

// RegisterStateRoutes registers the snapshot routes with an HTTP mux.
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /rooms/{roomID}/state", h.HandleRoomState)
}
