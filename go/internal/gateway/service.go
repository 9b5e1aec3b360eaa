package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service is the room gateway: it owns the WebSocket connections, routes
// inbound events to the room application, and fans snapshots back out.
type Service struct {
	connectionManager *ConnectionManager
	dispatcher        *Dispatcher
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
}

// NewService creates a new room gateway service. The connection manager is
// built by the caller first so it can double as the room application's
// broadcaster; the service wires the dispatcher into it.
func NewService(connectionManager *ConnectionManager, ops RoomOps) *Service {
	dispatcher := NewDispatcher(ops)
	connectionManager.SetDispatcher(dispatcher)

	return &Service{
		connectionManager: connectionManager,
		dispatcher:        dispatcher,
		wsHandler:         NewWebSocketHandler(connectionManager),
		stateHandler:      NewStateHandler(ops),
	}
}

// Start runs the broadcast loop until the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting room gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("room gateway service stopped")
}

// RegisterRoutes registers the WebSocket and snapshot HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("room gateway routes registered")
}
