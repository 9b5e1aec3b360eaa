// Package relay mirrors room snapshots to NATS for external observers
// (dashboards, audit tooling). It sits strictly outside the authoritative
// path: the WebSocket broadcast never waits on it and a publish failure is
// logged, not surfaced to clients.
package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/votify/go/internal/models"
)

// Config holds NATS relay settings.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns default relay configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "votify.rooms",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// StateEnvelope is the message published for every snapshot.
type StateEnvelope struct {
	RoomID      string              `json:"roomId"`
	State       models.RoomSnapshot `json:"state"`
	PublishedAt time.Time           `json:"publishedAt"`
}

// NATSRelay publishes room snapshots to NATS subjects.
type NATSRelay struct {
	nc     *nats.Conn
	config Config
}

// NewNATSRelay connects to NATS and returns a relay.
func NewNATSRelay(config Config) (*NATSRelay, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSRelay{nc: nc, config: config}, nil
}

// PublishState mirrors one snapshot, fire-and-forget.
func (r *NATSRelay) PublishState(roomID string, state models.RoomSnapshot) {
	data, err := json.Marshal(StateEnvelope{
		RoomID:      roomID,
		State:       state,
		PublishedAt: time.Now(),
	})
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to marshal state envelope")
		return
	}

	if err := r.nc.Publish(r.SubjectFor(roomID), data); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to relay room state")
	}
}

// SubjectFor returns the subject a room's snapshots are published on.
func (r *NATSRelay) SubjectFor(roomID string) string {
	return fmt.Sprintf("%s.%s.state", r.config.SubjectPrefix, roomID)
}

// Close drains and closes the NATS connection.
func (r *NATSRelay) Close() {
	if err := r.nc.Drain(); err != nil {
		log.Error().Err(err).Msg("failed to drain NATS connection")
	}
}
