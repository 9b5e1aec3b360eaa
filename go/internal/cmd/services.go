package main

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/votify/go/internal/gateway"
	"github.com/mcdev12/votify/go/internal/models"
	"github.com/mcdev12/votify/go/internal/relay"
	"github.com/mcdev12/votify/go/internal/room"
)

type Services struct {
	RoomApp *room.App
	Gateway *gateway.Service
	Relay   *relay.NATSRelay
}

func setupServices(config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Registry → room app → gateway, with the connection manager doubling
	// as the app's broadcaster.

	wsConfig := gateway.DefaultConnectionConfig()
	wsConfig.WriteTimeout = config.writeTimeout()
	wsConfig.ReadTimeout = config.readTimeout()
	wsConfig.PingInterval = config.pingInterval()
	wsConfig.SendBuffer = config.Websocket.SendBuffer
	connectionManager := gateway.NewConnectionManager(wsConfig)

	var broadcaster room.Broadcaster = connectionManager
	var natsRelay *relay.NATSRelay
	if config.Relay.URL != "" {
		relayConfig := relay.DefaultConfig()
		relayConfig.URL = config.Relay.URL
		if config.Relay.SubjectPrefix != "" {
			relayConfig.SubjectPrefix = config.Relay.SubjectPrefix
		}

		var err error
		natsRelay, err = relay.NewNATSRelay(relayConfig)
		if err != nil {
			return nil, err
		}
		broadcaster = &relayingBroadcaster{primary: connectionManager, relay: natsRelay}
		log.Info().Str("url", config.Relay.URL).Msg("NATS snapshot relay enabled")
	}

	registry := room.NewRegistry()
	roomApp := room.NewApp(registry, broadcaster, clockwork.NewRealClock())
	gatewayService := gateway.NewService(connectionManager, roomApp)

	return &Services{
		RoomApp: roomApp,
		Gateway: gatewayService,
		Relay:   natsRelay,
	}, nil
}

// relayingBroadcaster fans snapshots to the WebSocket subscribers first and
// then mirrors them to NATS. The relay never gates the client broadcast.
type relayingBroadcaster struct {
	primary room.Broadcaster
	relay   *relay.NATSRelay
}

func (b *relayingBroadcaster) Subscribe(roomID, connectionID string) {
	b.primary.Subscribe(roomID, connectionID)
}

func (b *relayingBroadcaster) Publish(roomID string, state models.RoomSnapshot) {
	b.primary.Publish(roomID, state)
	b.relay.PublishState(roomID, state)
}
