package gateway

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/votify/go/internal/models"
)

// RoomOps defines what the dispatcher needs from the room application.
type RoomOps interface {
	CreateRoom(connID, hostName string) (string, models.RoomSnapshot)
	Join(connID, roomID, name string) (models.RoomSnapshot, error)
	CreateIssue(connID, roomID, title string) error
	CastVote(connID, roomID, issueID string, value int) error
	Reveal(connID, roomID string) error
	NextIssue(connID, roomID string) error
	ReopenVoting(connID, roomID string) error
	Snapshot(roomID string) (models.RoomSnapshot, error)
	Disconnect(connID string)
}

// Dispatcher routes inbound events to room operations and produces the ack
// for the calling connection. It owns no state beyond its collaborators:
// decode, validate, dispatch, acknowledge.
type Dispatcher struct {
	ops      RoomOps
	validate *validator.Validate
}

// NewDispatcher creates a new event dispatcher.
func NewDispatcher(ops RoomOps) *Dispatcher {
	return &Dispatcher{
		ops:      ops,
		validate: validator.New(),
	}
}

// HandleMessage processes one raw inbound frame from a connection and
// returns the ack to send back to that connection. Broadcasts happen inside
// the room operations themselves; a failed request only ever affects its
// own ack.
func (d *Dispatcher) HandleMessage(connID string, raw []byte) Ack {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Debug().Str("connection_id", connID).Err(err).Msg("malformed client frame")
		return Ack{Type: MessageTypeAck, OK: false, Error: "malformed message"}
	}

	ack := d.dispatch(connID, msg)
	ack.Type = MessageTypeAck
	ack.Seq = msg.Seq
	ack.Event = msg.Event
	return ack
}

// HandleDisconnect reports a closed connection into the room application.
func (d *Dispatcher) HandleDisconnect(connID string) {
	d.ops.Disconnect(connID)
}

func (d *Dispatcher) dispatch(connID string, msg ClientMessage) Ack {
	switch msg.Event {
	case EventCreateRoom:
		var req CreateRoomRequest
		if ack, ok := d.decode(msg.Data, &req); !ok {
			return ack
		}
		roomID, _ := d.ops.CreateRoom(connID, req.HostName)
		return Ack{OK: true, RoomID: roomID}

	case EventJoinRoom:
		var req JoinRoomRequest
		if ack, ok := d.decode(msg.Data, &req); !ok {
			return ack
		}
		state, err := d.ops.Join(connID, req.RoomID, req.Name)
		if err != nil {
			return failure(err)
		}
		return Ack{OK: true, State: &state}

	case EventCreateIssue:
		var req CreateIssueRequest
		if ack, ok := d.decode(msg.Data, &req); !ok {
			return ack
		}
		return result(d.ops.CreateIssue(connID, req.RoomID, req.Title))

	case EventCastVote:
		var req CastVoteRequest
		if ack, ok := d.decode(msg.Data, &req); !ok {
			return ack
		}
		return result(d.ops.CastVote(connID, req.RoomID, req.IssueID, req.Value))

	case EventRevealVotes:
		var req RoomScopedRequest
		if ack, ok := d.decode(msg.Data, &req); !ok {
			return ack
		}
		return result(d.ops.Reveal(connID, req.RoomID))

	case EventNextIssue:
		var req RoomScopedRequest
		if ack, ok := d.decode(msg.Data, &req); !ok {
			return ack
		}
		return result(d.ops.NextIssue(connID, req.RoomID))

	case EventReopenVoting:
		var req RoomScopedRequest
		if ack, ok := d.decode(msg.Data, &req); !ok {
			return ack
		}
		return result(d.ops.ReopenVoting(connID, req.RoomID))

	case EventGetRoomState:
		var req RoomScopedRequest
		if ack, ok := d.decode(msg.Data, &req); !ok {
			return ack
		}
		state, err := d.ops.Snapshot(req.RoomID)
		if err != nil {
			return failure(err)
		}
		return Ack{OK: true, State: &state}

	default:
		log.Debug().Str("connection_id", connID).Str("event", msg.Event).Msg("unknown event")
		return Ack{OK: false, Error: "unknown event"}
	}
}

// decode unmarshals and validates a typed request payload. On failure the
// returned ack rejects the request before any room operation runs.
func (d *Dispatcher) decode(data []byte, req any) (Ack, bool) {
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, req); err != nil {
		return Ack{OK: false, Error: "invalid payload"}, false
	}
	if err := d.validate.Struct(req); err != nil {
		return Ack{OK: false, Error: "invalid payload: " + err.Error()}, false
	}
	return Ack{}, true
}

func result(err error) Ack {
	if err != nil {
		return failure(err)
	}
	return Ack{OK: true}
}

func failure(err error) Ack {
	return Ack{OK: false, Error: err.Error()}
}
