package gateway

import (
	"encoding/json"

	"github.com/mcdev12/votify/go/internal/models"
)

// Inbound event names. Each carries a request payload and is acknowledged
// with a result; the names are part of the client protocol.
const (
	EventCreateRoom   = "create_room"
	EventJoinRoom     = "join_room"
	EventCreateIssue  = "create_issue"
	EventCastVote     = "cast_vote"
	EventRevealVotes  = "reveal_votes"
	EventNextIssue    = "next_issue"
	EventReopenVoting = "reopen_voting"
	EventGetRoomState = "get_room_state"
)

// Server-to-client message types.
const (
	MessageTypeAck       = "ack"
	MessageTypeRoomState = "room_state"
)

// ClientMessage is the envelope for every inbound event. Seq is echoed back
// on the ack so clients can correlate request and result.
type ClientMessage struct {
	Seq   int64           `json:"seq"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Ack is the per-request result sent only to the calling connection.
// Failures never produce a broadcast.
type Ack struct {
	Type   string               `json:"type"`
	Seq    int64                `json:"seq"`
	Event  string               `json:"event,omitempty"`
	OK     bool                 `json:"ok"`
	Error  string               `json:"error,omitempty"`
	RoomID string               `json:"roomId,omitempty"`
	State  *models.RoomSnapshot `json:"state,omitempty"`
}

// StateMessage carries the full room snapshot to every subscriber after a
// successful mutation. Clients never receive partial diffs.
type StateMessage struct {
	Type   string              `json:"type"`
	RoomID string              `json:"roomId"`
	State  models.RoomSnapshot `json:"state"`
}

// Typed request payloads. Validation runs at the boundary so malformed
// input is rejected before it reaches any room operation.

type CreateRoomRequest struct {
	HostName string `json:"hostName" validate:"max=64"`
}

type JoinRoomRequest struct {
	RoomID string `json:"roomId" validate:"required"`
	Name   string `json:"name" validate:"max=64"`
}

type CreateIssueRequest struct {
	RoomID string `json:"roomId" validate:"required"`
	Title  string `json:"title" validate:"max=200"`
}

type CastVoteRequest struct {
	RoomID  string `json:"roomId" validate:"required"`
	IssueID string `json:"issueId" validate:"required"`
	Value   int    `json:"value" validate:"required,min=1,max=5"`
}

type RoomScopedRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}
