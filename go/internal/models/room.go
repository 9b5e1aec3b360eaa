package models

import (
	"sync"
	"time"
)

// RoomStatus represents the voting lifecycle of a room
type RoomStatus string

const (
	RoomStatusIdle     RoomStatus = "idle"
	RoomStatusVoting   RoomStatus = "voting"
	RoomStatusRevealed RoomStatus = "revealed"
)

// Vote values accepted for any issue
const (
	MinVoteValue = 1
	MaxVoteValue = 5
)

// Participant represents one connected actor in a room. Participants are
// keyed by connection id, not name; duplicate display names are allowed.
type Participant struct {
	ConnectionID string
	Name         string
	IsHost       bool
	HasVoted     bool
	JoinedAt     time.Time
}

// Issue represents one estimation item subject to a vote round. Issues are
// retained after the round advances; they simply stop being current.
type Issue struct {
	ID        string
	Title     string
	Votes     map[string]int // connection id -> vote value
	Revealed  bool
	CreatedAt time.Time
}

// Room is the unit of isolation for one estimation session. All cross
// references (votes to participants, current issue) are resolved by id
// through the room's own maps, never via back-pointers.
type Room struct {
	ID               string
	HostConnectionID string
	HostName         string
	Participants     map[string]*Participant
	// JoinOrder holds connection ids in arrival order. It drives host
	// failover and the participant order in snapshots.
	JoinOrder      []string
	Issues         map[string]*Issue
	CurrentIssueID string // empty when no round is active
	Status         RoomStatus
	CreatedAt      time.Time

	// Mutex serializes all operations on this room. Held across
	// mutate, project and broadcast enqueue so every subscriber
	// observes snapshots in commit order.
	Mutex sync.Mutex
}

// CurrentIssue returns the active issue, or nil when the room is idle.
func (r *Room) CurrentIssue() *Issue {
	if r.CurrentIssueID == "" {
		return nil
	}
	return r.Issues[r.CurrentIssueID]
}

// NonHostCount returns the number of participants excluding the host.
func (r *Room) NonHostCount() int {
	count := 0
	for _, p := range r.Participants {
		if !p.IsHost {
			count++
		}
	}
	return count
}

// ResetVotedFlags clears the HasVoted flag on every participant. Called
// whenever the current issue changes or its vote set is cleared.
func (r *Room) ResetVotedFlags() {
	for _, p := range r.Participants {
		p.HasVoted = false
	}
}
