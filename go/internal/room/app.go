package room

import (
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/votify/go/internal/models"
)

// Default display names applied when a client submits an empty one.
const (
	DefaultHostName  = "Host"
	DefaultGuestName = "Guest"
	DefaultIssueName = "Issue"
)

// Broadcaster defines what the app layer needs from the transport: adding a
// connection to a room's broadcast group and fanning a snapshot out to that
// group. Keeping it an injected collaborator lets the core run under test
// without a real transport.
type Broadcaster interface {
	Subscribe(roomID, connectionID string)
	Publish(roomID string, state models.RoomSnapshot)
}

// App owns the room voting state machine. Every operation takes the acting
// connection id, validates guards before touching any state, and on success
// publishes exactly one fresh snapshot to the room's broadcast group while
// still holding the room's mutex, so subscribers observe snapshots in
// commit order. Rejected calls leave the room untouched and never
// broadcast.
type App struct {
	registry    *Registry
	broadcaster Broadcaster
	clock       clockwork.Clock
}

// NewApp creates a new room App. In production pass
// clockwork.NewRealClock(); tests use a FakeClock.
func NewApp(registry *Registry, broadcaster Broadcaster, clock clockwork.Clock) *App {
	return &App{
		registry:    registry,
		broadcaster: broadcaster,
		clock:       clock,
	}
}

// CreateRoom registers a fresh room with the caller as its host and
// subscribes the caller to the room's broadcast group. It cannot fail.
func (a *App) CreateRoom(connID, hostName string) (string, models.RoomSnapshot) {
	if hostName == "" {
		hostName = DefaultHostName
	}

	now := a.clock.Now()
	r := &models.Room{
		ID:               uuid.New().String(),
		HostConnectionID: connID,
		HostName:         hostName,
		Participants:     make(map[string]*models.Participant),
		Issues:           make(map[string]*models.Issue),
		Status:           models.RoomStatusIdle,
		CreatedAt:        now,
	}
	r.Participants[connID] = &models.Participant{
		ConnectionID: connID,
		Name:         hostName,
		IsHost:       true,
		JoinedAt:     now,
	}
	r.JoinOrder = append(r.JoinOrder, connID)
	a.registry.Insert(r)

	r.Mutex.Lock()
	defer r.Mutex.Unlock()
	a.broadcaster.Subscribe(r.ID, connID)
	state := a.publish(r)
	return r.ID, state
}

// Join adds the caller to an existing room as a regular participant and
// subscribes them to the room's broadcast group. Allowed in any status; a
// participant joining mid-round simply has not voted yet.
func (a *App) Join(connID, roomID, name string) (models.RoomSnapshot, error) {
	if name == "" {
		name = DefaultGuestName
	}

	r, ok := a.registry.Get(roomID)
	if !ok {
		return models.RoomSnapshot{}, ErrRoomNotFound
	}

	r.Mutex.Lock()
	defer r.Mutex.Unlock()

	existing, rejoined := r.Participants[connID]
	if !rejoined {
		r.JoinOrder = append(r.JoinOrder, connID)
	}
	p := &models.Participant{
		ConnectionID: connID,
		Name:         name,
		JoinedAt:     a.clock.Now(),
	}
	// A host re-joining their own room keeps host authority; stripping it
	// would leave the room with a hostConnectionId that no host carries.
	if rejoined && existing.IsHost {
		p.IsHost = true
		p.Name = existing.Name
	}
	r.Participants[connID] = p

	a.broadcaster.Subscribe(roomID, connID)
	return a.publish(r), nil
}

// CreateIssue opens a new issue for voting. Host only. There is no
// precondition on the current status: opening an issue while a round is in
// flight replaces the current issue and orphans the old round's votes (they
// stay stored under the old issue id). Every participant's voted flag is
// reset.
func (a *App) CreateIssue(connID, roomID, title string) error {
	if title == "" {
		title = DefaultIssueName
	}

	r, ok := a.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	r.Mutex.Lock()
	defer r.Mutex.Unlock()

	if connID != r.HostConnectionID {
		return ErrNotHost
	}

	issue := &models.Issue{
		ID:        uuid.New().String(),
		Title:     title,
		Votes:     make(map[string]int),
		CreatedAt: a.clock.Now(),
	}
	r.Issues[issue.ID] = issue
	r.CurrentIssueID = issue.ID
	r.Status = models.RoomStatusVoting
	r.ResetVotedFlags()

	a.publish(r)
	return nil
}

// CastVote records the caller's vote on the current issue. Re-votes before
// reveal overwrite; last value wins. Votes submitted after reveal are still
// accepted, matching the authoritative behavior of the source system.
func (a *App) CastVote(connID, roomID, issueID string, value int) error {
	r, ok := a.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	r.Mutex.Lock()
	defer r.Mutex.Unlock()

	issue := r.CurrentIssue()
	if issue == nil || issue.ID != issueID {
		return ErrIssueNotCurrent
	}
	if value < models.MinVoteValue || value > models.MaxVoteValue {
		return ErrVoteOutOfRange
	}

	issue.Votes[connID] = value
	if p, ok := r.Participants[connID]; ok {
		p.HasVoted = true
	}

	a.publish(r)
	return nil
}

// Reveal flips the current issue to revealed. Host only. The host may
// reveal before everyone has voted.
func (a *App) Reveal(connID, roomID string) error {
	r, ok := a.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	r.Mutex.Lock()
	defer r.Mutex.Unlock()

	if connID != r.HostConnectionID {
		return ErrNotHost
	}
	issue := r.CurrentIssue()
	if issue == nil {
		return ErrNoCurrentIssue
	}

	issue.Revealed = true
	r.Status = models.RoomStatusRevealed

	a.publish(r)
	return nil
}

// NextIssue closes a revealed round. Host only. The round advances only on
// consensus: every non-host participant voted and all values agree. On
// success the room returns to idle with no current issue; on no consensus
// the room is left byte-for-byte unchanged.
func (a *App) NextIssue(connID, roomID string) error {
	r, ok := a.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	r.Mutex.Lock()
	defer r.Mutex.Unlock()

	if connID != r.HostConnectionID {
		return ErrNotHost
	}
	issue := r.CurrentIssue()
	if issue == nil {
		return ErrNoCurrentIssue
	}
	if !issue.Revealed {
		return ErrIssueNotRevealed
	}

	if !EvaluateConsensus(nonHostVotes(r, issue), r.NonHostCount()) {
		return ErrNoConsensus
	}

	r.CurrentIssueID = ""
	r.Status = models.RoomStatusIdle
	r.ResetVotedFlags()

	a.publish(r)
	return nil
}

// ReopenVoting restarts the current round from scratch: votes cleared,
// issue un-revealed, everyone back to not-voted. Host only; works whether
// or not the issue was revealed.
func (a *App) ReopenVoting(connID, roomID string) error {
	r, ok := a.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	r.Mutex.Lock()
	defer r.Mutex.Unlock()

	if connID != r.HostConnectionID {
		return ErrNotHost
	}
	issue := r.CurrentIssue()
	if issue == nil {
		return ErrNoCurrentIssue
	}

	issue.Votes = make(map[string]int)
	issue.Revealed = false
	r.Status = models.RoomStatusVoting
	r.ResetVotedFlags()

	a.publish(r)
	return nil
}

// Snapshot returns the current projection of a room without mutating it.
func (a *App) Snapshot(roomID string) (models.RoomSnapshot, error) {
	r, ok := a.registry.Get(roomID)
	if !ok {
		return models.RoomSnapshot{}, ErrRoomNotFound
	}

	r.Mutex.Lock()
	defer r.Mutex.Unlock()
	return ProjectRoom(r), nil
}

// Disconnect removes the connection from every room it participates in.
// When the departing participant was the host and others remain, the first
// remaining participant in join order is promoted to host. An emptied room
// stays registered.
func (a *App) Disconnect(connID string) {
	for _, r := range a.registry.All() {
		a.removeFromRoom(r, connID)
	}
}

func (a *App) removeFromRoom(r *models.Room, connID string) {
	r.Mutex.Lock()
	defer r.Mutex.Unlock()

	if _, ok := r.Participants[connID]; !ok {
		return
	}

	delete(r.Participants, connID)
	for i, id := range r.JoinOrder {
		if id == connID {
			r.JoinOrder = append(r.JoinOrder[:i], r.JoinOrder[i+1:]...)
			break
		}
	}

	if r.HostConnectionID == connID && len(r.JoinOrder) > 0 {
		successor := r.Participants[r.JoinOrder[0]]
		successor.IsHost = true
		r.HostConnectionID = successor.ConnectionID
		r.HostName = successor.Name
	}

	a.publish(r)
}

// publish projects the room and fans the snapshot out while the room's
// mutex is held, keeping broadcast order aligned with commit order.
func (a *App) publish(r *models.Room) models.RoomSnapshot {
	state := ProjectRoom(r)
	a.broadcaster.Publish(r.ID, state)
	return state
}

func nonHostVotes(r *models.Room, issue *models.Issue) []int {
	votes := make([]int, 0, len(issue.Votes))
	for connID, value := range issue.Votes {
		p, ok := r.Participants[connID]
		if !ok || p.IsHost {
			continue
		}
		votes = append(votes, value)
	}
	return votes
}
