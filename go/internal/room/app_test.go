package room

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/votify/go/internal/models"
)

// recordingBroadcaster captures subscriptions and published snapshots so
// tests can assert on broadcast order and on the absence of broadcasts
// after rejected calls.
type recordingBroadcaster struct {
	subscriptions map[string][]string // room id -> connection ids
	published     []models.RoomSnapshot
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{subscriptions: make(map[string][]string)}
}

func (b *recordingBroadcaster) Subscribe(roomID, connectionID string) {
	b.subscriptions[roomID] = append(b.subscriptions[roomID], connectionID)
}

func (b *recordingBroadcaster) Publish(roomID string, state models.RoomSnapshot) {
	b.published = append(b.published, state)
}

func (b *recordingBroadcaster) last() models.RoomSnapshot {
	return b.published[len(b.published)-1]
}

func newTestApp() (*App, *Registry, *recordingBroadcaster) {
	registry := NewRegistry()
	broadcaster := newRecordingBroadcaster()
	app := NewApp(registry, broadcaster, clockwork.NewFakeClock())
	return app, registry, broadcaster
}

func requireSingleHost(t *testing.T, r *models.Room) {
	t.Helper()
	hosts := 0
	for _, p := range r.Participants {
		if p.IsHost {
			hosts++
		}
	}
	require.Equal(t, 1, hosts)
	require.Contains(t, r.Participants, r.HostConnectionID)
}

func TestCreateRoom(t *testing.T) {
	req := require.New(t)
	app, registry, broadcaster := newTestApp()

	roomID, state := app.CreateRoom("conn-ana", "Ana")

	req.Equal(1, registry.Count())
	r, ok := registry.Get(roomID)
	req.True(ok)
	req.Equal(models.RoomStatusIdle, r.Status)
	req.Empty(r.CurrentIssueID)
	requireSingleHost(t, r)

	req.Equal("Ana", state.HostName)
	req.Equal("conn-ana", state.HostConnectionID)
	req.Len(state.Participants, 1)
	req.True(state.Participants[0].IsHost)

	// The creator is subscribed before the initial snapshot goes out.
	req.Equal([]string{"conn-ana"}, broadcaster.subscriptions[roomID])
	req.Len(broadcaster.published, 1)
}

func TestCreateRoom_EmptyHostNameDefaults(t *testing.T) {
	req := require.New(t)
	app, _, _ := newTestApp()

	_, state := app.CreateRoom("conn-1", "")

	req.Equal("Host", state.HostName)
}

func TestJoin_UnknownRoom(t *testing.T) {
	req := require.New(t)
	app, _, broadcaster := newTestApp()

	_, err := app.Join("conn-1", "missing", "Bob")

	req.ErrorIs(err, ErrRoomNotFound)
	req.Empty(broadcaster.published)
}

func TestJoin_EmptyNameDefaults(t *testing.T) {
	req := require.New(t)
	app, _, _ := newTestApp()
	roomID, _ := app.CreateRoom("conn-ana", "Ana")

	state, err := app.Join("conn-2", roomID, "")

	req.NoError(err)
	req.Equal("Guest", state.Participants[1].Name)
}

func TestScenarioFullRoundWithConsensus(t *testing.T) {
	req := require.New(t)
	app, registry, broadcaster := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")

	state, err := app.Join("conn-bob", roomID, "Bob")
	req.NoError(err)
	req.Len(state.Participants, 2)
	req.True(state.Participants[0].IsHost)
	req.False(state.Participants[1].IsHost)

	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 1"))
	state = broadcaster.last()
	req.Equal(models.RoomStatusVoting, state.Status)
	req.Equal("Story 1", state.CurrentIssue.Title)
	req.False(state.CurrentIssue.Revealed)

	r, _ := registry.Get(roomID)
	issueID := r.CurrentIssueID

	req.NoError(app.CastVote("conn-bob", roomID, issueID, 3))
	state = broadcaster.last()
	req.True(state.Participants[1].Voted)
	req.Equal(1, state.VotedCount)
	req.Nil(state.CurrentIssue.Votes)

	req.NoError(app.Reveal("conn-ana", roomID))
	state = broadcaster.last()
	req.Equal(models.RoomStatusRevealed, state.Status)
	req.Equal([]models.VoteView{{Name: "Bob", Value: 3}}, state.CurrentIssue.Votes)
	req.Equal(3.0, *state.CurrentIssue.Average)

	req.NoError(app.NextIssue("conn-ana", roomID))
	state = broadcaster.last()
	req.Equal(models.RoomStatusIdle, state.Status)
	req.Nil(state.CurrentIssue)
	req.Zero(state.VotedCount)
	req.Empty(r.CurrentIssueID)
	// Past issues stay stored as history.
	req.Len(r.Issues, 1)
}

func TestNextIssue_NoConsensusLeavesStateUntouched(t *testing.T) {
	req := require.New(t)
	app, registry, broadcaster := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	_, err := app.Join("conn-bob", roomID, "Bob")
	req.NoError(err)
	_, err = app.Join("conn-eve", roomID, "Eve")
	req.NoError(err)

	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 1"))
	r, _ := registry.Get(roomID)
	issueID := r.CurrentIssueID

	req.NoError(app.CastVote("conn-bob", roomID, issueID, 2))
	req.NoError(app.CastVote("conn-eve", roomID, issueID, 4))
	req.NoError(app.Reveal("conn-ana", roomID))

	published := len(broadcaster.published)
	err = app.NextIssue("conn-ana", roomID)

	req.ErrorIs(err, ErrNoConsensus)
	req.Equal(models.RoomStatusRevealed, r.Status)
	req.Equal(issueID, r.CurrentIssueID)
	req.Equal(map[string]int{"conn-bob": 2, "conn-eve": 4}, r.Issues[issueID].Votes)
	// Rejected calls never broadcast.
	req.Len(broadcaster.published, published)
}

func TestNextIssue_HostVoteDoesNotCount(t *testing.T) {
	req := require.New(t)
	app, registry, _ := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	_, err := app.Join("conn-bob", roomID, "Bob")
	req.NoError(err)

	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 1"))
	r, _ := registry.Get(roomID)
	issueID := r.CurrentIssueID

	// Host votes 5, Bob votes 3; consensus is judged on non-host votes only.
	req.NoError(app.CastVote("conn-ana", roomID, issueID, 5))
	req.NoError(app.CastVote("conn-bob", roomID, issueID, 3))
	req.NoError(app.Reveal("conn-ana", roomID))

	req.NoError(app.NextIssue("conn-ana", roomID))
	req.Equal(models.RoomStatusIdle, r.Status)
}

func TestNextIssue_NoNonHostParticipants(t *testing.T) {
	req := require.New(t)
	app, _, _ := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 1"))
	req.NoError(app.Reveal("conn-ana", roomID))

	req.ErrorIs(app.NextIssue("conn-ana", roomID), ErrNoConsensus)
}

func TestNextIssue_RequiresReveal(t *testing.T) {
	req := require.New(t)
	app, _, _ := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 1"))

	req.ErrorIs(app.NextIssue("conn-ana", roomID), ErrIssueNotRevealed)
}

func TestCreateIssue_ReplacesInFlightRound(t *testing.T) {
	req := require.New(t)
	app, registry, _ := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	_, err := app.Join("conn-bob", roomID, "Bob")
	req.NoError(err)

	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 1"))
	r, _ := registry.Get(roomID)
	firstIssueID := r.CurrentIssueID
	req.NoError(app.CastVote("conn-bob", roomID, firstIssueID, 4))

	// Opening a second issue without revealing the first succeeds; the old
	// round's votes stay stored but become unreachable via currentIssue.
	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 2"))

	req.NotEqual(firstIssueID, r.CurrentIssueID)
	req.Equal(models.RoomStatusVoting, r.Status)
	req.Equal(map[string]int{"conn-bob": 4}, r.Issues[firstIssueID].Votes)
	req.False(r.Participants["conn-bob"].HasVoted)
}

func TestCreateIssue_NotHost(t *testing.T) {
	req := require.New(t)
	app, _, broadcaster := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	_, err := app.Join("conn-bob", roomID, "Bob")
	req.NoError(err)

	published := len(broadcaster.published)
	req.ErrorIs(app.CreateIssue("conn-bob", roomID, "Story 1"), ErrNotHost)
	req.Len(broadcaster.published, published)
}

func TestCastVote_OutOfRangeDoesNotMutate(t *testing.T) {
	req := require.New(t)
	app, registry, _ := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	_, err := app.Join("conn-bob", roomID, "Bob")
	req.NoError(err)
	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 1"))

	r, _ := registry.Get(roomID)
	issueID := r.CurrentIssueID

	for _, value := range []int{0, 6, -1, 100} {
		req.ErrorIs(app.CastVote("conn-bob", roomID, issueID, value), ErrVoteOutOfRange)
	}

	req.Empty(r.Issues[issueID].Votes)
	req.False(r.Participants["conn-bob"].HasVoted)
}

func TestCastVote_RejectsNonCurrentIssue(t *testing.T) {
	req := require.New(t)
	app, _, _ := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 1"))

	req.ErrorIs(app.CastVote("conn-ana", roomID, "other-issue", 3), ErrIssueNotCurrent)
}

func TestCastVote_ResubmitOverwrites(t *testing.T) {
	req := require.New(t)
	app, registry, _ := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	_, err := app.Join("conn-bob", roomID, "Bob")
	req.NoError(err)
	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 1"))

	r, _ := registry.Get(roomID)
	issueID := r.CurrentIssueID

	req.NoError(app.CastVote("conn-bob", roomID, issueID, 2))
	req.NoError(app.CastVote("conn-bob", roomID, issueID, 5))

	req.Equal(map[string]int{"conn-bob": 5}, r.Issues[issueID].Votes)
}

func TestCastVote_AcceptedAfterReveal(t *testing.T) {
	req := require.New(t)
	app, registry, _ := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	_, err := app.Join("conn-bob", roomID, "Bob")
	req.NoError(err)
	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 1"))
	req.NoError(app.Reveal("conn-ana", roomID))

	r, _ := registry.Get(roomID)
	issueID := r.CurrentIssueID

	// The authoritative side stays permissive about post-reveal votes.
	req.NoError(app.CastVote("conn-bob", roomID, issueID, 2))
	req.Equal(map[string]int{"conn-bob": 2}, r.Issues[issueID].Votes)
}

func TestReveal_Guards(t *testing.T) {
	req := require.New(t)
	app, _, _ := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	_, err := app.Join("conn-bob", roomID, "Bob")
	req.NoError(err)

	req.ErrorIs(app.Reveal("conn-ana", roomID), ErrNoCurrentIssue)

	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 1"))
	req.ErrorIs(app.Reveal("conn-bob", roomID), ErrNotHost)
	req.NoError(app.Reveal("conn-ana", roomID))
}

func TestReveal_AllowedBeforeEveryoneVoted(t *testing.T) {
	req := require.New(t)
	app, registry, _ := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	_, err := app.Join("conn-bob", roomID, "Bob")
	req.NoError(err)
	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 1"))

	req.NoError(app.Reveal("conn-ana", roomID))

	r, _ := registry.Get(roomID)
	req.Equal(models.RoomStatusRevealed, r.Status)
}

func TestReopenVoting(t *testing.T) {
	req := require.New(t)
	app, registry, _ := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	_, err := app.Join("conn-bob", roomID, "Bob")
	req.NoError(err)
	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 1"))

	r, _ := registry.Get(roomID)
	issueID := r.CurrentIssueID
	req.NoError(app.CastVote("conn-bob", roomID, issueID, 4))
	req.NoError(app.Reveal("conn-ana", roomID))

	req.NoError(app.ReopenVoting("conn-ana", roomID))

	issue := r.Issues[issueID]
	req.Empty(issue.Votes)
	req.False(issue.Revealed)
	req.Equal(models.RoomStatusVoting, r.Status)
	req.False(r.Participants["conn-bob"].HasVoted)
}

func TestDisconnect_HostFailoverFollowsJoinOrder(t *testing.T) {
	req := require.New(t)
	app, registry, broadcaster := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	_, err := app.Join("conn-bob", roomID, "Bob")
	req.NoError(err)
	_, err = app.Join("conn-eve", roomID, "Eve")
	req.NoError(err)

	app.Disconnect("conn-ana")

	r, _ := registry.Get(roomID)
	req.Equal("conn-bob", r.HostConnectionID)
	req.Equal("Bob", r.HostName)
	requireSingleHost(t, r)

	state := broadcaster.last()
	req.Equal("Bob", state.HostName)
	req.Len(state.Participants, 2)
}

func TestDisconnect_LastParticipantLeavesRoomRegistered(t *testing.T) {
	req := require.New(t)
	app, registry, _ := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")

	app.Disconnect("conn-ana")

	r, ok := registry.Get(roomID)
	req.True(ok)
	req.Empty(r.Participants)
	req.Empty(r.JoinOrder)
	req.Equal(1, registry.Count())
}

func TestDisconnect_RemovesFromEveryRoom(t *testing.T) {
	req := require.New(t)
	app, registry, _ := newTestApp()

	roomA, _ := app.CreateRoom("conn-ana", "Ana")
	roomB, _ := app.CreateRoom("conn-eve", "Eve")
	_, err := app.Join("conn-bob", roomA, "Bob")
	req.NoError(err)
	_, err = app.Join("conn-bob", roomB, "Bob")
	req.NoError(err)

	app.Disconnect("conn-bob")

	ra, _ := registry.Get(roomA)
	rb, _ := registry.Get(roomB)
	req.NotContains(ra.Participants, "conn-bob")
	req.NotContains(rb.Participants, "conn-bob")
}

func TestSnapshot_UnknownRoom(t *testing.T) {
	req := require.New(t)
	app, _, _ := newTestApp()

	_, err := app.Snapshot("missing")

	req.ErrorIs(err, ErrRoomNotFound)
}

func TestBroadcastsFollowCommitOrder(t *testing.T) {
	req := require.New(t)
	app, _, broadcaster := newTestApp()

	roomID, _ := app.CreateRoom("conn-ana", "Ana")
	_, err := app.Join("conn-bob", roomID, "Bob")
	req.NoError(err)
	req.NoError(app.CreateIssue("conn-ana", roomID, "Story 1"))

	statuses := make([]models.RoomStatus, 0, len(broadcaster.published))
	for _, state := range broadcaster.published {
		statuses = append(statuses, state.Status)
	}
	req.Equal([]models.RoomStatus{
		models.RoomStatusIdle,
		models.RoomStatusIdle,
		models.RoomStatusVoting,
	}, statuses)
}
