package room

import "errors"

// Sentinel errors for the room operations. The dispatcher maps these onto
// ack payloads; the wire strings for "room not found" and "no consensus"
// are part of the client protocol and must not change.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrNotHost          = errors.New("only the host can perform this action")
	ErrNoCurrentIssue   = errors.New("no issue is currently open")
	ErrIssueNotCurrent  = errors.New("issue is not the current issue")
	ErrIssueNotRevealed = errors.New("votes have not been revealed")
	ErrVoteOutOfRange   = errors.New("vote value out of range")
	ErrNoConsensus      = errors.New("no consensus")
)
