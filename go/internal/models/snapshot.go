package models

// RoomSnapshot is the externally visible projection of a room sent to
// clients. Un-revealed vote values never appear in a snapshot.
type RoomSnapshot struct {
	RoomID           string            `json:"roomId"`
	Status           RoomStatus        `json:"status"`
	HostName         string            `json:"hostName"`
	HostConnectionID string            `json:"hostConnectionId"`
	Participants     []ParticipantView `json:"participants"`
	CurrentIssue     *IssueView        `json:"currentIssue"`
	VotedCount       int               `json:"votedCount"`
	TotalCount       int               `json:"totalCount"`
}

// ParticipantView is the public shape of a participant.
type ParticipantView struct {
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
	Voted  bool   `json:"voted"`
}

// IssueView is the public shape of the current issue. Votes and Average are
// only populated once the issue has been revealed.
type IssueView struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Revealed bool       `json:"revealed"`
	Votes    []VoteView `json:"votes,omitempty"`
	Average  *float64   `json:"average,omitempty"`
}

// VoteView is one revealed vote, resolved to the voter's display name.
type VoteView struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}
