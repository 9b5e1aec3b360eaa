package room

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/mcdev12/votify/go/internal/models"
)

// ProjectRoom builds the externally visible snapshot of a room. It is a
// pure read: the caller must hold the room's mutex. Vote values for the
// current issue only appear once the issue has been revealed.
func ProjectRoom(r *models.Room) models.RoomSnapshot {
	participants := lo.Map(r.JoinOrder, func(connID string, _ int) models.ParticipantView {
		p := r.Participants[connID]
		return models.ParticipantView{
			Name:   p.Name,
			IsHost: p.IsHost,
			Voted:  p.HasVoted,
		}
	})

	votedCount := lo.CountBy(participants, func(p models.ParticipantView) bool {
		return p.Voted
	})

	return models.RoomSnapshot{
		RoomID:           r.ID,
		Status:           r.Status,
		HostName:         r.HostName,
		HostConnectionID: r.HostConnectionID,
		Participants:     participants,
		CurrentIssue:     projectIssue(r),
		VotedCount:       votedCount,
		TotalCount:       len(participants),
	}
}

func projectIssue(r *models.Room) *models.IssueView {
	issue := r.CurrentIssue()
	if issue == nil {
		return nil
	}

	view := &models.IssueView{
		ID:       issue.ID,
		Title:    issue.Title,
		Revealed: issue.Revealed,
	}
	if !issue.Revealed {
		return view
	}

	// Emit votes in join order so snapshots are deterministic. Votes from
	// participants who have since disconnected are appended at the end,
	// labelled with the raw connection id.
	sum := 0
	seen := make(map[string]bool, len(issue.Votes))
	for _, connID := range r.JoinOrder {
		value, ok := issue.Votes[connID]
		if !ok {
			continue
		}
		view.Votes = append(view.Votes, models.VoteView{Name: r.Participants[connID].Name, Value: value})
		sum += value
		seen[connID] = true
	}
	orphaned := lo.Keys(issue.Votes)
	sort.Strings(orphaned)
	for _, connID := range orphaned {
		if seen[connID] {
			continue
		}
		view.Votes = append(view.Votes, models.VoteView{Name: connID, Value: issue.Votes[connID]})
		sum += issue.Votes[connID]
	}

	// Average falls back to 0 when nobody voted; it is not a missing field
	// once the issue is revealed.
	average := 0.0
	if len(issue.Votes) > 0 {
		average = roundTwoDecimals(float64(sum) / float64(len(issue.Votes)))
	}
	view.Average = &average

	return view
}

func roundTwoDecimals(v float64) float64 {
	return math.Round(v*100) / 100
}
