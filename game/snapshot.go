package game

import "time"

// Snapshot is a serialisable copy of a session.
type Snapshot struct {
	SessionID      uint             `json:"session_id"`
	Status         Status           `json:"status"`
	Players        []PlayerSnapshot `json:"players"`
	TurnIndex      int              `json:"turn_index"`
	CurrentActorID *int64           `json:"current_actor_id,omitempty"`
	Vote           *VoteSnapshot    `json:"vote,omitempty"`
	History        []HistoryEntry   `json:"history"`
	WinnerID       *int64           `json:"winner_id,omitempty"`
	Version        uint64           `json:"version"`
	// Connected lists participants with an open socket; filled in by the service layer.
	Connected []int64   `json:"connected,omitempty"`
	TakenAt   time.Time `json:"taken_at"`
}

type PlayerSnapshot struct {
	ID             int64  `json:"id"`
	Kind           Kind   `json:"kind"`
	Role           string `json:"role,omitempty"`
	QuestionsAsked int    `json:"questions_asked"`
}

// VoteSnapshot exposes who voted, not how.
type VoteSnapshot struct {
	Question string  `json:"question"`
	AskerID  int64   `json:"asker_id"`
	Voters   []int64 `json:"voters"`
	Expected int     `json:"expected"`
}

// Snapshot copies the session. Callers must hold the session lock.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID: s.ID,
		Status:    s.Status,
		Players:   make([]PlayerSnapshot, 0, len(s.order)),
		TurnIndex: s.turn,
		History:   s.History(),
		Version:   s.version,
		TakenAt:   time.Now().UTC(),
	}
	for _, id := range s.order {
		p := s.players[id]
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:             p.ID,
			Kind:           p.Kind,
			Role:           p.Role,
			QuestionsAsked: p.QuestionsAsked,
		})
	}
	if s.Status != StatusFinished {
		if id, ok := s.CurrentPlayer(); ok {
			snap.CurrentActorID = &id
		}
	}
	if s.vote != nil {
		vs := &VoteSnapshot{Question: s.vote.Question, AskerID: s.vote.AskerID, Expected: s.vote.Expected}
		for _, id := range s.order {
			if _, voted := s.vote.Ballots[id]; voted {
				vs.Voters = append(vs.Voters, id)
			}
		}
		snap.Vote = vs
	}
	if id, ok := s.Winner(); ok {
		snap.WinnerID = &id
	}
	return snap
}

// ForViewer hides the viewer's own role while the game is still running.
func (snap Snapshot) ForViewer(viewer int64) Snapshot {
	return snap.hideRoles(func(id int64) bool { return id == viewer })
}

// Public hides every role while the game is still running.
func (snap Snapshot) Public() Snapshot {
	return snap.hideRoles(func(int64) bool { return true })
}

func (snap Snapshot) hideRoles(hide func(id int64) bool) Snapshot {
	if snap.Status == StatusFinished {
		return snap
	}
	players := make([]PlayerSnapshot, len(snap.Players))
	copy(players, snap.Players)
	for i := range players {
		if hide(players[i].ID) {
			players[i].Role = ""
		}
	}
	snap.Players = players
	return snap
}
