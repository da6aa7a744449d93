package game

import "log"

// DepartureInfo is captured before a participant is removed, since removal loses the
// ordering needed to pick the next turn holder.
type DepartureInfo struct {
	ParticipantID int64
	WasCurrent    bool
	WasAsker      bool
	HadVoted      bool
	NextHolder    int64
	HasNextHolder bool
}

// PrepareDeparture analyses a departure without mutating s.
func PrepareDeparture(s *Session, participantID int64) DepartureInfo {
	info := DepartureInfo{ParticipantID: participantID}
	current, ok := s.CurrentPlayer()
	if !ok {
		return info
	}
	info.WasCurrent = current == participantID
	if s.vote != nil {
		_, info.HadVoted = s.vote.Ballots[participantID]
		info.WasAsker = s.vote.AskerID == participantID
	}

	if !info.WasCurrent {
		info.NextHolder, info.HasNextHolder = current, true
		return info
	}
	if len(s.order) < 2 {
		return info
	}
	for i, id := range s.order {
		if id == participantID {
			info.NextHolder = s.order[(i+1)%len(s.order)]
			info.HasNextHolder = true
			break
		}
	}
	return info
}

// Leave removes a participant mid-game and reconciles turn, vote and win condition.
func (c *Controller) Leave(sessionID uint, participantID int64) (*Outcome, error) {
	s, ok := c.registry.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.Lock()
	defer s.Unlock()

	if !s.HasPlayer(participantID) {
		return nil, ErrNotInSession
	}
	if s.Status == StatusFinished {
		return nil, ErrNoActiveSession
	}

	info := PrepareDeparture(s, participantID)
	out := &Outcome{SessionID: s.ID}
	c.applyDeparture(s, info, out)
	c.registry.forgetParticipant(s.ID, participantID)
	c.driveBots(s, out)
	c.settle(s, out)
	return out, nil
}

func (c *Controller) applyDeparture(s *Session, info DepartureInfo, out *Outcome) {
	id := info.ParticipantID
	departedRole, _ := s.Role(id)
	s.removePlayer(id, info.NextHolder)

	if s.vote != nil {
		if info.WasAsker {
			log.Printf("game: session %d asker %d left, discarding question %q", s.ID, id, s.vote.Question)
			s.vote = nil
			s.Status = StatusPlaying
		} else {
			if info.HadVoted {
				delete(s.vote.Ballots, id)
			}
			s.vote.Expected--
		}
	}

	left := ParticipantLeft{
		Envelope:       Envelope{SessionID: s.ID, Recipients: s.Humans()},
		DepartedID:     id,
		RemainingCount: s.PlayerCount(),
	}

	switch s.PlayerCount() {
	case 0:
		s.Status = StatusFinished
		s.vote = nil
		out.add(left)
		return
	case 1:
		sole := s.order[0]
		s.Finish(sole)
		roles := s.Roles()
		roles[id] = departedRole
		left.GameEnded = true
		left.Winner = &WinnerInfo{WinnerID: sole, WinnerRole: roles[sole], AllRoles: roles}
		log.Printf("game: session %d won by elimination by %d", s.ID, sole)
		out.add(left)
		return
	}

	if info.WasCurrent && info.HasNextHolder {
		next := info.NextHolder
		left.NextActorID = &next
	}
	out.add(left)

	if s.Status == StatusVoting && s.IsVotingComplete() {
		c.resolveVote(s, out, false)
		return
	}
	if info.WasCurrent {
		c.noticeTurn(s, out)
	}
}
