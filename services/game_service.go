package services

import (
	"context"
	"errors"
	"log"
	"sync"

	"whoami/game"
	"whoami/models"
)

// Notifier delivers intents to their recipients.
type Notifier interface {
	Dispatch(intents []game.Intent, names map[int64]string) int
}

// Presence reports which participants currently hold an open connection.
type Presence interface {
	ConnectedParticipants(sessionID uint) []int64
}

// GameService runs sessions for lobbies and keeps storage, snapshots and
// connected clients in step with the controller.
type GameService struct {
	controller *game.Controller
	store      *Store
	snapshots  *SnapshotStore
	names      *NameResolver
	notifier   Notifier
	roles      []string

	queuesMu sync.Mutex
	queues   map[uint64]*commitQueue
}

func NewGameService(controller *game.Controller, store *Store, snapshots *SnapshotStore, notifier Notifier, roles []string) *GameService {
	return &GameService{
		controller: controller,
		store:      store,
		snapshots:  snapshots,
		names:      NewNameResolver(store, snapshots.client()),
		notifier:   notifier,
		roles:      roles,
		queues:     make(map[uint64]*commitQueue),
	}
}

type StartSessionRequest struct {
	LobbyID      uint     `json:"lobby_id" binding:"required"`
	Participants []Member `json:"participants"`
}

type SubmitQuestionRequest struct {
	ParticipantID int64  `json:"participant_id" binding:"required"`
	Text          string `json:"text" binding:"required"`
}

type SubmitVoteRequest struct {
	VoterID int64  `json:"voter_id" binding:"required"`
	Vote    string `json:"vote" binding:"required"`
}

type LeaveRequest struct {
	ParticipantID int64 `json:"participant_id" binding:"required"`
}

type Stats struct {
	ActiveSessions int `json:"active_sessions"`
	PlayersOnline  int `json:"players_online"`
}

// StartSession deals roles to the lobby's seats and starts play. When the request
// lists participants they are seated after the existing seats, in the given order.
// Seats are written only once the session has started, so a rejected start leaves
// the lobby as it was.
func (s *GameService) StartSession(ctx context.Context, req *StartSessionRequest) (*game.Outcome, error) {
	seats, err := s.store.LobbyMembers(req.LobbyID)
	if err != nil && !(errors.Is(err, ErrLobbyNotFound) && len(req.Participants) > 0) {
		return nil, err
	}

	participants := make([]game.Participant, 0, len(seats)+len(req.Participants))
	seated := make(map[int64]bool, len(seats))
	for _, seat := range seats {
		seated[seat.UserID] = true
		participants = append(participants, game.Participant{ID: seat.UserID, Kind: game.KindForID(seat.UserID)})
	}
	for _, m := range req.Participants {
		if seated[m.ID] {
			continue
		}
		seated[m.ID] = true
		participants = append(participants, game.Participant{ID: m.ID, Kind: game.KindForID(m.ID)})
	}

	out, err := s.controller.StartSession(req.LobbyID, participants, s.roles)
	if err != nil {
		return nil, err
	}

	if len(req.Participants) > 0 {
		if err := s.store.SeedLobby(req.LobbyID, req.Participants); err != nil {
			s.controller.Registry().Remove(req.LobbyID)
			return nil, err
		}
	}

	roles := make(map[int64]string, len(out.Snapshot.Players))
	for _, p := range out.Snapshot.Players {
		roles[p.ID] = p.Role
	}
	if err := s.store.SaveRoles(req.LobbyID, roles); err != nil {
		log.Printf("Failed to save roles for lobby %d: %v", req.LobbyID, err)
	}

	s.commit(ctx, out)
	return out, nil
}

func (s *GameService) SubmitQuestion(ctx context.Context, sessionID uint, participantID int64, text string) (*game.Outcome, error) {
	out, err := s.controller.SubmitQuestion(sessionID, participantID, text)
	if err != nil {
		return nil, err
	}
	s.commit(ctx, out)
	return out, nil
}

func (s *GameService) SubmitVote(ctx context.Context, sessionID uint, voterID int64, yes bool) (*game.Outcome, error) {
	out, err := s.controller.SubmitVote(sessionID, voterID, yes)
	if err != nil {
		return nil, err
	}
	s.commit(ctx, out)
	return out, nil
}

// Leave removes a participant from the running session and from the lobby.
func (s *GameService) Leave(ctx context.Context, sessionID uint, participantID int64) (*game.Outcome, error) {
	out, err := s.controller.Leave(sessionID, participantID)
	if err != nil {
		return nil, err
	}
	if err := s.store.RemoveMember(sessionID, participantID); err != nil {
		log.Printf("Failed to remove participant %d from lobby %d: %v", participantID, sessionID, err)
	}
	s.names.Forget(participantID)
	s.commit(ctx, out)
	return out, nil
}

// State returns the session as seen by viewer. A session that is no longer in
// memory is served from its last stored snapshot.
func (s *GameService) State(ctx context.Context, sessionID uint, viewer int64) (*game.Snapshot, error) {
	snap, err := s.controller.Snapshot(sessionID)
	if err != nil {
		if !errors.Is(err, game.ErrSessionNotFound) {
			return nil, err
		}
		stored, loadErr := s.snapshots.Load(ctx, sessionID)
		if loadErr != nil {
			if !errors.Is(loadErr, ErrSnapshotMissing) {
				log.Printf("Error loading snapshot for session %d: %v", sessionID, loadErr)
			}
			return nil, err
		}
		snap = *stored
	}
	if viewer != 0 {
		snap = snap.ForViewer(viewer)
	} else {
		snap = snap.Public()
	}
	if p, ok := s.notifier.(Presence); ok {
		snap.Connected = p.ConnectedParticipants(sessionID)
	}
	return &snap, nil
}

func (s *GameService) History(sessionID uint, participantID int64, limit int) ([]models.QuestionHistory, error) {
	return s.store.QuestionHistory(sessionID, participantID, limit)
}

func (s *GameService) Stats() Stats {
	registry := s.controller.Registry()
	return Stats{
		ActiveSessions: registry.Count(),
		PlayersOnline:  registry.PlayersOnline(),
	}
}

// IsParticipant reports whether id plays in the running session.
func (s *GameService) IsParticipant(sessionID uint, id int64) bool {
	snap, err := s.controller.Snapshot(sessionID)
	if err != nil {
		return false
	}
	for _, p := range snap.Players {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (s *GameService) DisplayName(ctx context.Context, id int64) string {
	return s.names.Name(ctx, id)
}

// commitQueue holds outcomes of one session instance until every earlier version
// has been committed.
type commitQueue struct {
	mu      sync.Mutex
	next    uint64
	pending map[uint64]*game.Outcome
}

func (s *GameService) queue(epoch uint64) *commitQueue {
	s.queuesMu.Lock()
	defer s.queuesMu.Unlock()
	q, ok := s.queues[epoch]
	if !ok {
		q = &commitQueue{next: 1, pending: make(map[uint64]*game.Outcome)}
		s.queues[epoch] = q
	}
	return q
}

func (s *GameService) dropQueue(epoch uint64) {
	s.queuesMu.Lock()
	defer s.queuesMu.Unlock()
	delete(s.queues, epoch)
}

// commit applies outcomes in version order. An outcome that overtook an earlier one
// waits in the queue and is applied by whichever call fills the gap.
func (s *GameService) commit(ctx context.Context, out *game.Outcome) {
	q := s.queue(out.Epoch)
	q.mu.Lock()
	defer q.mu.Unlock()

	if out.Version < q.next {
		log.Printf("Dropping stale outcome %d for session %d", out.Version, out.SessionID)
		return
	}
	q.pending[out.Version] = out
	for {
		next, ok := q.pending[q.next]
		if !ok {
			return
		}
		delete(q.pending, q.next)
		q.next++
		s.apply(ctx, next)
		if next.Finished {
			s.dropQueue(next.Epoch)
			return
		}
	}
}

// apply persists what an operation changed and then notifies players. Storage
// failures are logged; the in-memory session stays authoritative.
func (s *GameService) apply(ctx context.Context, out *game.Outcome) {
	for _, entry := range out.Resolved {
		if err := s.store.SaveQuestion(out.SessionID, entry); err != nil {
			log.Printf("Failed to record question for session %d: %v", out.SessionID, err)
		}
	}

	if out.Finished {
		log.Printf("Session %d finished, winner %d", out.SessionID, out.WinnerID)
		if err := s.store.EndSession(out.SessionID); err != nil {
			log.Printf("Failed to close lobby %d: %v", out.SessionID, err)
		}
		if err := s.snapshots.Delete(ctx, out.SessionID); err != nil {
			log.Printf("Failed to delete snapshot for session %d: %v", out.SessionID, err)
		}
	} else if err := s.snapshots.Store(ctx, out.Snapshot); err != nil {
		log.Printf("Failed to store snapshot for session %d: %v", out.SessionID, err)
	}

	if s.notifier != nil && len(out.Intents) > 0 {
		names := make(map[int64]string)
		for _, intent := range out.Intents {
			for _, id := range MentionedIDs(intent) {
				if _, ok := names[id]; !ok {
					names[id] = s.names.Name(ctx, id)
				}
			}
		}
		s.notifier.Dispatch(out.Intents, names)
	}
}
