package game

import (
	"strings"
	"sync"
	"time"
)

// Status represents the current state of a session
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusVoting   Status = "voting"
	StatusFinished Status = "finished"
)

// Kind tells human participants apart from automated ones.
type Kind string

const (
	KindHuman     Kind = "human"
	KindAutomated Kind = "automated"
)

// KindForID applies the id convention used by the lobby store: bots have negative ids.
func KindForID(id int64) Kind {
	if id < 0 {
		return KindAutomated
	}
	return KindHuman
}

// Participant is a player inside a running session.
type Participant struct {
	ID             int64
	Kind           Kind
	Role           string
	QuestionsAsked int
}

// Vote is the ballot box for the question currently open.
type Vote struct {
	Question string
	AskerID  int64
	Ballots  map[int64]bool
	Expected int
	OpenedAt time.Time
}

// HistoryEntry is one resolved question. Individual ballots are not kept.
type HistoryEntry struct {
	AskerID     int64     `json:"asker_id"`
	Question    string    `json:"question"`
	Yes         int       `json:"yes"`
	No          int       `json:"no"`
	MajorityYes bool      `json:"majority_yes"`
	AskedAt     time.Time `json:"asked_at"`
}

// Session is the authoritative state of one running game.
// Callers must hold the session lock around every read and mutation.
type Session struct {
	ID        uint
	Status    Status
	CreatedAt time.Time

	order    []int64
	players  map[int64]*Participant
	bots     map[int64]*AutomatedPlayer
	turn     int
	vote     *Vote
	history  []HistoryEntry
	winnerID int64
	hasWin   bool

	// set when the bot loop stopped on its cap with a bot still holding the turn
	botStalled bool

	// epoch tells sessions reusing a lobby id apart; version counts committed operations
	epoch   uint64
	version uint64

	mu sync.Mutex
}

// newSession builds a session already in PLAYING; roles must cover every id.
func newSession(id uint, participants []Participant) *Session {
	s := &Session{
		ID:        id,
		Status:    StatusPlaying,
		CreatedAt: time.Now(),
		order:     make([]int64, 0, len(participants)),
		players:   make(map[int64]*Participant, len(participants)),
		bots:      make(map[int64]*AutomatedPlayer),
	}
	for _, p := range participants {
		p := p
		s.order = append(s.order, p.ID)
		s.players[p.ID] = &p
	}
	return s
}

// Lock acquires the session's write lock
func (s *Session) Lock() {
	s.mu.Lock()
}

// Unlock releases the session's write lock
func (s *Session) Unlock() {
	s.mu.Unlock()
}

// CurrentPlayer returns the id at the turn pointer.
func (s *Session) CurrentPlayer() (int64, bool) {
	if len(s.order) == 0 {
		return 0, false
	}
	return s.order[s.turn], true
}

// NextPlayer advances the turn pointer cyclically and returns the new holder.
func (s *Session) NextPlayer() (int64, bool) {
	if len(s.order) == 0 {
		return 0, false
	}
	s.turn = (s.turn + 1) % len(s.order)
	return s.CurrentPlayer()
}

func (s *Session) HasPlayer(id int64) bool {
	_, ok := s.players[id]
	return ok
}

func (s *Session) Player(id int64) (Participant, bool) {
	p, ok := s.players[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

func (s *Session) Role(id int64) (string, bool) {
	p, ok := s.players[id]
	if !ok {
		return "", false
	}
	return p.Role, true
}

// IsAutomated reports whether id is a bot in this session.
func (s *Session) IsAutomated(id int64) bool {
	p, ok := s.players[id]
	return ok && p.Kind == KindAutomated
}

// Players returns the participant ids in turn order.
func (s *Session) Players() []int64 {
	out := make([]int64, len(s.order))
	copy(out, s.order)
	return out
}

// Humans returns human participant ids in turn order, minus the excluded ones.
func (s *Session) Humans(exclude ...int64) []int64 {
	out := make([]int64, 0, len(s.order))
	for _, id := range s.order {
		if s.players[id].Kind != KindHuman || containsID(exclude, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (s *Session) PlayerCount() int {
	return len(s.order)
}

// Roles returns a copy of the full role mapping.
func (s *Session) Roles() map[int64]string {
	out := make(map[int64]string, len(s.players))
	for id, p := range s.players {
		out[id] = p.Role
	}
	return out
}

func (s *Session) Winner() (int64, bool) {
	return s.winnerID, s.hasWin
}

// History returns a copy of the resolved questions log.
func (s *Session) History() []HistoryEntry {
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// ActiveVote returns a copy of the open vote, if any.
func (s *Session) ActiveVote() (Vote, bool) {
	if s.vote == nil {
		return Vote{}, false
	}
	v := *s.vote
	v.Ballots = make(map[int64]bool, len(s.vote.Ballots))
	for id, b := range s.vote.Ballots {
		v.Ballots[id] = b
	}
	return v, true
}

// StartVote opens a vote on question asked by asker.
func (s *Session) StartVote(question string, asker int64) {
	s.Status = StatusVoting
	s.vote = &Vote{
		Question: question,
		AskerID:  asker,
		Ballots:  make(map[int64]bool),
		Expected: len(s.order) - 1,
		OpenedAt: time.Now(),
	}
}

// AddVote records a ballot. A repeated ballot from the same voter replaces the
// earlier one. Returns false without touching the ballots for the asker or when
// no vote is open.
func (s *Session) AddVote(voter int64, yes bool) bool {
	if s.vote == nil || voter == s.vote.AskerID {
		return false
	}
	s.vote.Ballots[voter] = yes
	return true
}

// IsVotingComplete reports whether every expected voter has cast a ballot.
func (s *Session) IsVotingComplete() bool {
	if s.vote == nil {
		return false
	}
	return len(s.vote.Ballots) >= s.vote.Expected
}

// VoteResults tallies the open vote.
func (s *Session) VoteResults() (yes, no int) {
	if s.vote == nil {
		return 0, 0
	}
	for _, b := range s.vote.Ballots {
		if b {
			yes++
		} else {
			no++
		}
	}
	return yes, no
}

// EndVote closes the vote and counts the question against the current player.
func (s *Session) EndVote() {
	s.Status = StatusPlaying
	s.vote = nil
	if id, ok := s.CurrentPlayer(); ok {
		s.players[id].QuestionsAsked++
	}
}

// Finish ends the session with winner.
func (s *Session) Finish(winner int64) {
	s.Status = StatusFinished
	s.vote = nil
	s.winnerID = winner
	s.hasWin = true
}

// removePlayer drops id and moves the turn pointer onto nextHolder.
func (s *Session) removePlayer(id, nextHolder int64) bool {
	if _, ok := s.players[id]; !ok {
		return false
	}
	delete(s.players, id)
	delete(s.bots, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	s.turn = 0
	for i, pid := range s.order {
		if pid == nextHolder {
			s.turn = i
			break
		}
	}
	return true
}

func (s *Session) recordHistory(e HistoryEntry) {
	s.history = append(s.history, e)
}

// MajorityYes is the vote resolution rule: ties pass the turn.
func MajorityYes(yes, no int) bool {
	return yes > no
}

// GuessMarker prefixes a final guess, e.g. "I Sherlock Holmes!".
const GuessMarker = "I "

// ParseFinalGuess returns the guessed identity when text is a final guess.
func ParseFinalGuess(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if len(text) < len(GuessMarker)+1 || !strings.HasSuffix(text, "!") {
		return "", false
	}
	if !strings.EqualFold(text[:len(GuessMarker)], GuessMarker) {
		return "", false
	}
	guess := text[len(GuessMarker) : len(text)-1]
	return strings.TrimSpace(guess), true
}

// GuessMatches compares a guess against the true role, ignoring case only.
func GuessMatches(guess, role string) bool {
	return strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(role))
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
