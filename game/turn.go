package game

import (
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures a Controller.
type Options struct {
	// Policy drives every automated participant. Defaults to a RandomPolicy.
	Policy Policy
	// Rand deals roles. Defaults to a clock-seeded source.
	Rand Rand
	// BotTurnLimit caps consecutive bot turns driven by one call.
	// Zero means one rotation of the participant list.
	BotTurnLimit int
}

// Outcome is the result of a successful controller operation.
type Outcome struct {
	SessionID   uint
	Status      Status
	NextActorID int64
	HasActor    bool
	Finished    bool
	WinnerID    int64
	Intents     []Intent
	// Resolved lists the questions resolved during the call, oldest first.
	Resolved []HistoryEntry

	// Epoch identifies the session instance and Version orders its outcomes;
	// versions of one epoch run 1, 2, 3 without gaps.
	Epoch   uint64
	Version uint64
	// Snapshot is the session state right after the operation.
	Snapshot Snapshot
}

func (o *Outcome) add(i Intent) {
	o.Intents = append(o.Intents, i)
}

// Controller runs the question, vote and resolution cycle for every session in a registry.
type Controller struct {
	registry     *Registry
	policy       Policy
	rng          Rand
	rngMu        sync.Mutex
	botTurnLimit int
	epochs       atomic.Uint64
}

// NewController creates a controller over registry
func NewController(registry *Registry, opts Options) *Controller {
	if opts.Policy == nil {
		opts.Policy = NewRandomPolicy(0)
	}
	if opts.Rand == nil {
		opts.Rand = newClockRand()
	}
	return &Controller{
		registry:     registry,
		policy:       opts.Policy,
		rng:          opts.Rand,
		botTurnLimit: opts.BotTurnLimit,
	}
}

// Registry returns the registry the controller mutates.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// StartSession deals roles and registers a new session in PLAYING.
// Participants keep the given order; it is the turn order.
func (c *Controller) StartSession(sessionID uint, participants []Participant, rolePool []string) (*Outcome, error) {
	if len(participants) < 2 {
		return nil, ErrTooFewParticipants
	}
	ids := make([]int64, 0, len(participants))
	seen := make(map[int64]bool, len(participants))
	for _, p := range participants {
		if seen[p.ID] {
			return nil, newError(KindConfigurationError, "participant %d is listed twice", p.ID)
		}
		seen[p.ID] = true
		ids = append(ids, p.ID)
	}

	c.rngMu.Lock()
	roles, err := AssignRoles(ids, rolePool, c.rng)
	c.rngMu.Unlock()
	if err != nil {
		return nil, err
	}

	dealt := make([]Participant, len(participants))
	for i, p := range participants {
		if p.Kind == "" {
			p.Kind = KindForID(p.ID)
		}
		dealt[i] = Participant{ID: p.ID, Kind: p.Kind, Role: roles[p.ID]}
	}
	s := newSession(sessionID, dealt)
	s.epoch = c.epochs.Add(1)
	for _, p := range dealt {
		if p.Kind == KindAutomated {
			s.bots[p.ID] = newAutomatedPlayer(p.ID, p.Role, c.policy)
		}
	}

	s.Lock()
	defer s.Unlock()
	if err := c.registry.add(s); err != nil {
		return nil, err
	}
	log.Printf("game: session %d started with %d players (%d bots)", s.ID, len(dealt), len(s.bots))

	out := &Outcome{SessionID: s.ID}
	first, _ := s.CurrentPlayer()
	for _, viewer := range s.Humans() {
		others := s.Roles()
		delete(others, viewer)
		out.add(RolesDealt{
			Envelope:    Envelope{SessionID: s.ID, Recipients: []int64{viewer}},
			ViewerID:    viewer,
			OthersRoles: others,
			FirstActor:  first,
		})
	}
	c.noticeTurn(s, out)
	c.driveBots(s, out)
	c.settle(s, out)
	return out, nil
}

// SubmitQuestion handles a question (or final guess) from the turn holder.
func (c *Controller) SubmitQuestion(sessionID uint, participantID int64, text string) (*Outcome, error) {
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
	if current, _ := s.CurrentPlayer(); current != participantID {
		return nil, ErrNotYourTurn
	}
	if s.Status == StatusVoting {
		return nil, ErrVoteInProgress
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuestion
	}

	out := &Outcome{SessionID: s.ID}
	c.ask(s, participantID, text, out)
	c.driveBots(s, out)
	c.settle(s, out)
	return out, nil
}

// SubmitVote records a ballot on the open question and resolves the vote once complete.
func (c *Controller) SubmitVote(sessionID uint, voterID int64, yes bool) (*Outcome, error) {
	s, ok := c.registry.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.Lock()
	defer s.Unlock()

	if !s.HasPlayer(voterID) {
		return nil, ErrNotInSession
	}
	if s.Status != StatusVoting || s.vote == nil {
		return nil, ErrNoActiveVote
	}
	if voterID == s.vote.AskerID {
		return nil, ErrSelfVote
	}
	s.AddVote(voterID, yes)

	out := &Outcome{SessionID: s.ID}
	if !s.IsAutomated(voterID) {
		out.add(BallotRecorded{
			Envelope: Envelope{SessionID: s.ID, Recipients: []int64{voterID}},
			VoterID:  voterID,
			Yes:      yes,
			Cast:     len(s.vote.Ballots),
			Expected: s.vote.Expected,
		})
	}
	if s.IsVotingComplete() {
		c.resolveVote(s, out, false)
		c.driveBots(s, out)
	}
	c.settle(s, out)
	return out, nil
}

// ExpireVote resolves the open vote with the ballots cast so far when it has been
// open longer than maxAge. It returns nil when there was nothing to expire.
func (c *Controller) ExpireVote(sessionID uint, maxAge time.Duration) (*Outcome, error) {
	s, ok := c.registry.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.Lock()
	defer s.Unlock()

	if s.Status != StatusVoting || s.vote == nil || time.Since(s.vote.OpenedAt) < maxAge {
		return nil, nil
	}
	log.Printf("game: session %d vote timed out with %d/%d ballots", s.ID, len(s.vote.Ballots), s.vote.Expected)
	out := &Outcome{SessionID: s.ID}
	c.resolveVote(s, out, true)
	c.driveBots(s, out)
	c.settle(s, out)
	return out, nil
}

// Nudge resumes bot turns that stopped on the loop cap. It returns nil when no bot
// is waiting.
func (c *Controller) Nudge(sessionID uint) (*Outcome, error) {
	s, ok := c.registry.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.Lock()
	defer s.Unlock()

	if !s.botStalled || s.Status != StatusPlaying {
		return nil, nil
	}
	out := &Outcome{SessionID: s.ID}
	c.driveBots(s, out)
	c.settle(s, out)
	return out, nil
}

// Snapshot returns the current state of a session.
func (c *Controller) Snapshot(sessionID uint) (Snapshot, error) {
	s, ok := c.registry.Get(sessionID)
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	s.Lock()
	defer s.Unlock()
	return s.Snapshot(), nil
}

// ask opens a vote on text, or resolves it as a final guess.
func (c *Controller) ask(s *Session, asker int64, text string, out *Outcome) {
	if guess, ok := ParseFinalGuess(text); ok {
		c.resolveFinalGuess(s, asker, guess, out)
		return
	}

	s.StartVote(text, asker)
	role, _ := s.Role(asker)
	out.add(QuestionBroadcast{
		Envelope:   Envelope{SessionID: s.ID, Recipients: s.Humans(asker)},
		AskerID:    asker,
		Question:   text,
		TargetRole: role,
	})

	for _, id := range s.order {
		bot, ok := s.bots[id]
		if !ok || id == asker {
			continue
		}
		s.AddVote(id, bot.Answer(role, text))
	}
	if s.IsVotingComplete() {
		c.resolveVote(s, out, false)
	}
}

func (c *Controller) resolveVote(s *Session, out *Outcome, timedOut bool) {
	v := s.vote
	yes, no := s.VoteResults()
	majorityYes := MajorityYes(yes, no)
	s.EndVote()

	entry := HistoryEntry{
		AskerID:     v.AskerID,
		Question:    v.Question,
		Yes:         yes,
		No:          no,
		MajorityYes: majorityYes,
		AskedAt:     v.OpenedAt,
	}
	s.recordHistory(entry)
	out.Resolved = append(out.Resolved, entry)
	if bot, ok := s.bots[v.AskerID]; ok {
		bot.RecordOutcome(v.Question, majorityYes)
	}

	if !majorityYes {
		s.NextPlayer()
	}
	next, _ := s.CurrentPlayer()
	out.add(VoteResult{
		Envelope:    Envelope{SessionID: s.ID, Recipients: s.Humans()},
		AskerID:     v.AskerID,
		Question:    v.Question,
		YesCount:    yes,
		NoCount:     no,
		MajorityYes: majorityYes,
		NextActorID: next,
		TimedOut:    timedOut,
	})
	c.noticeTurn(s, out)
}

func (c *Controller) resolveFinalGuess(s *Session, guesser int64, guess string, out *Outcome) {
	role, _ := s.Role(guesser)
	if GuessMatches(guess, role) {
		s.Finish(guesser)
		log.Printf("game: session %d won by %d (%s)", s.ID, guesser, role)
		out.add(GameEnd{
			Envelope:   Envelope{SessionID: s.ID, Recipients: s.Humans()},
			WinnerID:   guesser,
			WinnerRole: role,
			AllRoles:   s.Roles(),
			ByGuess:    true,
		})
		return
	}

	if bot, ok := s.bots[guesser]; ok {
		bot.RecordOutcome(GuessMarker+guess+"!", false)
	}
	next, _ := s.NextPlayer()
	out.add(GuessFailed{
		Envelope:    Envelope{SessionID: s.ID, Recipients: s.Humans()},
		GuesserID:   guesser,
		Guess:       guess,
		NextActorID: next,
	})
	c.noticeTurn(s, out)
}

// driveBots plays bot turns until a human holds the turn, a vote waits on humans,
// the game ends or the loop cap is reached.
func (c *Controller) driveBots(s *Session, out *Outcome) {
	limit := c.botTurnLimit
	if limit <= 0 {
		limit = len(s.order)
	}
	s.botStalled = false

	for turns := 0; s.Status == StatusPlaying; turns++ {
		actor, ok := s.CurrentPlayer()
		if !ok {
			return
		}
		bot, isBot := s.bots[actor]
		if !isBot {
			return
		}
		if turns >= limit {
			s.botStalled = true
			log.Printf("game: session %d stopped after %d consecutive bot turns; bot %d keeps the turn", s.ID, turns, actor)
			return
		}

		d := bot.Decide(s)
		if d.IsGuess {
			guess := d.Question
			if parsed, ok := ParseFinalGuess(guess); ok {
				guess = parsed
			}
			c.resolveFinalGuess(s, actor, guess, out)
			continue
		}
		q := strings.TrimSpace(d.Question)
		if q == "" {
			q = DefaultQuestionTemplates[0]
		}
		c.ask(s, actor, q, out)
	}
}

func (c *Controller) noticeTurn(s *Session, out *Outcome) {
	if s.Status == StatusFinished {
		return
	}
	actor, ok := s.CurrentPlayer()
	if !ok || s.IsAutomated(actor) {
		return
	}
	out.add(TurnNotice{
		Envelope: Envelope{SessionID: s.ID, Recipients: []int64{actor}},
		ActorID:  actor,
	})
}

// settle fills the outcome summary, bumps the session version and drops finished
// sessions from the registry.
func (c *Controller) settle(s *Session, out *Outcome) {
	s.version++
	out.Status = s.Status
	out.Epoch = s.epoch
	out.Version = s.version
	out.Snapshot = s.Snapshot()
	if s.Status == StatusFinished {
		out.Finished = true
		out.WinnerID, _ = s.Winner()
		c.registry.Remove(s.ID)
		return
	}
	out.NextActorID, out.HasActor = s.CurrentPlayer()
}
