package game

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Decision is what a bot does with its turn.
type Decision struct {
	Question string
	IsGuess  bool
}

// Fact is one question a bot asked and how the table answered it.
type Fact struct {
	Question    string
	MajorityYes bool
}

// BotView is the information a bot may use to decide: everything except its own role.
type BotView struct {
	SelfID      int64
	OthersRoles map[int64]string
	History     []Fact
}

// Policy decides questions and ballots for automated players.
type Policy interface {
	Decide(view BotView) Decision
	Answer(targetRole, question string) bool
}

// AutomatedPlayer is a bot participant.
type AutomatedPlayer struct {
	ID      int64
	Role    string
	History []Fact

	policy Policy
}

func newAutomatedPlayer(id int64, role string, policy Policy) *AutomatedPlayer {
	return &AutomatedPlayer{ID: id, Role: role, policy: policy}
}

// Decide asks the policy for this bot's next move in s.
func (b *AutomatedPlayer) Decide(s *Session) Decision {
	others := s.Roles()
	delete(others, b.ID)
	history := make([]Fact, len(b.History))
	copy(history, b.History)
	return b.policy.Decide(BotView{SelfID: b.ID, OthersRoles: others, History: history})
}

// Answer returns the bot's ballot on a question about targetRole.
func (b *AutomatedPlayer) Answer(targetRole, question string) bool {
	return b.policy.Answer(targetRole, question)
}

func (b *AutomatedPlayer) RecordOutcome(question string, majorityYes bool) {
	b.History = append(b.History, Fact{Question: question, MajorityYes: majorityYes})
}

// DefaultQuestionTemplates feed RandomPolicy.
var DefaultQuestionTemplates = []string{
	"Is my character a human?",
	"Is my character fictional?",
	"Is my character from a movie?",
	"Can my character fly?",
	"Is my character alive today?",
	"Is my character famous for %s?",
}

var templateTopics = []string{"sports", "music", "science", "politics", "magic"}

// RandomPolicy asks a random templated question, never guesses and votes at random.
type RandomPolicy struct {
	templates []string
	rng       *rand.Rand
	mu        sync.Mutex
}

// NewRandomPolicy builds a RandomPolicy. A zero seed uses the clock.
func NewRandomPolicy(seed int64, templates ...string) *RandomPolicy {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if len(templates) == 0 {
		templates = DefaultQuestionTemplates
	}
	return &RandomPolicy{templates: templates, rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPolicy) Decide(view BotView) Decision {
	p.mu.Lock()
	defer p.mu.Unlock()

	q := p.templates[p.rng.Intn(len(p.templates))]
	if strings.Contains(q, "%s") {
		q = fmt.Sprintf(q, templateTopics[p.rng.Intn(len(templateTopics))])
	}
	return Decision{Question: q}
}

func (p *RandomPolicy) Answer(targetRole, question string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(2) == 1
}
