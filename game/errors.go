package game

import "fmt"

// ErrorKind classifies a failed game operation.
type ErrorKind string

const (
	KindNotInSession       ErrorKind = "not_in_session"
	KindNotYourTurn        ErrorKind = "not_your_turn"
	KindNoActiveSession    ErrorKind = "no_active_session"
	KindNoActiveVote       ErrorKind = "no_active_vote"
	KindSelfVote           ErrorKind = "self_vote"
	KindSessionNotFound    ErrorKind = "session_not_found"
	KindConfigurationError ErrorKind = "configuration_error"
	KindVoteInProgress     ErrorKind = "vote_in_progress"
	KindInvalidQuestion    ErrorKind = "invalid_question"
	KindSessionExists      ErrorKind = "session_exists"
)

// Error is the failure outcome of a game operation. Reason is shown to players as-is.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// Is matches on Kind so errors.Is(err, ErrNotYourTurn) works for any reason text.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrNotInSession       = &Error{Kind: KindNotInSession, Reason: "you are not in an active game"}
	ErrNotYourTurn        = &Error{Kind: KindNotYourTurn, Reason: "it is not your turn"}
	ErrNoActiveSession    = &Error{Kind: KindNoActiveSession, Reason: "the game is already over"}
	ErrNoActiveVote       = &Error{Kind: KindNoActiveVote, Reason: "there is no question to vote on"}
	ErrSelfVote           = &Error{Kind: KindSelfVote, Reason: "you cannot vote on your own question"}
	ErrSessionNotFound    = &Error{Kind: KindSessionNotFound, Reason: "game not found"}
	ErrEmptyRolePool      = &Error{Kind: KindConfigurationError, Reason: "role pool is empty"}
	ErrVoteInProgress     = &Error{Kind: KindVoteInProgress, Reason: "a question is already open for voting"}
	ErrEmptyQuestion      = &Error{Kind: KindInvalidQuestion, Reason: "question text is empty"}
	ErrSessionExists      = &Error{Kind: KindSessionExists, Reason: "a game is already running for this lobby"}
	ErrTooFewParticipants = &Error{Kind: KindConfigurationError, Reason: "at least 2 players are needed to start"}
)

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
