package game

// IntentKind names an outbound notification. The notifier uses it as the message type.
type IntentKind string

const (
	IntentRolesDealt        IntentKind = "roles_dealt"
	IntentQuestionBroadcast IntentKind = "question"
	IntentBallotRecorded    IntentKind = "ballot_recorded"
	IntentVoteResult        IntentKind = "vote_result"
	IntentTurnNotice        IntentKind = "your_turn"
	IntentGuessFailed       IntentKind = "guess_failed"
	IntentGameEnd           IntentKind = "game_end"
	IntentParticipantLeft   IntentKind = "participant_left"
)

// Intent is an abstract outbound message. Recipients never include bots.
type Intent interface {
	Kind() IntentKind
	Session() uint
	Audience() []int64
}

// Envelope carries the routing part shared by every intent.
type Envelope struct {
	SessionID  uint    `json:"session_id"`
	Recipients []int64 `json:"-"`
}

func (e Envelope) Session() uint {
	return e.SessionID
}

func (e Envelope) Audience() []int64 {
	return e.Recipients
}

// RolesDealt tells one player everybody else's role at game start.
type RolesDealt struct {
	Envelope
	ViewerID    int64            `json:"viewer_id"`
	OthersRoles map[int64]string `json:"others_roles"`
	FirstActor  int64            `json:"first_actor_id"`
}

func (RolesDealt) Kind() IntentKind { return IntentRolesDealt }

// QuestionBroadcast asks voters to answer a question about the asker's role.
type QuestionBroadcast struct {
	Envelope
	AskerID    int64  `json:"asker_id"`
	Question   string `json:"question"`
	TargetRole string `json:"target_role"`
}

func (QuestionBroadcast) Kind() IntentKind { return IntentQuestionBroadcast }

// BallotRecorded confirms a ballot to its voter.
type BallotRecorded struct {
	Envelope
	VoterID  int64 `json:"voter_id"`
	Yes      bool  `json:"yes"`
	Cast     int   `json:"cast"`
	Expected int   `json:"expected"`
}

func (BallotRecorded) Kind() IntentKind { return IntentBallotRecorded }

// VoteResult announces a resolved vote.
type VoteResult struct {
	Envelope
	AskerID     int64  `json:"asker_id"`
	Question    string `json:"question"`
	YesCount    int    `json:"yes"`
	NoCount     int    `json:"no"`
	MajorityYes bool   `json:"majority_yes"`
	NextActorID int64  `json:"next_actor_id"`
	TimedOut    bool   `json:"timed_out,omitempty"`
}

func (VoteResult) Kind() IntentKind { return IntentVoteResult }

// TurnNotice tells a player it is their turn to ask.
type TurnNotice struct {
	Envelope
	ActorID int64 `json:"actor_id"`
}

func (TurnNotice) Kind() IntentKind { return IntentTurnNotice }

// GuessFailed announces a wrong final guess.
type GuessFailed struct {
	Envelope
	GuesserID   int64  `json:"guesser_id"`
	Guess       string `json:"guess"`
	NextActorID int64  `json:"next_actor_id"`
}

func (GuessFailed) Kind() IntentKind { return IntentGuessFailed }

// GameEnd reveals every role once the game is won.
type GameEnd struct {
	Envelope
	WinnerID   int64            `json:"winner_id"`
	WinnerRole string           `json:"winner_role"`
	AllRoles   map[int64]string `json:"all_roles"`
	ByGuess    bool             `json:"by_guess"`
}

func (GameEnd) Kind() IntentKind { return IntentGameEnd }

// WinnerInfo is attached to ParticipantLeft when the departure ended the game.
type WinnerInfo struct {
	WinnerID   int64            `json:"winner_id"`
	WinnerRole string           `json:"winner_role"`
	AllRoles   map[int64]string `json:"all_roles"`
}

// ParticipantLeft announces a departure. NextActorID is set only when the departing
// player held the turn and the game goes on.
type ParticipantLeft struct {
	Envelope
	DepartedID     int64       `json:"departed_id"`
	RemainingCount int         `json:"remaining_count"`
	NextActorID    *int64      `json:"next_actor_id,omitempty"`
	GameEnded      bool        `json:"game_ended"`
	Winner         *WinnerInfo `json:"winner,omitempty"`
}

func (ParticipantLeft) Kind() IntentKind { return IntentParticipantLeft }
