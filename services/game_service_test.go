package services

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"whoami/game"
	"whoami/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu      sync.Mutex
	intents []game.Intent
	names   map[int64]string
}

func (n *recordingNotifier) Dispatch(intents []game.Intent, names map[int64]string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intents = append(n.intents, intents...)
	if n.names == nil {
		n.names = make(map[int64]string)
	}
	for id, name := range names {
		n.names[id] = name
	}
	return len(intents)
}

func (n *recordingNotifier) kinds() []game.IntentKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var kinds []game.IntentKind
	for _, i := range n.intents {
		kinds = append(kinds, i.Kind())
	}
	return kinds
}

func newTestService(t *testing.T) (*GameService, *recordingNotifier, *gorm.DB) {
	t.Helper()
	store, db := newTestStore(t)
	controller := game.NewController(game.NewRegistry(), game.Options{
		Policy: game.NewRandomPolicy(1),
		Rand:   rand.New(rand.NewSource(1)),
	})
	notifier := &recordingNotifier{}
	svc := NewGameService(controller, store, NewSnapshotStore(nil, 0), notifier, []string{"Batman", "Shrek", "Gandalf"})
	return svc, notifier, db
}

func startLobby(t *testing.T, svc *GameService) {
	t.Helper()
	_, err := svc.StartSession(context.Background(), &StartSessionRequest{
		LobbyID:      1,
		Participants: []Member{{ID: 10, Name: "Alice"}, {ID: 20, Name: "Bob"}, {ID: 30, Name: "Carol"}},
	})
	require.NoError(t, err)
}

func TestGameService_StartSession(t *testing.T) {
	svc, notifier, db := newTestService(t)
	startLobby(t, svc)

	var seats []models.LobbyPlayer
	require.NoError(t, db.Where("lobby_id = ?", 1).Find(&seats).Error)
	require.Len(t, seats, 3)
	for _, seat := range seats {
		assert.NotEmpty(t, seat.PlayerCharacter, "role for %d not stored", seat.UserID)
	}

	var lobby models.Lobby
	require.NoError(t, db.First(&lobby, 1).Error)
	assert.Equal(t, models.LobbyPlaying, lobby.Status)

	kinds := notifier.kinds()
	assert.Contains(t, kinds, game.IntentRolesDealt)
	assert.Contains(t, kinds, game.IntentTurnNotice)

	assert.Equal(t, Stats{ActiveSessions: 1, PlayersOnline: 3}, svc.Stats())
	assert.Equal(t, "Alice", notifier.names[10])
	assert.Equal(t, "Bob", notifier.names[20])
}

func TestGameService_StartFromStoredLobby(t *testing.T) {
	svc, notifier, _ := newTestService(t)
	require.NoError(t, svc.store.SeedLobby(4, []Member{{ID: 10}, {ID: -1}}))

	out, err := svc.StartSession(context.Background(), &StartSessionRequest{LobbyID: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(10), out.NextActorID)
	assert.Equal(t, "AI Bot 1", notifier.names[-1])

	_, err = svc.StartSession(context.Background(), &StartSessionRequest{LobbyID: 5})
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestGameService_ResolvedQuestionIsRecorded(t *testing.T) {
	svc, notifier, _ := newTestService(t)
	startLobby(t, svc)
	ctx := context.Background()

	_, err := svc.SubmitQuestion(ctx, 1, 10, "am I a wizard?")
	require.NoError(t, err)
	_, err = svc.SubmitVote(ctx, 1, 20, true)
	require.NoError(t, err)
	out, err := svc.SubmitVote(ctx, 1, 30, true)
	require.NoError(t, err)
	assert.Equal(t, int64(10), out.NextActorID)

	rows, err := svc.History(1, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "am I a wizard?", rows[0].Question)
	assert.Equal(t, 2, rows[0].YesVotes)
	assert.True(t, rows[0].MajorityYes)

	assert.Contains(t, notifier.kinds(), game.IntentVoteResult)
}

func TestGameService_State(t *testing.T) {
	svc, _, _ := newTestService(t)
	startLobby(t, svc)
	ctx := context.Background()

	snap, err := svc.State(ctx, 1, 20)
	require.NoError(t, err)
	for _, p := range snap.Players {
		if p.ID == 20 {
			assert.Empty(t, p.Role)
		} else {
			assert.NotEmpty(t, p.Role)
		}
	}

	snap, err = svc.State(ctx, 1, 0)
	require.NoError(t, err)
	for _, p := range snap.Players {
		assert.Empty(t, p.Role, "role of %d shown without a viewer", p.ID)
	}

	_, err = svc.State(ctx, 2, 0)
	assert.ErrorIs(t, err, game.ErrSessionNotFound)

	assert.True(t, svc.IsParticipant(1, 30))
	assert.False(t, svc.IsParticipant(1, 40))
}

func TestGameService_LeaveUntilWin(t *testing.T) {
	svc, notifier, db := newTestService(t)
	startLobby(t, svc)
	ctx := context.Background()

	_, err := svc.SubmitQuestion(ctx, 1, 10, "am I a wizard?")
	require.NoError(t, err)
	_, err = svc.SubmitVote(ctx, 1, 20, false)
	require.NoError(t, err)
	_, err = svc.SubmitVote(ctx, 1, 30, false)
	require.NoError(t, err)

	_, err = svc.Leave(ctx, 1, 20)
	require.NoError(t, err)

	var lobby models.Lobby
	require.NoError(t, db.First(&lobby, 1).Error)
	assert.Equal(t, 2, lobby.PlayerCount)

	out, err := svc.Leave(ctx, 1, 30)
	require.NoError(t, err)
	assert.True(t, out.Finished)
	assert.Equal(t, int64(10), out.WinnerID)

	require.NoError(t, db.First(&lobby, 1).Error)
	assert.Equal(t, models.LobbyWaiting, lobby.Status)
	assert.Equal(t, 1, lobby.PlayerCount)

	var seat models.LobbyPlayer
	require.NoError(t, db.Where("lobby_id = ? AND user_id = ?", 1, 10).First(&seat).Error)
	assert.Empty(t, seat.PlayerCharacter)

	rows, err := svc.History(1, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, rows, "history is cleaned when the session ends")

	assert.Contains(t, notifier.kinds(), game.IntentParticipantLeft)
	assert.Equal(t, Stats{}, svc.Stats())
}

func TestGameService_ErrorsPassThrough(t *testing.T) {
	svc, _, _ := newTestService(t)
	startLobby(t, svc)
	ctx := context.Background()

	_, err := svc.SubmitQuestion(ctx, 1, 20, "am I tall?")
	assert.ErrorIs(t, err, game.ErrNotYourTurn)

	_, err = svc.SubmitVote(ctx, 1, 20, true)
	assert.ErrorIs(t, err, game.ErrNoActiveVote)

	_, err = svc.Leave(ctx, 1, 99)
	assert.ErrorIs(t, err, game.ErrNotInSession)

	_, err = svc.StartSession(ctx, &StartSessionRequest{LobbyID: 1})
	assert.ErrorIs(t, err, game.ErrSessionExists)
}

func TestGameService_SweepExpiresVotes(t *testing.T) {
	svc, _, _ := newTestService(t)
	startLobby(t, svc)
	ctx := context.Background()

	assert.Equal(t, 0, svc.Sweep(ctx, time.Minute))

	_, err := svc.SubmitQuestion(ctx, 1, 10, "am I a wizard?")
	require.NoError(t, err)

	assert.Equal(t, 0, svc.Sweep(ctx, 0), "a zero timeout never expires votes")
	assert.Equal(t, 0, svc.Sweep(ctx, time.Hour))

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, svc.Sweep(ctx, time.Millisecond))

	snap, err := svc.State(ctx, 1, 0)
	require.NoError(t, err)
	assert.Nil(t, snap.Vote)
	require.NotNil(t, snap.CurrentActorID)
	assert.Equal(t, int64(20), *snap.CurrentActorID, "no ballots is a tie")
}

func TestGameService_RunSweeperStops(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.RunSweeper(ctx, time.Millisecond, 0)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestGameService_RejectedStartLeavesLobbyAlone(t *testing.T) {
	svc, _, db := newTestService(t)
	startLobby(t, svc)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, &StartSessionRequest{
		LobbyID:      1,
		Participants: []Member{{ID: 40, Name: "Dan"}, {ID: 50, Name: "Eve"}},
	})
	require.ErrorIs(t, err, game.ErrSessionExists)

	var seats int64
	require.NoError(t, db.Model(&models.LobbyPlayer{}).Where("lobby_id = ?", 1).Count(&seats).Error)
	assert.Equal(t, int64(3), seats)
	var lobby models.Lobby
	require.NoError(t, db.First(&lobby, 1).Error)
	assert.Equal(t, 3, lobby.PlayerCount)

	_, err = svc.StartSession(ctx, &StartSessionRequest{LobbyID: 2, Participants: []Member{{ID: 60}}})
	require.ErrorIs(t, err, game.ErrTooFewParticipants)
	_, err = svc.store.LobbyMembers(2)
	assert.ErrorIs(t, err, ErrLobbyNotFound, "no lobby row for a rejected start")
}

func TestGameService_StartAddsToStoredSeats(t *testing.T) {
	svc, _, db := newTestService(t)
	require.NoError(t, svc.store.SeedLobby(3, []Member{{ID: 10}}))

	out, err := svc.StartSession(context.Background(), &StartSessionRequest{
		LobbyID:      3,
		Participants: []Member{{ID: 20}, {ID: 10}},
	})
	require.NoError(t, err)

	var ids []int64
	for _, p := range out.Snapshot.Players {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{10, 20}, ids)

	var lobby models.Lobby
	require.NoError(t, db.First(&lobby, 3).Error)
	assert.Equal(t, 2, lobby.PlayerCount)
}

func TestGameService_CommitsInVersionOrder(t *testing.T) {
	svc, notifier, _ := newTestService(t)
	ctx := context.Background()

	notice := func(actor int64) game.Intent {
		return game.TurnNotice{Envelope: game.Envelope{SessionID: 7, Recipients: []int64{actor}}, ActorID: actor}
	}
	second := &game.Outcome{SessionID: 7, Epoch: 99, Version: 2, Intents: []game.Intent{notice(20)}}
	last := &game.Outcome{SessionID: 7, Epoch: 99, Version: 3, Finished: true, Intents: []game.Intent{notice(30)}}
	first := &game.Outcome{SessionID: 7, Epoch: 99, Version: 1, Intents: []game.Intent{notice(10)}}

	svc.commit(ctx, last)
	svc.commit(ctx, second)
	assert.Empty(t, notifier.kinds(), "nothing is applied before version 1")

	svc.commit(ctx, first)
	var actors []int64
	for _, i := range notifier.intents {
		actors = append(actors, i.(game.TurnNotice).ActorID)
	}
	assert.Equal(t, []int64{10, 20, 30}, actors)
	assert.Empty(t, svc.queues, "finished session releases its queue")
}

type presenceNotifier struct {
	recordingNotifier
	connected []int64
}

func (n *presenceNotifier) ConnectedParticipants(sessionID uint) []int64 {
	return n.connected
}

func TestGameService_StateListsConnected(t *testing.T) {
	store, _ := newTestStore(t)
	controller := game.NewController(game.NewRegistry(), game.Options{Rand: rand.New(rand.NewSource(1))})
	notifier := &presenceNotifier{connected: []int64{20}}
	svc := NewGameService(controller, store, NewSnapshotStore(nil, 0), notifier, []string{"Batman", "Shrek"})

	_, err := svc.StartSession(context.Background(), &StartSessionRequest{
		LobbyID:      1,
		Participants: []Member{{ID: 10}, {ID: 20}},
	})
	require.NoError(t, err)

	snap, err := svc.State(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{20}, snap.Connected)
}
