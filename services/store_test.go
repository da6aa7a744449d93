package services

import (
	"testing"
	"time"

	"whoami/game"
	"whoami/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	// every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	store := NewStore(db)
	require.NoError(t, store.Migrate())
	return store, db
}

func TestStore_SeedLobbyKeepsOrder(t *testing.T) {
	store, db := newTestStore(t)

	members := []Member{{ID: 30, Name: "Carol"}, {ID: 10, Name: "Alice"}, {ID: -1}}
	require.NoError(t, store.SeedLobby(7, members))
	// seeding again adds nobody
	require.NoError(t, store.SeedLobby(7, members[:2]))

	seats, err := store.LobbyMembers(7)
	require.NoError(t, err)
	require.Len(t, seats, 3)
	assert.Equal(t, int64(30), seats[0].UserID)
	assert.Equal(t, int64(10), seats[1].UserID)
	assert.Equal(t, int64(-1), seats[2].UserID)

	var lobby models.Lobby
	require.NoError(t, db.First(&lobby, 7).Error)
	assert.Equal(t, 3, lobby.PlayerCount)
	assert.Equal(t, models.LobbyWaiting, lobby.Status)
}

func TestStore_LobbyMembersUnknownLobby(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.LobbyMembers(99)
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestStore_RolesLifecycle(t *testing.T) {
	store, db := newTestStore(t)
	require.NoError(t, store.SeedLobby(1, []Member{{ID: 10}, {ID: 20}}))

	require.NoError(t, store.SaveRoles(1, map[int64]string{10: "Batman", 20: "Shrek"}))

	var lobby models.Lobby
	require.NoError(t, db.First(&lobby, 1).Error)
	assert.Equal(t, models.LobbyPlaying, lobby.Status)

	var seat models.LobbyPlayer
	require.NoError(t, db.Where("lobby_id = ? AND user_id = ?", 1, 20).First(&seat).Error)
	assert.Equal(t, "Shrek", seat.PlayerCharacter)

	require.NoError(t, store.SaveQuestion(1, game.HistoryEntry{AskerID: 10, Question: "am I green?", No: 1, AskedAt: time.Now()}))
	require.NoError(t, store.EndSession(1))

	require.NoError(t, db.First(&lobby, 1).Error)
	assert.Equal(t, models.LobbyWaiting, lobby.Status)
	require.NoError(t, db.Where("lobby_id = ? AND user_id = ?", 1, 20).First(&seat).Error)
	assert.Empty(t, seat.PlayerCharacter)

	rows, err := store.QuestionHistory(1, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStore_QuestionHistoryNewestFirst(t *testing.T) {
	store, _ := newTestStore(t)
	base := time.Now()

	for i, q := range []string{"first?", "second?", "third?"} {
		require.NoError(t, store.SaveQuestion(1, game.HistoryEntry{
			AskerID:     10,
			Question:    q,
			Yes:         i,
			MajorityYes: i > 0,
			AskedAt:     base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, store.SaveQuestion(1, game.HistoryEntry{AskerID: 20, Question: "other?", AskedAt: base}))

	rows, err := store.QuestionHistory(1, 10, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "third?", rows[0].Question)
	assert.Equal(t, 2, rows[0].YesVotes)
	assert.Equal(t, "second?", rows[1].Question)
}

func TestStore_RemoveMember(t *testing.T) {
	store, db := newTestStore(t)
	require.NoError(t, store.SeedLobby(1, []Member{{ID: 10}, {ID: 20}}))

	require.NoError(t, store.RemoveMember(1, 10))
	// removing twice does not drive the count down again
	require.NoError(t, store.RemoveMember(1, 10))

	var lobby models.Lobby
	require.NoError(t, db.First(&lobby, 1).Error)
	assert.Equal(t, 1, lobby.PlayerCount)

	seats, err := store.LobbyMembers(1)
	require.NoError(t, err)
	require.Len(t, seats, 1)
	assert.Equal(t, int64(20), seats[0].UserID)

	// the seat can be taken again
	require.NoError(t, store.SeedLobby(1, []Member{{ID: 10}}))
}

func TestStore_DisplayName(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SeedLobby(1, []Member{{ID: 10, Name: "Alice"}, {ID: 20}}))

	name, err := store.DisplayName(10)
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	_, err = store.DisplayName(20)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
