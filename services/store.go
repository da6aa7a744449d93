package services

import (
	"errors"
	"fmt"
	"time"

	"whoami/game"
	"whoami/models"

	"gorm.io/gorm"
)

var ErrLobbyNotFound = errors.New("lobby not found")

// Store persists lobby seats, dealt roles and the question log.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the tables the store uses.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&models.Lobby{},
		&models.LobbyPlayer{},
		&models.QuestionHistory{},
	)
}

// Member is a lobby seat handed in by whatever formed the lobby.
type Member struct {
	ID   int64  `json:"id" binding:"required"`
	Name string `json:"name"`
}

// SeedLobby makes sure the lobby row and a seat for every member exist.
func (s *Store) SeedLobby(lobbyID uint, members []Member) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	lobby := models.Lobby{ID: lobbyID}
	if err := tx.FirstOrCreate(&lobby, models.Lobby{ID: lobbyID}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create lobby %d: %w", lobbyID, err)
	}

	now := time.Now()
	added := 0
	for i, m := range members {
		var count int64
		if err := tx.Model(&models.LobbyPlayer{}).
			Where("lobby_id = ? AND user_id = ?", lobbyID, m.ID).
			Count(&count).Error; err != nil {
			tx.Rollback()
			return err
		}
		if count > 0 {
			continue
		}
		seat := models.LobbyPlayer{
			LobbyID:     lobbyID,
			UserID:      m.ID,
			DisplayName: m.Name,
			// keep the given order when the seats are read back by join time
			JoinedAt: now.Add(time.Duration(i) * time.Millisecond),
		}
		if err := tx.Create(&seat).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to seat player %d: %w", m.ID, err)
		}
		added++
	}

	if added > 0 {
		if err := tx.Model(&lobby).
			UpdateColumn("player_count", gorm.Expr("player_count + ?", added)).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit().Error
}

// LobbyMembers returns the lobby's seats in join order.
func (s *Store) LobbyMembers(lobbyID uint) ([]models.LobbyPlayer, error) {
	var lobby models.Lobby
	if err := s.db.First(&lobby, lobbyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLobbyNotFound
		}
		return nil, err
	}

	var seats []models.LobbyPlayer
	if err := s.db.Where("lobby_id = ?", lobbyID).
		Order("joined_at ASC, id ASC").
		Find(&seats).Error; err != nil {
		return nil, err
	}
	return seats, nil
}

// SaveRoles marks the lobby as playing and stores every dealt role on its seat.
func (s *Store) SaveRoles(lobbyID uint, roles map[int64]string) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&models.Lobby{}).Where("id = ?", lobbyID).
		Update("status", models.LobbyPlaying).Error; err != nil {
		tx.Rollback()
		return err
	}
	for userID, role := range roles {
		if err := tx.Model(&models.LobbyPlayer{}).
			Where("lobby_id = ? AND user_id = ?", lobbyID, userID).
			Update("player_character", role).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save role for %d: %w", userID, err)
		}
	}

	return tx.Commit().Error
}

// EndSession puts the lobby back to waiting, clears the roles and drops the question log.
func (s *Store) EndSession(lobbyID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Lobby{}).Where("id = ?", lobbyID).
			Update("status", models.LobbyWaiting).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.LobbyPlayer{}).Where("lobby_id = ?", lobbyID).
			Update("player_character", "").Error; err != nil {
			return err
		}
		return tx.Where("lobby_id = ?", lobbyID).Delete(&models.QuestionHistory{}).Error
	})
}

// SaveQuestion appends a resolved question to the lobby's log.
func (s *Store) SaveQuestion(lobbyID uint, entry game.HistoryEntry) error {
	row := models.QuestionHistory{
		LobbyID:     lobbyID,
		AskerID:     entry.AskerID,
		Question:    entry.Question,
		YesVotes:    entry.Yes,
		NoVotes:     entry.No,
		MajorityYes: entry.MajorityYes,
		AskedAt:     entry.AskedAt,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save question: %w", err)
	}
	return nil
}

// QuestionHistory returns the latest questions asked by a player, newest first.
func (s *Store) QuestionHistory(lobbyID uint, askerID int64, limit int) ([]models.QuestionHistory, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.QuestionHistory
	err := s.db.Where("lobby_id = ? AND asker_id = ?", lobbyID, askerID).
		Order("asked_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// RemoveMember deletes a seat and keeps the lobby's player count in step.
func (s *Store) RemoveMember(lobbyID uint, userID int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Where("lobby_id = ? AND user_id = ?", lobbyID, userID).
			Delete(&models.LobbyPlayer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&models.Lobby{}).
			Where("id = ? AND player_count > 0", lobbyID).
			UpdateColumn("player_count", gorm.Expr("player_count - 1")).Error
	})
}

// DisplayName reads a seat's display name.
func (s *Store) DisplayName(userID int64) (string, error) {
	var seat models.LobbyPlayer
	err := s.db.Where("user_id = ? AND display_name <> ''", userID).
		Order("joined_at DESC").
		First(&seat).Error
	if err != nil {
		return "", err
	}
	return seat.DisplayName, nil
}
