package models

import (
	"time"

	"gorm.io/gorm"
)

// LobbyPlayer is a seat in a lobby. Bots have negative user ids.
type LobbyPlayer struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	LobbyID         uint           `json:"lobby_id" gorm:"not null;uniqueIndex:idx_lobby_user"`
	UserID          int64          `json:"user_id" gorm:"not null;uniqueIndex:idx_lobby_user"`
	DisplayName     string         `json:"display_name"`
	PlayerCharacter string         `json:"-"` // dealt role, hidden from lobby listings
	JoinedAt        time.Time      `json:"joined_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}
