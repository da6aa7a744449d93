package models

import (
	"time"

	"gorm.io/gorm"
)

type Lobby struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Status      string         `json:"status" gorm:"not null;default:'waiting'"` // waiting, playing
	PlayerCount int            `json:"player_count" gorm:"not null;default:0"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Players []LobbyPlayer `json:"players,omitempty" gorm:"foreignKey:LobbyID"`
}

const (
	LobbyWaiting = "waiting"
	LobbyPlaying = "playing"
)
