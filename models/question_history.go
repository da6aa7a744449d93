package models

import "time"

type QuestionHistory struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	LobbyID     uint      `json:"lobby_id" gorm:"not null;index"`
	AskerID     int64     `json:"asker_id" gorm:"not null;index"`
	Question    string    `json:"question" gorm:"not null"`
	YesVotes    int       `json:"yes_votes" gorm:"not null;default:0"`
	NoVotes     int       `json:"no_votes" gorm:"not null;default:0"`
	MajorityYes bool      `json:"majority_yes"`
	AskedAt     time.Time `json:"asked_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (QuestionHistory) TableName() string {
	return "question_history"
}
