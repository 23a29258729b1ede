package models

import "time"

// Rule is a single detection signature. Content holds the raw rule text,
// newline included, exactly as it was imported.
type Rule struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	SID        uint      `json:"sid" gorm:"column:sid;uniqueIndex;not null"`
	Rev        int       `json:"rev"`
	Msg        string    `json:"msg"`
	Content    string    `json:"content" gorm:"type:text"`
	CategoryID uint      `json:"category_id" gorm:"index;not null"`
	Category   *Category `json:"category,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
