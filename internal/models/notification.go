package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// Notification records a source sync event so operators can review it from
// the console. SourceID and SourceName are empty for events not tied to a
// source; the name is kept as it was when the event happened.
type Notification struct {
	ID         string           `gorm:"primaryKey" json:"id"`
	Type       NotificationType `gorm:"index" json:"type"`
	SourceID   *uint            `gorm:"index" json:"source_id,omitempty"`
	SourceName string           `json:"source_name,omitempty"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	Read       bool             `gorm:"index" json:"read"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NewSourceNotification builds an event about a sync of src.
func NewSourceNotification(nType NotificationType, src *Source, title, message string) *Notification {
	id := src.ID
	return &Notification{
		Type:       nType,
		SourceID:   &id,
		SourceName: src.Name,
		Title:      title,
		Message:    message,
	}
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}
