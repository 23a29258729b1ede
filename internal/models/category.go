package models

import "time"

// Category groups the rules of one Source, typically one rules file.
type Category struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex:idx_category_source_name;not null"`
	Filename    string    `json:"filename"`
	SourceID    uint      `json:"source_id" gorm:"uniqueIndex:idx_category_source_name;not null"`
	Source      *Source   `json:"source,omitempty"`
	CreatedDate time.Time `json:"created_date"`
}
