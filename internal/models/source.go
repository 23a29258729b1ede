package models

import (
	"time"
)

// Source methods and datatypes.
const (
	SourceMethodHTTP  = "http"
	SourceMethodLocal = "local"

	// SourceDatatypeArchive is a gzip-compressed tar of *.rules files, one category per file.
	SourceDatatypeArchive = "sigs"
	// SourceDatatypeFile is a single rules file mapped to one category.
	SourceDatatypeFile = "sig"

	HeadVersion = "HEAD"
)

// Source describes an external feed of detection rules.
type Source struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Name        string     `json:"name" gorm:"uniqueIndex;not null"`
	URI         string     `json:"uri" gorm:"type:text"`
	Method      string     `json:"method"`   // "http", "local"
	Datatype    string     `json:"datatype"` // "sigs", "sig"
	CreatedDate time.Time  `json:"created_date"`
	UpdatedDate *time.Time `json:"updated_date"`

	Categories []Category        `json:"-"`
	Versions   []SourceAtVersion `json:"-"`
}

// SourceAtVersion pins a Source to a version so a ruleset can track a snapshot
// rather than the live head. Version "HEAD" follows every update.
type SourceAtVersion struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SourceID    uint      `json:"source_id" gorm:"uniqueIndex:idx_source_version;not null"`
	Source      *Source   `json:"source,omitempty"`
	Version     string    `json:"version" gorm:"uniqueIndex:idx_source_version;default:HEAD"`
	Digest      string    `json:"digest"`
	UpdatedDate time.Time `json:"updated_date"`
}
