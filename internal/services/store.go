package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/Wikid82/scirius/backend/internal/models"
	"github.com/Wikid82/scirius/backend/internal/repository"
)

// Store bundles the repositories of the rule catalog.
type Store struct {
	db *gorm.DB

	Sources    repository.Repository[models.Source]
	Versions   repository.Repository[models.SourceAtVersion]
	Categories repository.Repository[models.Category]
	Rules      repository.Repository[models.Rule]
	Rulesets   repository.Repository[models.Ruleset]
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Sources:    repository.New[models.Source](db),
		Versions:   repository.New[models.SourceAtVersion](db),
		Categories: repository.New[models.Category](db),
		Rules:      repository.New[models.Rule](db),
		Rulesets:   repository.NewRulesets(db),
	}
}

// Transaction runs fn against a Store bound to a single database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB exposes the underlying handle for collaborators that batch their own
// queries, such as the merger.
func (s *Store) DB() *gorm.DB {
	return s.db
}
