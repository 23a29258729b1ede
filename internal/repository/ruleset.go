package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Wikid82/scirius/backend/internal/models"
)

// RulesetPreloads loads the full ruleset aggregate.
var RulesetPreloads = []string{"Sources.Source", "Categories", "SuppressedRules", "SuppressedRules.Category"}

// Rulesets persists the ruleset aggregate. Save writes the row and replaces
// the three membership sets in a single transaction.
type Rulesets struct {
	*Gorm[models.Ruleset]
}

// NewRulesets returns the ruleset repository.
func NewRulesets(db *gorm.DB) *Rulesets {
	return &Rulesets{Gorm: New[models.Ruleset](db)}
}

func (r *Rulesets) Save(ctx context.Context, rs *models.Ruleset) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(rs).Error; err != nil {
			return err
		}
		if err := replace(tx, rs, "Sources", rs.Sources); err != nil {
			return err
		}
		if err := replace(tx, rs, "Categories", rs.Categories); err != nil {
			return err
		}
		return replace(tx, rs, "SuppressedRules", rs.SuppressedRules)
	})
	return translate(err)
}

// Delete removes the ruleset and its join rows. Sources, categories and rules
// are left untouched.
func (r *Rulesets) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Select(clause.Associations).Delete(&models.Ruleset{ID: id})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func replace[T any](tx *gorm.DB, rs *models.Ruleset, name string, values []T) error {
	assoc := tx.Model(rs).Association(name)
	if len(values) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(values)
}
