package models

import (
	"sort"
	"time"
)

// Ruleset is a named composition of categories, drawn from pinned source
// versions, minus an explicit set of suppressed rules.
type Ruleset struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	CreatedDate time.Time `json:"created_date"`
	UpdatedDate time.Time `json:"updated_date"`

	Sources         []SourceAtVersion `json:"sources" gorm:"many2many:ruleset_sources;"`
	Categories      []Category        `json:"categories" gorm:"many2many:ruleset_categories;"`
	SuppressedRules []Rule            `json:"suppressed_rules" gorm:"many2many:ruleset_suppressed_rules;"`
}

// IsSuppressed reports whether the rule with the given pk is suppressed.
func (r *Ruleset) IsSuppressed(ruleID uint) bool {
	for _, rule := range r.SuppressedRules {
		if rule.ID == ruleID {
			return true
		}
	}
	return false
}

// AddSuppressed adds rule to the suppression set. It returns false when the
// rule was already suppressed.
func (r *Ruleset) AddSuppressed(rule Rule) bool {
	if r.IsSuppressed(rule.ID) {
		return false
	}
	r.SuppressedRules = append(r.SuppressedRules, rule)
	return true
}

// RemoveSuppressed drops the rule from the suppression set. It returns false
// when the rule was not suppressed.
func (r *Ruleset) RemoveSuppressed(ruleID uint) bool {
	for i, rule := range r.SuppressedRules {
		if rule.ID == ruleID {
			r.SuppressedRules = append(r.SuppressedRules[:i:i], r.SuppressedRules[i+1:]...)
			return true
		}
	}
	return false
}

// SetCategories replaces the whole category selection. Duplicates are dropped
// and the result is ordered by id.
func (r *Ruleset) SetCategories(selection []Category) {
	seen := make(map[uint]struct{}, len(selection))
	cats := make([]Category, 0, len(selection))
	for _, c := range selection {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].ID < cats[j].ID })
	r.Categories = cats
}

// CategoryIDs returns the ids of the selected categories in ascending order.
func (r *Ruleset) CategoryIDs() []uint {
	ids := make([]uint, 0, len(r.Categories))
	for _, c := range r.Categories {
		ids = append(ids, c.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HasSource reports whether one of the pinned versions belongs to sourceID.
func (r *Ruleset) HasSource(sourceID uint) bool {
	for _, v := range r.Sources {
		if v.SourceID == sourceID {
			return true
		}
	}
	return false
}

// Compose filters candidates down to the effective rule sequence: rules of a
// selected category that are not suppressed, ordered by category id then sid.
func (r *Ruleset) Compose(candidates []Rule) []Rule {
	selected := make(map[uint]struct{}, len(r.Categories))
	for _, c := range r.Categories {
		selected[c.ID] = struct{}{}
	}
	suppressed := make(map[uint]struct{}, len(r.SuppressedRules))
	for _, rule := range r.SuppressedRules {
		suppressed[rule.ID] = struct{}{}
	}

	out := make([]Rule, 0, len(candidates))
	for _, rule := range candidates {
		if _, ok := selected[rule.CategoryID]; !ok {
			continue
		}
		if _, ok := suppressed[rule.ID]; ok {
			continue
		}
		out = append(out, rule)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CategoryID != out[j].CategoryID {
			return out[i].CategoryID < out[j].CategoryID
		}
		return out[i].SID < out[j].SID
	})
	return out
}

// Clone returns an unsaved copy under a new name sharing the same sources,
// categories and suppressed rules.
func (r *Ruleset) Clone(name string) *Ruleset {
	return &Ruleset{
		Name:            name,
		Sources:         append([]SourceAtVersion(nil), r.Sources...),
		Categories:      append([]Category(nil), r.Categories...),
		SuppressedRules: append([]Rule(nil), r.SuppressedRules...),
	}
}
