package services

import (
	"context"

	"github.com/Wikid82/scirius/backend/internal/models"
	"github.com/Wikid82/scirius/backend/internal/repository"
)

// PathItem is one breadcrumb from a rule or category up to its source.
type PathItem struct {
	Kind string `json:"kind"`
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// CategoryDetail is a category with one page of its rules.
type CategoryDetail struct {
	Category *models.Category      `json:"category"`
	Rules    *Listing[models.Rule] `json:"rules"`
	Path     []PathItem            `json:"path"`
}

// RuleDetail is a rule with its parsed references.
type RuleDetail struct {
	Rule       *models.Rule `json:"rule"`
	References []Reference  `json:"references"`
	Path       []PathItem   `json:"path"`
}

// RuleService serves the read side of the rule catalog.
type RuleService struct {
	store *Store
	refs  *ReferenceCache
}

func NewRuleService(store *Store, refs *ReferenceCache) *RuleService {
	return &RuleService{store: store, refs: refs}
}

func (s *RuleService) ListCategories(ctx context.Context, page Page) (*Listing[models.Category], error) {
	return paginate[models.Category](ctx, s.store.Categories, repository.Filter{
		Order:   "source_id, name",
		Preload: []string{"Source"},
	}, page)
}

func (s *RuleService) Category(ctx context.Context, id uint, page Page) (*CategoryDetail, error) {
	cat, err := s.store.Categories.FindByID(ctx, id, "Source")
	if err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}
	rules, err := paginate[models.Rule](ctx, s.store.Rules, repository.Filter{
		Where: map[string]interface{}{"category_id": cat.ID},
		Order: "sid",
	}, page)
	if err != nil {
		return nil, err
	}
	var path []PathItem
	if cat.Source != nil {
		path = append(path, PathItem{Kind: "source", ID: cat.Source.ID, Name: cat.Source.Name})
	}
	return &CategoryDetail{Category: cat, Rules: rules, Path: path}, nil
}

// Rule looks a rule up by pk.
func (s *RuleService) Rule(ctx context.Context, id uint) (*RuleDetail, error) {
	rule, err := s.store.Rules.FindByID(ctx, id, "Category.Source")
	if err != nil {
		return nil, notFound(err, ErrRuleNotFound)
	}
	return s.detail(rule), nil
}

// RuleBySID looks a rule up by its external sid.
func (s *RuleService) RuleBySID(ctx context.Context, sid uint) (*RuleDetail, error) {
	rule, err := findRuleBySID(ctx, s.store, sid, "Category.Source")
	if err != nil {
		return nil, err
	}
	return s.detail(rule), nil
}

func (s *RuleService) detail(rule *models.Rule) *RuleDetail {
	d := &RuleDetail{Rule: rule, References: s.refs.For(rule), Path: []PathItem{}}
	if cat := rule.Category; cat != nil {
		if cat.Source != nil {
			d.Path = append(d.Path, PathItem{Kind: "source", ID: cat.Source.ID, Name: cat.Source.Name})
		}
		d.Path = append(d.Path, PathItem{Kind: "category", ID: cat.ID, Name: cat.Name})
	}
	return d
}

func findRuleBySID(ctx context.Context, store *Store, sid uint, preload ...string) (*models.Rule, error) {
	rules, err := store.Rules.FindByFilter(ctx, repository.Filter{
		Where:   map[string]interface{}{"sid": sid},
		Preload: preload,
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, ErrRuleNotFound
	}
	return &rules[0], nil
}
