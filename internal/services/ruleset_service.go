package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Wikid82/scirius/backend/internal/feeds"
	"github.com/Wikid82/scirius/backend/internal/logger"
	"github.com/Wikid82/scirius/backend/internal/metrics"
	"github.com/Wikid82/scirius/backend/internal/models"
	"github.com/Wikid82/scirius/backend/internal/repository"
)

// SearchLimit caps the rules returned by a suppression search.
const SearchLimit = 500

// ExportTimeLayout formats the generation time in the export header.
const ExportTimeLayout = "2006-01-02 15:04:05.000000"

// RulesetInput creates a ruleset from source ids and category ids.
type RulesetInput struct {
	Name       string `json:"name" binding:"required,rulesetname"`
	Sources    []uint `json:"sources" binding:"required,min=1"`
	Categories []uint `json:"categories"`
}

// CategorySelection is a category flagged with its membership in a ruleset.
type CategorySelection struct {
	models.Category
	Selected bool `json:"selected"`
}

// SourceBreakdown groups the categories of one pinned source.
type SourceBreakdown struct {
	Version    models.SourceAtVersion `json:"version"`
	Source     string                 `json:"source"`
	Categories []CategorySelection    `json:"categories"`
}

// RulesetView is the structured breakdown of a ruleset. In the struct view
// only selected categories are listed; the edit view lists every category of
// each source with its selected flag.
type RulesetView struct {
	Ruleset         *models.Ruleset   `json:"ruleset"`
	Sources         []SourceBreakdown `json:"sources"`
	SuppressedRules []models.Rule     `json:"suppressed_rules"`
}

// SuppressionResult is the outcome of a SuppressionCommand. Matches is set
// for searches.
type SuppressionResult struct {
	Ruleset *models.Ruleset `json:"ruleset"`
	Matches []models.Rule   `json:"matches,omitempty"`
}

// RulesetService composes, edits and exports rulesets.
type RulesetService struct {
	store       *Store
	sources     *SourceService
	concurrency int
	now         func() time.Time
	log         *logrus.Entry
}

func NewRulesetService(store *Store, sources *SourceService, concurrency int) *RulesetService {
	return &RulesetService{
		store:       store,
		sources:     sources,
		concurrency: concurrency,
		now:         time.Now,
		log:         logger.Component("rulesets"),
	}
}

func (s *RulesetService) Get(ctx context.Context, id uint) (*models.Ruleset, error) {
	rs, err := s.store.Rulesets.FindByID(ctx, id, repository.RulesetPreloads...)
	if err != nil {
		return nil, notFound(err, ErrRulesetNotFound)
	}
	return rs, nil
}

func (s *RulesetService) List(ctx context.Context, page Page) (*Listing[models.Ruleset], error) {
	return paginate[models.Ruleset](ctx, s.store.Rulesets, repository.Filter{Order: "name"}, page)
}

// Latest returns the n most recently created rulesets.
func (s *RulesetService) Latest(ctx context.Context, n int) ([]models.Ruleset, error) {
	return s.store.Rulesets.FindByFilter(ctx, repository.Filter{Order: "created_date desc, id desc", Limit: n})
}

// Create pins the HEAD version of every requested source and selects the
// requested categories.
func (s *RulesetService) Create(ctx context.Context, in RulesetInput) (*models.Ruleset, error) {
	now := s.now()
	rs := &models.Ruleset{Name: in.Name, CreatedDate: now, UpdatedDate: now}
	for _, id := range dedupe(in.Sources) {
		if _, err := s.sources.Get(ctx, id); err != nil {
			return nil, err
		}
		head, err := s.sources.Head(ctx, id)
		if err != nil {
			return nil, err
		}
		head.Source = nil
		rs.Sources = append(rs.Sources, *head)
	}
	cats, err := s.categories(ctx, in.Categories)
	if err != nil {
		return nil, err
	}
	if err := validateSelection(rs, cats); err != nil {
		return nil, err
	}
	rs.SetCategories(cats)

	if err := s.store.Rulesets.Save(ctx, rs); err != nil {
		return nil, conflict(err, ErrRulesetNameConflict)
	}
	s.log.WithFields(logrus.Fields{"ruleset_id": rs.ID, "ruleset": rs.Name}).Info("ruleset created")
	return s.Get(ctx, rs.ID)
}

func (s *RulesetService) Delete(ctx context.Context, id uint) error {
	return notFound(s.store.Rulesets.Delete(ctx, id), ErrRulesetNotFound)
}

// Copy stores a clone of the ruleset under name.
func (s *RulesetService) Copy(ctx context.Context, id uint, name string) (*models.Ruleset, error) {
	rs, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	clone := rs.Clone(name)
	clone.CreatedDate = s.now()
	clone.UpdatedDate = clone.CreatedDate
	if err := s.store.Rulesets.Save(ctx, clone); err != nil {
		return nil, conflict(err, ErrRulesetNameConflict)
	}
	return s.Get(ctx, clone.ID)
}

// ApplyEdit runs an edit command against the ruleset and persists the result
// atomically.
func (s *RulesetService) ApplyEdit(ctx context.Context, id uint, cmd EditCommand) (*models.Ruleset, error) {
	rs, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch c := cmd.(type) {
	case SetCategories:
		if err := s.setCategories(ctx, rs, c); err != nil {
			return nil, err
		}
	case RemoveSuppressed:
		rules, err := s.rules(ctx, c.Rules)
		if err != nil {
			return nil, err
		}
		for _, r := range rules {
			rs.RemoveSuppressed(r.ID)
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}

	if err := s.save(ctx, rs); err != nil {
		return nil, err
	}
	return rs, nil
}

func (s *RulesetService) setCategories(ctx context.Context, rs *models.Ruleset, c SetCategories) error {
	version, err := s.store.Versions.FindByID(ctx, c.Source)
	if err != nil {
		return notFound(err, ErrSourceVersionNotFound)
	}
	pinned := false
	for _, v := range rs.Sources {
		if v.ID == version.ID {
			pinned = true
			break
		}
	}
	if !pinned {
		return ErrSourceNotInRuleset
	}
	cats, err := s.categories(ctx, c.Categories)
	if err != nil {
		return err
	}
	if err := validateSelection(rs, cats); err != nil {
		return err
	}
	rs.SetCategories(cats)
	return nil
}

// ApplySuppression runs a search or a suppression against the ruleset.
func (s *RulesetService) ApplySuppression(ctx context.Context, id uint, cmd SuppressionCommand) (*SuppressionResult, error) {
	rs, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch c := cmd.(type) {
	case SearchRules:
		matches, err := s.store.Rules.FindByFilter(ctx, repository.Filter{
			Contains: map[string]string{"content": c.Query},
			Preload:  []string{"Category"},
			Order:    "sid",
			Limit:    SearchLimit,
		})
		if err != nil {
			return nil, err
		}
		if matches == nil {
			matches = []models.Rule{}
		}
		return &SuppressionResult{Ruleset: rs, Matches: matches}, nil
	case SuppressRules:
		rules, err := s.rules(ctx, c.Rules)
		if err != nil {
			return nil, err
		}
		for _, r := range rules {
			rs.AddSuppressed(r)
		}
		if err := s.save(ctx, rs); err != nil {
			return nil, err
		}
		return &SuppressionResult{Ruleset: rs}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

// SuppressBySID adds the rule with the given sid to the ruleset's
// suppression set.
func (s *RulesetService) SuppressBySID(ctx context.Context, rulesetID, sid uint) (*models.Rule, error) {
	rule, err := findRuleBySID(ctx, s.store, sid)
	if err != nil {
		return nil, err
	}
	rs, err := s.Get(ctx, rulesetID)
	if err != nil {
		return nil, err
	}
	if rs.AddSuppressed(*rule) {
		if err := s.save(ctx, rs); err != nil {
			return nil, err
		}
	}
	return rule, nil
}

// Generate returns the effective rules of the ruleset ordered by category id
// then sid.
func (s *RulesetService) Generate(ctx context.Context, id uint) (*models.Ruleset, []models.Rule, error) {
	rs, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if len(rs.Categories) == 0 {
		return rs, []models.Rule{}, nil
	}
	candidates, err := s.store.Rules.FindByFilter(ctx, repository.Filter{
		Where: map[string]interface{}{"category_id": rs.CategoryIDs()},
		Order: "category_id, sid",
	})
	if err != nil {
		return nil, nil, err
	}
	return rs, rs.Compose(candidates), nil
}

// Export writes the generated rules file: one header comment line followed
// by every rule content verbatim.
func (s *RulesetService) Export(ctx context.Context, id uint, w io.Writer) (*models.Ruleset, error) {
	rs, rules, err := s.Generate(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(w, "# Rules file for %s generated by Scirius at %s\n", rs.Name, s.now().Format(ExportTimeLayout)); err != nil {
		return nil, err
	}
	for _, r := range rules {
		if _, err := io.WriteString(w, r.Content); err != nil {
			return nil, err
		}
	}
	metrics.IncRulesetExport()
	return rs, nil
}

// Structure breaks the ruleset down by source with its selected categories.
func (s *RulesetService) Structure(ctx context.Context, id uint) (*RulesetView, error) {
	return s.view(ctx, id, false)
}

// EditView lists every category of the ruleset's sources with a selected flag.
func (s *RulesetService) EditView(ctx context.Context, id uint) (*RulesetView, error) {
	return s.view(ctx, id, true)
}

func (s *RulesetService) view(ctx context.Context, id uint, all bool) (*RulesetView, error) {
	rs, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	selected := make(map[uint]struct{}, len(rs.Categories))
	for _, c := range rs.Categories {
		selected[c.ID] = struct{}{}
	}

	view := &RulesetView{Ruleset: rs, Sources: []SourceBreakdown{}, SuppressedRules: rs.SuppressedRules}
	if view.SuppressedRules == nil {
		view.SuppressedRules = []models.Rule{}
	}
	for _, v := range rs.Sources {
		b := SourceBreakdown{Version: v, Categories: []CategorySelection{}}
		if v.Source != nil {
			b.Source = v.Source.Name
		}
		cats, err := s.sources.Categories(ctx, v.SourceID)
		if err != nil {
			return nil, err
		}
		for _, c := range cats {
			_, ok := selected[c.ID]
			if !ok && !all {
				continue
			}
			b.Categories = append(b.Categories, CategorySelection{Category: c, Selected: ok})
		}
		view.Sources = append(view.Sources, b)
	}
	return view, nil
}

// Refresh updates every source the ruleset draws from.
func (s *RulesetService) Refresh(ctx context.Context, id uint) ([]*feeds.SyncResult, error) {
	rs, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(rs.Sources))
	for _, v := range rs.Sources {
		ids = append(ids, v.SourceID)
	}
	return s.sources.RefreshMany(ctx, dedupe(ids), s.concurrency)
}

func (s *RulesetService) save(ctx context.Context, rs *models.Ruleset) error {
	rs.UpdatedDate = s.now()
	return conflict(s.store.Rulesets.Save(ctx, rs), ErrRulesetNameConflict)
}

func (s *RulesetService) categories(ctx context.Context, ids []uint) ([]models.Category, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	cats, err := s.store.Categories.FindByFilter(ctx, repository.Filter{
		Where: map[string]interface{}{"id": ids},
		Order: "id",
	})
	if err != nil {
		return nil, err
	}
	if len(cats) != len(ids) {
		return nil, ErrCategoryNotFound
	}
	return cats, nil
}

func (s *RulesetService) rules(ctx context.Context, ids []uint) ([]models.Rule, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	rules, err := s.store.Rules.FindByFilter(ctx, repository.Filter{
		Where: map[string]interface{}{"id": ids},
		Order: "id",
	})
	if err != nil {
		return nil, err
	}
	if len(rules) != len(ids) {
		return nil, ErrRuleNotFound
	}
	return rules, nil
}

// validateSelection rejects categories that do not belong to one of the
// ruleset's sources.
func validateSelection(rs *models.Ruleset, cats []models.Category) error {
	for _, c := range cats {
		if !rs.HasSource(c.SourceID) {
			return fmt.Errorf("%w: %s", ErrCategoryNotInRuleset, c.Name)
		}
	}
	return nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
