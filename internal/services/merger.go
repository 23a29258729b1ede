package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Wikid82/scirius/backend/internal/feeds"
	"github.com/Wikid82/scirius/backend/internal/models"
)

// sidBatch bounds the IN clause of a rule lookup.
const sidBatch = 500

// StoreMerger writes a parsed feed into the catalog. Rules are added or
// updated by sid; rules the feed no longer carries stay in place and are
// reported as stale.
type StoreMerger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStoreMerger(db *gorm.DB) *StoreMerger {
	return &StoreMerger{db: db, now: time.Now}
}

func (m *StoreMerger) Merge(ctx context.Context, src *models.Source, feed *feeds.Feed) (*feeds.SyncResult, error) {
	result := &feeds.SyncResult{
		SourceID:   src.ID,
		SourceName: src.Name,
		Digest:     feed.Digest,
		Categories: len(feed.Categories),
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.Category
		if err := tx.Where("source_id = ?", src.ID).Find(&existing).Error; err != nil {
			return err
		}
		byName := make(map[string]*models.Category, len(existing))
		catIDs := make([]uint, 0, len(existing)+len(feed.Categories))
		for i := range existing {
			byName[existing[i].Name] = &existing[i]
			catIDs = append(catIDs, existing[i].ID)
		}

		seen := map[uint]struct{}{}
		for _, fc := range feed.Categories {
			cat, err := m.ensureCategory(tx, src, byName, fc)
			if err != nil {
				return err
			}
			if _, known := byName[fc.Name]; !known {
				byName[fc.Name] = cat
				catIDs = append(catIDs, cat.ID)
			}

			rules := make([]feeds.FeedRule, 0, len(fc.Rules))
			for _, r := range fc.Rules {
				if _, dup := seen[r.SID]; dup {
					continue
				}
				seen[r.SID] = struct{}{}
				rules = append(rules, r)
			}
			for start := 0; start < len(rules); start += sidBatch {
				end := min(start+sidBatch, len(rules))
				if err := m.mergeRules(tx, cat.ID, rules[start:end], result); err != nil {
					return err
				}
			}
		}

		var total int64
		if len(catIDs) > 0 {
			if err := tx.Model(&models.Rule{}).Where("category_id IN ?", catIDs).Count(&total).Error; err != nil {
				return err
			}
		}
		result.Stale = int(total) - len(seen)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *StoreMerger) ensureCategory(tx *gorm.DB, src *models.Source, byName map[string]*models.Category, fc feeds.FeedCategory) (*models.Category, error) {
	if cat, ok := byName[fc.Name]; ok {
		if cat.Filename != fc.Filename {
			cat.Filename = fc.Filename
			if err := tx.Model(cat).Update("filename", fc.Filename).Error; err != nil {
				return nil, err
			}
		}
		return cat, nil
	}
	cat := &models.Category{
		Name:        fc.Name,
		Filename:    fc.Filename,
		SourceID:    src.ID,
		CreatedDate: m.now(),
	}
	if err := tx.Create(cat).Error; err != nil {
		return nil, err
	}
	return cat, nil
}

func (m *StoreMerger) mergeRules(tx *gorm.DB, categoryID uint, batch []feeds.FeedRule, result *feeds.SyncResult) error {
	sids := make([]uint, len(batch))
	for i, r := range batch {
		sids[i] = r.SID
	}
	var stored []models.Rule
	if err := tx.Where("sid IN ?", sids).Find(&stored).Error; err != nil {
		return err
	}
	bySID := make(map[uint]*models.Rule, len(stored))
	for i := range stored {
		bySID[stored[i].SID] = &stored[i]
	}

	var created []models.Rule
	for _, r := range batch {
		current, ok := bySID[r.SID]
		if !ok {
			created = append(created, models.Rule{
				SID:        r.SID,
				Rev:        r.Rev,
				Msg:        r.Msg,
				Content:    r.Content,
				CategoryID: categoryID,
			})
			continue
		}
		if current.Content == r.Content && current.Msg == r.Msg && current.Rev == r.Rev && current.CategoryID == categoryID {
			result.Unchanged++
			continue
		}
		err := tx.Model(current).Updates(map[string]interface{}{
			"content":     r.Content,
			"msg":         r.Msg,
			"rev":         r.Rev,
			"category_id": categoryID,
		}).Error
		if err != nil {
			return err
		}
		result.Updated++
	}
	if len(created) > 0 {
		if err := tx.CreateInBatches(created, 100).Error; err != nil {
			return err
		}
		result.Added += len(created)
	}
	return nil
}
