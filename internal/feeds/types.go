package feeds

import (
	"context"
	"time"

	"github.com/Wikid82/scirius/backend/internal/models"
)

// Feed is a parsed source payload.
type Feed struct {
	Digest     string
	Categories []FeedCategory
}

// FeedCategory is one rules file of a feed.
type FeedCategory struct {
	Name     string
	Filename string
	Rules    []FeedRule
}

// FeedRule is one signature line of a rules file.
type FeedRule struct {
	SID     uint
	Rev     int
	Msg     string
	Content string
}

// RuleCount returns the number of rules across all categories.
func (f *Feed) RuleCount() int {
	n := 0
	for _, c := range f.Categories {
		n += len(c.Rules)
	}
	return n
}

// Snapshot is the stored state of a source: category name -> sid -> content.
type Snapshot map[string]map[uint]string

// SyncResult summarises a merge.
type SyncResult struct {
	SourceID   uint          `json:"source_id"`
	SourceName string        `json:"source_name"`
	Digest     string        `json:"digest"`
	Categories int           `json:"categories"`
	Added      int           `json:"added"`
	Updated    int           `json:"updated"`
	Unchanged  int           `json:"unchanged"`
	Stale      int           `json:"stale"`
	Duration   time.Duration `json:"duration"`
}

// CategoryDiff lists per-category changes between stored state and a feed.
type CategoryDiff struct {
	Name     string `json:"name"`
	Added    []uint `json:"added"`
	Removed  []uint `json:"removed"`
	Modified []uint `json:"modified"`
}

// SourceDiff compares a source's stored rules against a freshly fetched feed.
type SourceDiff struct {
	SourceID          uint           `json:"source_id"`
	Digest            string         `json:"digest"`
	NewCategories     []string       `json:"new_categories"`
	RemovedCategories []string       `json:"removed_categories"`
	Categories        []CategoryDiff `json:"categories"`
}

// Empty reports whether the feed matches the stored state.
func (d *SourceDiff) Empty() bool {
	return len(d.NewCategories) == 0 && len(d.RemovedCategories) == 0 && len(d.Categories) == 0
}

// Fetcher downloads the raw payload of a source.
type Fetcher interface {
	Fetch(ctx context.Context, src *models.Source) ([]byte, error)
}

// Merger commits a parsed feed into the rule store.
type Merger interface {
	Merge(ctx context.Context, src *models.Source, feed *Feed) (*SyncResult, error)
}

// Comparer computes the changes a feed would apply without writing anything.
type Comparer interface {
	Compare(stored Snapshot, feed *Feed) *SourceDiff
}
