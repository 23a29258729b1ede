package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Wikid82/scirius/backend/internal/feeds"
	"github.com/Wikid82/scirius/backend/internal/logger"
	"github.com/Wikid82/scirius/backend/internal/metrics"
	"github.com/Wikid82/scirius/backend/internal/models"
	"github.com/Wikid82/scirius/backend/internal/repository"
)

// SourceInput carries the editable fields of a Source.
type SourceInput struct {
	Name     string `json:"name" binding:"required,max=100"`
	URI      string `json:"uri" binding:"required,max=400"`
	Method   string `json:"method" binding:"required,oneof=http local"`
	Datatype string `json:"datatype" binding:"required,oneof=sigs sig"`
}

func (in SourceInput) validate() error {
	switch in.Method {
	case models.SourceMethodHTTP, models.SourceMethodLocal:
	default:
		return fmt.Errorf("%w: method %q", ErrInvalidSource, in.Method)
	}
	switch in.Datatype {
	case models.SourceDatatypeArchive, models.SourceDatatypeFile:
	default:
		return fmt.Errorf("%w: datatype %q", ErrInvalidSource, in.Datatype)
	}
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSource)
	}
	return nil
}

// SourceDetail is a source with its categories.
type SourceDetail struct {
	Source     *models.Source          `json:"source"`
	Head       *models.SourceAtVersion `json:"head,omitempty"`
	Categories []models.Category       `json:"categories"`
}

// SourceService manages sources and drives their synchronisation through the
// Fetcher, Merger and Comparer collaborators.
type SourceService struct {
	store    *Store
	fetcher  feeds.Fetcher
	merger   feeds.Merger
	comparer feeds.Comparer
	notifier Notifier
	now      func() time.Time
	log      *logrus.Entry
}

func NewSourceService(store *Store, fetcher feeds.Fetcher, merger feeds.Merger, comparer feeds.Comparer, notifier Notifier) *SourceService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &SourceService{
		store:    store,
		fetcher:  fetcher,
		merger:   merger,
		comparer: comparer,
		notifier: notifier,
		now:      time.Now,
		log:      logger.Component("sources"),
	}
}

// Create stores a new source together with its HEAD version.
func (s *SourceService) Create(ctx context.Context, in SourceInput) (*models.Source, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	src := &models.Source{
		Name:        in.Name,
		URI:         in.URI,
		Method:      in.Method,
		Datatype:    in.Datatype,
		CreatedDate: s.now(),
	}
	err := s.store.Transaction(ctx, func(tx *Store) error {
		if err := tx.Sources.Save(ctx, src); err != nil {
			return conflict(err, ErrSourceNameConflict)
		}
		return tx.Versions.Save(ctx, &models.SourceAtVersion{
			SourceID:    src.ID,
			Version:     models.HeadVersion,
			UpdatedDate: src.CreatedDate,
		})
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

func (s *SourceService) Get(ctx context.Context, id uint) (*models.Source, error) {
	src, err := s.store.Sources.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrSourceNotFound)
	}
	return src, nil
}

// Detail returns the source, its HEAD version and its categories by name.
func (s *SourceService) Detail(ctx context.Context, id uint) (*SourceDetail, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cats, err := s.Categories(ctx, id)
	if err != nil {
		return nil, err
	}
	head, err := s.Head(ctx, id)
	if err != nil && !errors.Is(err, ErrSourceVersionNotFound) {
		return nil, err
	}
	return &SourceDetail{Source: src, Head: head, Categories: cats}, nil
}

func (s *SourceService) List(ctx context.Context, page Page) (*Listing[models.Source], error) {
	return paginate[models.Source](ctx, s.store.Sources, repository.Filter{Order: "name"}, page)
}

// Latest returns the n most recently created sources.
func (s *SourceService) Latest(ctx context.Context, n int) ([]models.Source, error) {
	return s.store.Sources.FindByFilter(ctx, repository.Filter{Order: "created_date desc, id desc", Limit: n})
}

func (s *SourceService) Edit(ctx context.Context, id uint, in SourceInput) (*models.Source, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	src.Name = in.Name
	src.URI = in.URI
	src.Method = in.Method
	src.Datatype = in.Datatype
	if err := s.store.Sources.Save(ctx, src); err != nil {
		return nil, conflict(err, ErrSourceNameConflict)
	}
	return src, nil
}

func (s *SourceService) Categories(ctx context.Context, sourceID uint) ([]models.Category, error) {
	return s.store.Categories.FindByFilter(ctx, repository.Filter{
		Where: map[string]interface{}{"source_id": sourceID},
		Order: "name",
	})
}

// Head returns the HEAD version of a source.
func (s *SourceService) Head(ctx context.Context, sourceID uint) (*models.SourceAtVersion, error) {
	versions, err := s.store.Versions.FindByFilter(ctx, repository.Filter{
		Where:   map[string]interface{}{"source_id": sourceID, "version": models.HeadVersion},
		Preload: []string{"Source"},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ErrSourceVersionNotFound
	}
	return &versions[0], nil
}

func (s *SourceService) fetch(ctx context.Context, src *models.Source) (*feeds.Feed, error) {
	data, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	return feeds.Parse(src, data)
}

// Refresh fetches the source feed and merges it into the catalog. A failure is
// returned once; nothing is retried.
func (s *SourceService) Refresh(ctx context.Context, id uint) (*feeds.SyncResult, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	log := s.log.WithFields(logrus.Fields{"source_id": src.ID, "source": src.Name})

	start := s.now()
	result, err := s.refresh(ctx, src)
	metrics.ObserveSync(err, time.Since(start).Seconds())
	if err != nil {
		log.WithError(err).Warn("source update failed")
		s.notifier.Notify(ctx, models.NewSourceNotification(models.NotificationTypeError, src, "Source update failed",
			fmt.Sprintf("%s: %v", src.Name, err)))
		return nil, err
	}
	result.Duration = time.Since(start)

	metrics.AddImportedRules(result.Added, result.Updated)
	log.WithFields(logrus.Fields{
		"added":     result.Added,
		"updated":   result.Updated,
		"unchanged": result.Unchanged,
		"stale":     result.Stale,
	}).Info("source updated")
	s.notifier.Notify(ctx, models.NewSourceNotification(models.NotificationTypeSuccess, src, "Source updated",
		fmt.Sprintf("%s: %d added, %d updated, %d stale", src.Name, result.Added, result.Updated, result.Stale)))
	return result, nil
}

func (s *SourceService) refresh(ctx context.Context, src *models.Source) (*feeds.SyncResult, error) {
	feed, err := s.fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	result, err := s.merger.Merge(ctx, src, feed)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", src.Name, err)
	}

	now := s.now()
	err = s.store.Transaction(ctx, func(tx *Store) error {
		src.UpdatedDate = &now
		if err := tx.Sources.Save(ctx, src); err != nil {
			return err
		}
		versions, err := tx.Versions.FindByFilter(ctx, repository.Filter{
			Where: map[string]interface{}{"source_id": src.ID, "version": models.HeadVersion},
		})
		if err != nil {
			return err
		}
		head := models.SourceAtVersion{SourceID: src.ID, Version: models.HeadVersion}
		if len(versions) > 0 {
			head = versions[0]
		}
		head.Digest = feed.Digest
		head.UpdatedDate = now
		return tx.Versions.Save(ctx, &head)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RefreshMany refreshes the given sources with at most limit concurrent
// fetches. Every source is attempted; failures are joined.
func (s *SourceService) RefreshMany(ctx context.Context, ids []uint, limit int) ([]*feeds.SyncResult, error) {
	if limit < 1 {
		limit = 1
	}
	results := make([]*feeds.SyncResult, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			results[i], errs[i] = s.Refresh(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	done := make([]*feeds.SyncResult, 0, len(ids))
	for _, r := range results {
		if r != nil {
			done = append(done, r)
		}
	}
	return done, errors.Join(errs...)
}

// RefreshAll refreshes every known source.
func (s *SourceService) RefreshAll(ctx context.Context, limit int) ([]*feeds.SyncResult, error) {
	sources, err := s.store.Sources.FindByFilter(ctx, repository.Filter{Order: "id"})
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(sources))
	for i, src := range sources {
		ids[i] = src.ID
	}
	return s.RefreshMany(ctx, ids, limit)
}

// Diff compares the stored rules of a source with its current feed without
// writing anything.
func (s *SourceService) Diff(ctx context.Context, id uint) (*feeds.SourceDiff, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	feed, err := s.fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx, src.ID)
	if err != nil {
		return nil, err
	}
	diff := s.comparer.Compare(snap, feed)
	diff.SourceID = src.ID
	return diff, nil
}

// Snapshot returns the stored rule contents of a source keyed by category.
func (s *SourceService) Snapshot(ctx context.Context, sourceID uint) (feeds.Snapshot, error) {
	cats, err := s.Categories(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	snap := make(feeds.Snapshot, len(cats))
	if len(cats) == 0 {
		return snap, nil
	}
	names := make(map[uint]string, len(cats))
	ids := make([]uint, 0, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
		ids = append(ids, c.ID)
		snap[c.Name] = map[uint]string{}
	}
	rules, err := s.store.Rules.FindByFilter(ctx, repository.Filter{
		Where: map[string]interface{}{"category_id": ids},
	})
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		snap[names[r.CategoryID]][r.SID] = r.Content
	}
	return snap, nil
}
