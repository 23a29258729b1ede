package services

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Wikid82/scirius/backend/internal/database"
	"github.com/Wikid82/scirius/backend/internal/feeds"
	"github.com/Wikid82/scirius/backend/internal/models"
)

var fixedNow = time.Date(2024, 3, 1, 12, 30, 45, 123456000, time.UTC)

type fakeFetcher struct {
	mu       sync.Mutex
	payloads map[string][]byte
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{payloads: map[string][]byte{}, calls: map[string]int{}}
}

func (f *fakeFetcher) set(uri string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[uri] = data
}

func (f *fakeFetcher) Fetch(ctx context.Context, src *models.Source) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[src.URI]++
	data, ok := f.payloads[src.URI]
	if !ok {
		return nil, fmt.Errorf("%w: connection refused", feeds.ErrFetch)
	}
	return data, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	events  []models.NotificationType
	sources []uint
}

func (n *recordingNotifier) Notify(_ context.Context, event *models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event.Type)
	if event.SourceID != nil {
		n.sources = append(n.sources, *event.SourceID)
	}
}

type testEnv struct {
	store    *Store
	fetcher  *fakeFetcher
	notifier *recordingNotifier
	sources  *SourceService
	rulesets *RulesetService
	rules    *RuleService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := database.OpenTestDB(t)
	store := NewStore(db)
	fetcher := newFakeFetcher()
	notifier := &recordingNotifier{}

	sources := NewSourceService(store, fetcher, NewStoreMerger(db), feeds.DiffComparer{}, notifier)
	sources.now = func() time.Time { return fixedNow }
	rulesets := NewRulesetService(store, sources, 2)
	rulesets.now = func() time.Time { return fixedNow }
	refs, err := NewReferenceCache(16)
	require.NoError(t, err)

	return &testEnv{
		store:    store,
		fetcher:  fetcher,
		notifier: notifier,
		sources:  sources,
		rulesets: rulesets,
		rules:    NewRuleService(store, refs),
	}
}

func rule(sid uint, msg string, extra string) string {
	return fmt.Sprintf("alert tcp any any -> any any (msg:\"%s\"; %ssid:%d; rev:1;)\n", msg, extra, sid)
}

func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, name := range names {
		content := files[name]
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(content))}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// seedSource creates an archive source with the given rules files and runs
// one refresh.
func (e *testEnv) seedSource(t *testing.T, name string, files map[string]string) *models.Source {
	t.Helper()
	ctx := context.Background()
	uri := "https://rules.example.com/" + name + ".tar.gz"
	e.fetcher.set(uri, buildArchive(t, files))

	src, err := e.sources.Create(ctx, SourceInput{Name: name, URI: uri, Method: models.SourceMethodHTTP, Datatype: models.SourceDatatypeArchive})
	require.NoError(t, err)
	_, err = e.sources.Refresh(ctx, src.ID)
	require.NoError(t, err)
	return src
}

func (e *testEnv) category(t *testing.T, sourceID uint, name string) models.Category {
	t.Helper()
	cats, err := e.sources.Categories(context.Background(), sourceID)
	require.NoError(t, err)
	for _, c := range cats {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %s not found", name)
	return models.Category{}
}

func (e *testEnv) ruleBySID(t *testing.T, sid uint) models.Rule {
	t.Helper()
	r, err := findRuleBySID(context.Background(), e.store, sid)
	require.NoError(t, err)
	return *r
}

func sidsOf(rules []models.Rule) []uint {
	out := make([]uint, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.SID)
	}
	return out
}
