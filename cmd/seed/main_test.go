package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/scirius/backend/internal/api/routes"
	"github.com/Wikid82/scirius/backend/internal/config"
	"github.com/Wikid82/scirius/backend/internal/database"
	"github.com/Wikid82/scirius/backend/internal/models"
	"github.com/Wikid82/scirius/backend/internal/repository"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSeedDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "seed.yaml", `
sources:
  - name: ET Open
    uri: https://rules.example.com/emerging.rules.tar.gz
rulesets:
  - name: IDS1
    sources: [ET Open]
    categories: [emerging-scan]
`)

	seed, err := loadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Sources, 1)
	assert.Equal(t, models.SourceMethodHTTP, seed.Sources[0].Method)
	assert.Equal(t, models.SourceDatatypeArchive, seed.Sources[0].Datatype)
	require.Len(t, seed.Rulesets, 1)
	assert.Equal(t, []string{"emerging-scan"}, seed.Rulesets[0].Categories)

	_, err = loadSeed(writeFile(t, dir, "bad.yaml", "sources: {"))
	assert.Error(t, err)
}

func TestApplyIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	rules := writeFile(t, dir, "web.rules", "alert http any any -> any any (msg:\"PT WEB shell\"; sid:3000001; rev:1;)\n")
	seed := &Seed{
		Sources:  []SeedSource{{Name: "PT", URI: rules, Method: models.SourceMethodLocal, Datatype: models.SourceDatatypeFile}},
		Rulesets: []SeedRuleset{{Name: "IDS1", Sources: []string{"PT"}, Categories: []string{"web"}}},
	}

	db := database.OpenTestDB(t)
	svc, err := routes.NewServices(db, config.Config{Sync: config.SyncConfig{FetchTimeout: time.Second, FetchesPerMinute: 60, Concurrency: 1}}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, apply(ctx, svc, seed, true, 1))
	require.NoError(t, apply(ctx, svc, seed, true, 1))

	n, err := svc.Store.Rulesets.Count(ctx, repository.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rulesets, err := svc.Store.Rulesets.FindByFilter(ctx, repository.Filter{})
	require.NoError(t, err)
	_, generated, err := svc.Rulesets.Generate(ctx, rulesets[0].ID)
	require.NoError(t, err)
	require.Len(t, generated, 1)
	assert.EqualValues(t, 3000001, generated[0].SID)
}

func TestApplyUnknownCategory(t *testing.T) {
	seed := &Seed{
		Sources:  []SeedSource{{Name: "PT", URI: "/nowhere.rules", Method: models.SourceMethodLocal, Datatype: models.SourceDatatypeFile}},
		Rulesets: []SeedRuleset{{Name: "IDS1", Sources: []string{"PT"}, Categories: []string{"web"}}},
	}
	svc, err := routes.NewServices(database.OpenTestDB(t), config.Config{Sync: config.SyncConfig{Concurrency: 1}}, nil)
	require.NoError(t, err)

	err = apply(context.Background(), svc, seed, false, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
