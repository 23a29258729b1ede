// Command seed loads sources and rulesets from a YAML file into the
// database, optionally fetching every source first.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Wikid82/scirius/backend/internal/api/routes"
	"github.com/Wikid82/scirius/backend/internal/config"
	"github.com/Wikid82/scirius/backend/internal/database"
	"github.com/Wikid82/scirius/backend/internal/logger"
	"github.com/Wikid82/scirius/backend/internal/models"
	"github.com/Wikid82/scirius/backend/internal/repository"
	"github.com/Wikid82/scirius/backend/internal/services"
)

// Seed is the YAML document accepted by the command.
//
//	sources:
//	  - name: ET Open
//	    uri: https://rules.emergingthreats.net/open/suricata/emerging.rules.tar.gz
//	    method: http
//	    datatype: sigs
//	rulesets:
//	  - name: IDS1
//	    sources: [ET Open]
//	    categories: [emerging-scan, emerging-dos]
type Seed struct {
	Sources  []SeedSource  `yaml:"sources"`
	Rulesets []SeedRuleset `yaml:"rulesets"`
}

type SeedSource struct {
	Name     string `yaml:"name"`
	URI      string `yaml:"uri"`
	Method   string `yaml:"method"`
	Datatype string `yaml:"datatype"`
}

// SeedRuleset refers to sources and categories by name.
type SeedRuleset struct {
	Name       string   `yaml:"name"`
	Sources    []string `yaml:"sources"`
	Categories []string `yaml:"categories"`
}

func loadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range seed.Sources {
		s := &seed.Sources[i]
		if s.Method == "" {
			s.Method = models.SourceMethodHTTP
		}
		if s.Datatype == "" {
			s.Datatype = models.SourceDatatypeArchive
		}
	}
	return &seed, nil
}

// apply creates every missing source and ruleset. Existing entries are left
// untouched, so running the same seed twice is harmless. Sources are fetched
// before rulesets are built when fetch is set.
func apply(ctx context.Context, svc *routes.Services, seed *Seed, fetch bool, concurrency int) error {
	log := logger.Component("seed")
	ids := map[string]uint{}

	for _, s := range seed.Sources {
		src, err := svc.Sources.Create(ctx, services.SourceInput{Name: s.Name, URI: s.URI, Method: s.Method, Datatype: s.Datatype})
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			existing, err := sourceByName(ctx, svc, s.Name)
			if err != nil {
				return err
			}
			log.WithField("source", s.Name).Info("source already exists")
			ids[s.Name] = existing.ID
		case err != nil:
			return fmt.Errorf("source %s: %w", s.Name, err)
		default:
			log.WithField("source", s.Name).Info("source created")
			ids[s.Name] = src.ID
		}
	}

	if fetch && len(ids) > 0 {
		list := make([]uint, 0, len(ids))
		for _, id := range ids {
			list = append(list, id)
		}
		if _, err := svc.Sources.RefreshMany(ctx, list, concurrency); err != nil {
			return fmt.Errorf("fetch sources: %w", err)
		}
	}

	for _, r := range seed.Rulesets {
		in := services.RulesetInput{Name: r.Name}
		for _, name := range r.Sources {
			id, ok := ids[name]
			if !ok {
				src, err := sourceByName(ctx, svc, name)
				if err != nil {
					return fmt.Errorf("ruleset %s: source %s: %w", r.Name, name, err)
				}
				id = src.ID
			}
			in.Sources = append(in.Sources, id)
		}
		cats, err := categoryIDs(ctx, svc, in.Sources, r.Categories)
		if err != nil {
			return fmt.Errorf("ruleset %s: %w", r.Name, err)
		}
		in.Categories = cats

		if _, err := svc.Rulesets.Create(ctx, in); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				log.WithField("ruleset", r.Name).Info("ruleset already exists")
				continue
			}
			return fmt.Errorf("ruleset %s: %w", r.Name, err)
		}
		log.WithField("ruleset", r.Name).Info("ruleset created")
	}
	return nil
}

func sourceByName(ctx context.Context, svc *routes.Services, name string) (*models.Source, error) {
	found, err := svc.Store.Sources.FindByFilter(ctx, repository.Filter{Where: map[string]interface{}{"name": name}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, services.ErrSourceNotFound
	}
	return &found[0], nil
}

// categoryIDs resolves category names among the categories of sources.
func categoryIDs(ctx context.Context, svc *routes.Services, sources []uint, names []string) ([]uint, error) {
	byName := map[string]uint{}
	for _, id := range sources {
		cats, err := svc.Sources.Categories(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, c := range cats {
			byName[c.Name] = c.ID
		}
	}
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("category %s: %w", name, services.ErrCategoryNotFound)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func main() {
	file := flag.String("file", "seed.yaml", "seed file")
	fetch := flag.Bool("fetch", true, "fetch sources before creating rulesets")
	flag.Parse()

	log := logger.Log()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	logger.Init(cfg.Debug, os.Stdout)

	seed, err := loadSeed(*file)
	if err != nil {
		log.WithError(err).Fatal("load seed")
	}

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}
	svc, err := routes.NewServices(db, cfg, nil)
	if err != nil {
		log.WithError(err).Fatal("build services")
	}

	if err := apply(context.Background(), svc, seed, *fetch, cfg.Sync.Concurrency); err != nil {
		log.WithError(err).Fatal("seed failed")
	}
	svc.Notifications.Wait()
	fmt.Println("✓ Database seeded successfully")
}
