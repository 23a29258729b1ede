package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Wikid82/scirius/backend/internal/api/routes"
	"github.com/Wikid82/scirius/backend/internal/config"
	"github.com/Wikid82/scirius/backend/internal/database"
	"github.com/Wikid82/scirius/backend/internal/logger"
	"github.com/Wikid82/scirius/backend/internal/version"
)

// defaultTimeout bounds a single CLI operation, feed downloads included.
const defaultTimeout = 10 * time.Minute

type options struct {
	dbPath  string
	json    bool
	noColor bool
}

// app is the opened database and service graph shared by subcommands.
type app struct {
	cfg config.Config
	db  *gorm.DB
	svc *routes.Services
}

func (a *app) close() {
	if a == nil || a.db == nil {
		return
	}
	a.svc.Notifications.Wait()
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	var a app

	root := &cobra.Command{
		Use:          "rulesctl",
		Short:        "Manage IDS rule sources and rulesets",
		Version:      version.Full(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.noColor || opts.json {
				color.NoColor = true
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.dbPath != "" {
				cfg.DatabasePath = opts.dbPath
			}
			logger.Init(cfg.Debug, cmd.ErrOrStderr())

			db, err := database.Connect(cfg.DatabasePath)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			svc, err := routes.NewServices(db, cfg, nil)
			if err != nil {
				return fmt.Errorf("build services: %w", err)
			}
			a = app{cfg: cfg, db: db, svc: svc}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "database path (defaults to SCIRIUS_DB_PATH)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newSourcesCmd(&a, opts),
		newRulesetsCmd(&a, opts),
		newUpdateCmd(&a, opts),
		newDiffCmd(&a, opts),
		newExportCmd(&a),
	)
	return root
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, defaultTimeout)
}
