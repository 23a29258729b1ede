package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Wikid82/scirius/backend/internal/feeds"
)

func newUpdateCmd(a *app, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "update [source-id...]",
		Short: "Fetch and merge sources (all of them when no id is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			var (
				results     []*feeds.SyncResult
				syncErr     error
				concurrency = a.cfg.Sync.Concurrency
			)
			if len(ids) == 0 {
				results, syncErr = a.svc.Sources.RefreshAll(ctx, concurrency)
			} else {
				results, syncErr = a.svc.Sources.RefreshMany(ctx, ids, concurrency)
			}

			w := cmd.OutOrStdout()
			if opts.json {
				if err := writeJSON(w, results); err != nil {
					return err
				}
				return syncErr
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{
					r.SourceName,
					strconv.Itoa(r.Categories),
					strconv.Itoa(r.Added),
					strconv.Itoa(r.Updated),
					strconv.Itoa(r.Unchanged),
					strconv.Itoa(r.Stale),
					r.Duration.Round(time.Millisecond).String(),
				})
			}
			if len(rows) > 0 {
				if err := renderTable(w, []string{"SOURCE", "CATEGORIES", "ADDED", "UPDATED", "UNCHANGED", "STALE", "DURATION"}, rows); err != nil {
					return err
				}
			}
			if syncErr != nil {
				errorColor.Fprintf(cmd.ErrOrStderr(), "Update failed: %v\n", syncErr)
				return syncErr
			}
			successColor.Fprintf(w, "Updated %d source(s)\n", len(results))
			return nil
		},
	}
}

func parseIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return uint(id), nil
}
