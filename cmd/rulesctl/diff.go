package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Wikid82/scirius/backend/internal/feeds"
)

var errDiffFound = errors.New("source differs from its feed")

func newDiffCmd(a *app, opts *options) *cobra.Command {
	var exitCode bool
	cmd := &cobra.Command{
		Use:   "diff <source-id>",
		Short: "Compare a source's stored rules with its current feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			diff, err := a.svc.Sources.Diff(ctx, id)
			if err != nil {
				return err
			}
			if opts.json {
				if err := writeJSON(cmd.OutOrStdout(), diff); err != nil {
					return err
				}
			} else {
				printDiff(cmd.OutOrStdout(), diff)
			}
			if exitCode && !diff.Empty() {
				return errDiffFound
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "fail when the feed differs from the stored rules")
	return cmd
}

func printDiff(w io.Writer, diff *feeds.SourceDiff) {
	if diff.Empty() {
		successColor.Fprintln(w, "No changes")
		return
	}
	for _, name := range diff.NewCategories {
		successColor.Fprintf(w, "+ category %s\n", name)
	}
	for _, name := range diff.RemovedCategories {
		errorColor.Fprintf(w, "- category %s\n", name)
	}
	for _, c := range diff.Categories {
		headerColor.Fprintf(w, "%s\n", c.Name)
		for _, sid := range c.Added {
			successColor.Fprintf(w, "  + %d\n", sid)
		}
		for _, sid := range c.Modified {
			warningColor.Fprintf(w, "  ~ %d\n", sid)
		}
		for _, sid := range c.Removed {
			errorColor.Fprintf(w, "  - %d\n", sid)
		}
	}
	fmt.Fprintf(w, "digest %s\n", diff.Digest)
}
