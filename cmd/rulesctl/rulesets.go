package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Wikid82/scirius/backend/internal/models"
	"github.com/Wikid82/scirius/backend/internal/services"
)

func newRulesetsCmd(a *app, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rulesets",
		Aliases: []string{"ruleset"},
		Short:   "List rulesets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			rulesets, err := collect(func(p services.Page) (*services.Listing[models.Ruleset], error) {
				return a.svc.Rulesets.List(ctx, p)
			})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), rulesets)
			}
			rows := make([][]string, 0, len(rulesets))
			for _, rs := range rulesets {
				_, rules, err := a.svc.Rulesets.Generate(ctx, rs.ID)
				if err != nil {
					return err
				}
				created, updated := rs.CreatedDate, rs.UpdatedDate
				rows = append(rows, []string{uitoa(rs.ID), rs.Name, strconv.Itoa(len(rules)), formatTime(&created), formatTime(&updated)})
			}
			return renderTable(cmd.OutOrStdout(), []string{"ID", "NAME", "RULES", "CREATED", "UPDATED"}, rows)
		},
	}
	cmd.AddCommand(newRulesetCreateCmd(a, opts))
	return cmd
}

func newRulesetCreateCmd(a *app, opts *options) *cobra.Command {
	var in services.RulesetInput
	cmd := &cobra.Command{
		Use:     "create <name>",
		Short:   "Create a ruleset from sources and categories",
		Example: "  rulesctl rulesets create IDS1 --source 1 --category 3 --category 4",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			in.Name = args[0]
			rs, err := a.svc.Rulesets.Create(ctx, in)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), rs)
			}
			successColor.Fprintf(cmd.OutOrStdout(), "Created ruleset %s (id %d)\n", rs.Name, rs.ID)
			return nil
		},
	}
	cmd.Flags().UintSliceVar(&in.Sources, "source", nil, "source id to pin (repeatable)")
	cmd.Flags().UintSliceVar(&in.Categories, "category", nil, "category id to select (repeatable)")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}
