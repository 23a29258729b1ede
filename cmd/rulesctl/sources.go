package main

import (
	"github.com/spf13/cobra"

	"github.com/Wikid82/scirius/backend/internal/models"
	"github.com/Wikid82/scirius/backend/internal/services"
)

func newSourcesCmd(a *app, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sources",
		Aliases: []string{"source"},
		Short:   "List rule sources",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			sources, err := collect(func(p services.Page) (*services.Listing[models.Source], error) {
				return a.svc.Sources.List(ctx, p)
			})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), sources)
			}
			rows := make([][]string, 0, len(sources))
			for _, s := range sources {
				rows = append(rows, []string{uitoa(s.ID), s.Name, s.Method, s.Datatype, formatTime(s.UpdatedDate), s.URI})
			}
			return renderTable(cmd.OutOrStdout(), []string{"ID", "NAME", "METHOD", "DATATYPE", "UPDATED", "URI"}, rows)
		},
	}
	cmd.AddCommand(newSourceAddCmd(a, opts))
	return cmd
}

func newSourceAddCmd(a *app, opts *options) *cobra.Command {
	var in services.SourceInput
	cmd := &cobra.Command{
		Use:   "add <name> <uri>",
		Short: "Register a new rule source",
		Example: `  rulesctl sources add "ET Open" https://rules.emergingthreats.net/open/suricata/emerging.rules.tar.gz
  rulesctl sources add local-web /etc/suricata/rules/web.rules --method local --datatype sig`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			in.Name, in.URI = args[0], args[1]
			src, err := a.svc.Sources.Create(ctx, in)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), src)
			}
			successColor.Fprintf(cmd.OutOrStdout(), "Created source %s (id %d)\n", src.Name, src.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Method, "method", models.SourceMethodHTTP, "fetch method: http or local")
	cmd.Flags().StringVar(&in.Datatype, "datatype", models.SourceDatatypeArchive, "payload type: sigs (tar.gz archive) or sig (single file)")
	return cmd
}
