package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <ruleset-id>",
		Short: "Write the generated rules file of a ruleset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if output == "" || output == "-" {
				_, err = a.svc.Rulesets.Export(ctx, id, cmd.OutOrStdout())
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					_ = os.Remove(output)
				}
			}()
			rs, err := a.svc.Rulesets.Export(ctx, id, f)
			if err != nil {
				return err
			}
			successColor.Fprintf(cmd.ErrOrStderr(), "Exported ruleset %s to %s\n", rs.Name, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty or -)")
	return cmd
}
