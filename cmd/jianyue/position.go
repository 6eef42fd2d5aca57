package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newPositionCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "position",
		Short: "Inspect or forget saved reading positions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:          "show <slug>",
		Short:        "Print the saved position of a book",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			e, err := openEnv(*cfgFile)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, e.Close()) }()

			id, ok, err := e.positions.Load(args[0])
			if err != nil {
				return err
			}
			if !ok {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "no saved position for %s\n", args[0])
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:          "clear <slug>",
		Short:        "Forget the saved position of a book",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			e, err := openEnv(*cfgFile)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, e.Close()) }()

			return e.positions.Clear(args[0])
		},
	})

	return cmd
}
