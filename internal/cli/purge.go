package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove dangling records",
	}

	orphans := &cobra.Command{
		Use:   "orphans",
		Short: "Delete services whose host no longer exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(e *env) error {
				n, err := e.store.Services().DeleteOrphans(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(e.out, "Deleted %d orphaned services\n", n)
				return nil
			})
		},
	}

	cmd.AddCommand(orphans)
	return cmd
}
