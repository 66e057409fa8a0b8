package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"infradash/internal/backup"
)

func newBackupCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage store snapshots",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withArchive(cmd, func(e *env, a *backup.Archive) error {
				infos, err := a.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(infos) == 0 {
					fmt.Fprintln(e.out, "No backups")
					return nil
				}
				for _, info := range infos {
					fmt.Fprintf(e.out, "%s  %d bytes\n", info.Key, info.Size)
				}
				return nil
			})
		},
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the store now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withArchive(cmd, func(e *env, a *backup.Archive) error {
				data, err := e.store.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				info, err := a.Save(cmd.Context(), data)
				if err != nil {
					return err
				}
				fmt.Fprintf(e.out, "Created %s (%d bytes)\n", info.Key, info.Size)
				return nil
			})
		},
	}

	restore := &cobra.Command{
		Use:   "restore <key>",
		Short: "Replace the store contents with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withArchive(cmd, func(e *env, a *backup.Archive) error {
				if err := a.RestoreInto(cmd.Context(), args[0], e.store); err != nil {
					return err
				}
				fmt.Fprintf(e.out, "Restored %s\n", args[0])
				return nil
			})
		},
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete old snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withArchive(cmd, func(e *env, a *backup.Archive) error {
				age := olderThan
				if age == 0 {
					age = e.cfg.Database.BackupRetention
				}
				n, err := a.Prune(cmd.Context(), time.Now().Add(-age))
				if err != nil {
					return err
				}
				fmt.Fprintf(e.out, "Pruned %d backups\n", n)
				return nil
			})
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 0, "Age cutoff (default: configured retention)")

	cmd.AddCommand(list, create, restore, prune)
	return cmd
}
