package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"infradash/internal/auth"
)

const passwordEnv = "INFRADASH_ADMIN_PASSWORD"

func newUserCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the admin user",
	}

	var password string
	passwordFlag := func(c *cobra.Command) {
		c.Flags().StringVarP(&password, "password", "p", "", "Password (or set "+passwordEnv+")")
	}
	resolve := func() string {
		if password != "" {
			return password
		}
		return os.Getenv(passwordEnv)
	}

	setup := &cobra.Command{
		Use:   "setup <username>",
		Short: "Create the first admin user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(e *env) error {
				svc := auth.NewService(e.store.Users(), e.cfg.Auth.BcryptCost)
				user, err := svc.Setup(cmd.Context(), args[0], resolve())
				if err != nil {
					return err
				}
				fmt.Fprintf(e.out, "Created admin user %s (%s)\n", user.Username, user.ID)
				return nil
			})
		},
	}
	passwordFlag(setup)

	passwd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Change a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(e *env) error {
				svc := auth.NewService(e.store.Users(), e.cfg.Auth.BcryptCost)
				if err := svc.ChangePassword(cmd.Context(), args[0], resolve()); err != nil {
					return err
				}
				fmt.Fprintf(e.out, "Password updated for %s\n", args[0])
				return nil
			})
		},
	}
	passwordFlag(passwd)

	cmd.AddCommand(setup, passwd)
	return cmd
}
