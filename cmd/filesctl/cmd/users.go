package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/templui/filesmanager/internal/app"
)

func UsersCmd() *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect accounts",
	}

	usersCmd.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Print the number of registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				n, err := a.UserRepository.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	})

	return usersCmd
}
