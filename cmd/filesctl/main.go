package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/templui/filesmanager/cmd/filesctl/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "filesctl",
		Short:        "Operator tools for the files manager",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.ThumbnailsCmd())
	rootCmd.AddCommand(cmd.UsersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
