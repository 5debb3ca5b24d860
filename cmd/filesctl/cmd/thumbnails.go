package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/templui/filesmanager/internal/app"
	"github.com/templui/filesmanager/internal/model"
)

func ThumbnailsCmd() *cobra.Command {
	thumbnailsCmd := &cobra.Command{
		Use:   "thumbnails",
		Short: "Manage image derivatives",
	}

	thumbnailsCmd.AddCommand(&cobra.Command{
		Use:   "enqueue <fileId>...",
		Short: "Publish thumbnail jobs for existing images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				for _, id := range args {
					file, err := a.FileService.EnqueueThumbnailsByID(cmd.Context(), model.FileID(id))
					if err != nil {
						return fmt.Errorf("%s: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (%s)\n", file.ID, file.Name)
				}
				return nil
			})
		},
	})

	return thumbnailsCmd
}
