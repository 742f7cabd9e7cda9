package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lensview/lensview/internal/config"
	"github.com/lensview/lensview/internal/session"
)

func newThumbCmd() *cobra.Command {
	flags := &connectionFlags{}
	var output string
	var dataURI bool
	var size int

	cmd := &cobra.Command{
		Use:   "thumb <path>",
		Short: "Derive a thumbnail for a remote image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), flags, func(ctx context.Context, cfg *config.Config, mgr *session.Manager) error {
				if dataURI {
					uri, err := mgr.ThumbnailDataURI(ctx, args[0], size)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), uri)
					return nil
				}

				entry, err := mgr.Thumbnail(ctx, args[0], size)
				if err != nil {
					return err
				}
				if output != "" {
					return os.WriteFile(output, entry.Data, 0644)
				}
				_, err = cmd.OutOrStdout().Write(entry.Data)
				return err
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the thumbnail to a local file")
	cmd.Flags().BoolVar(&dataURI, "data-uri", false, "print the thumbnail as a base64 data URI")
	cmd.Flags().IntVar(&size, "size", 0, "longest thumbnail edge in pixels (0 uses the configured default)")
	return cmd
}
