package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/lensview/lensview/internal/config"
	"github.com/lensview/lensview/internal/session"
)

func newCatCmd() *cobra.Command {
	flags := &connectionFlags{}
	var output string

	cmd := &cobra.Command{
		Use:   "cat <path>",
		Short: "Print the content of a remote file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), flags, func(ctx context.Context, cfg *config.Config, mgr *session.Manager) error {
				data, err := mgr.Read(ctx, args[0])
				if err != nil {
					return err
				}

				if output != "" {
					return os.WriteFile(output, data, 0644)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write content to a local file instead of stdout")
	return cmd
}
