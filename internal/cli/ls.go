package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lensview/lensview/internal/config"
	"github.com/lensview/lensview/internal/session"
)

func newLsCmd() *cobra.Command {
	flags := &connectionFlags{}
	var long bool

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a remote directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}

			return withSession(cmd.Context(), flags, func(ctx context.Context, cfg *config.Config, mgr *session.Manager) error {
				entries, err := mgr.List(ctx, dir)
				if err != nil {
					return err
				}

				if !long {
					for _, e := range entries {
						name := e.Name
						if e.IsDir {
							name += "/"
						}
						fmt.Fprintln(cmd.OutOrStdout(), name)
					}
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, e := range entries {
					kind := e.MediaType
					if e.IsDir {
						kind = "dir"
					}
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
						e.ModTime.Format("2006-01-02 15:04"), e.Size, kind, e.Name)
				}
				return w.Flush()
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show size, time and media kind")
	return cmd
}
