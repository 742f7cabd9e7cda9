package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lensview/lensview/internal/state"
)

func newProfilesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Show recent connection profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			history, err := state.NewManager(cfg.DataDir)
			if err != nil {
				return err
			}
			defer history.Close()

			records, err := history.GetRecent(limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no connection history")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tKIND\tTARGET\tSTATUS")
			for _, r := range records {
				status := r.Status
				if r.Error != "" {
					status = fmt.Sprintf("%s (%s)", r.Status, r.Error)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					r.ConnectedAt.Format("2006-01-02 15:04:05"),
					r.Descriptor.Kind,
					r.Descriptor.Target(),
					status)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records to show")
	return cmd
}
