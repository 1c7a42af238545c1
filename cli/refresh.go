package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

func newRefreshCmd(root *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Download the sheets and rebuild the cached dataset",
		Long: `Refresh loads the cached dataset, downloading the sheets first when the
cache is missing or older than CACHE_TTL. Use --force to download regardless.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.cache.Load(cmd.Context(), force)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case res.Degraded:
				fmt.Fprintf(out, "Warning: refresh failed, using cached data from %s\n  %s\n",
					res.UpdatedAt.Format("2006-01-02 15:04"), describeError(res.Warning))
			case res.Refreshed:
				fmt.Fprintf(out, "Refreshed %d listens into %s", len(res.Dataset), a.store.Path())
				if res.Dropped > 0 {
					fmt.Fprintf(out, " (%d rows with unreadable dates dropped)", res.Dropped)
				}
				fmt.Fprintln(out)
				for _, id := range slices.Sorted(maps.Keys(res.SourceRows)) {
					fmt.Fprintf(out, "  sheet %s: %d rows\n", id, res.SourceRows[id])
				}
			default:
				fmt.Fprintf(out, "Cache is fresh: %d listens, updated %s\n",
					len(res.Dataset), res.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "download even if the cache is fresh")
	return cmd
}
