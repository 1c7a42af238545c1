package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"listen-history/models"
	"listen-history/services"
)

type periodFlags struct {
	period string
	start  string
	end    string
	top    int
}

func (p *periodFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.period, "period", "all", "period to report on: all, month, year or custom")
	cmd.Flags().StringVar(&p.start, "start", "", "first day of a custom period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&p.end, "end", "", "last day of a custom period (YYYY-MM-DD)")
	cmd.Flags().IntVar(&p.top, "top", 0, "entries in top-N tables (default TOP_N)")
}

func (p *periodFlags) selector() (services.PeriodSelector, error) {
	return services.ParsePeriod(p.period, p.start, p.end)
}

func (p *periodFlags) topN(a *app) int {
	if p.top > 0 {
		return p.top
	}
	return a.cfg.TopN
}

func newReportCmd(root *rootOptions) *cobra.Command {
	var (
		flags  periodFlags
		asJSON bool
		fromDB bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print listening insights for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := flags.selector()
			if err != nil {
				return err
			}

			a, err := root.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var report *models.InsightReport
			if fromDB {
				report, err = reportFromMirror(cmd, a, sel, flags.topN(a))
			} else {
				var summary *services.Summary
				summary, err = a.summaries.Summary(cmd.Context(), sel, flags.topN(a))
				if summary != nil {
					report = summary.Report
					if summary.Load.Degraded {
						fmt.Fprintf(cmd.ErrOrStderr(), "Warning: showing cached data, refresh failed: %s\n",
							describeError(summary.Load.Warning))
					}
				}
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			services.NewInsightService(a.logger).Print(report)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&fromDB, "from-db", false, "read listens from the PostgreSQL mirror instead of the cache")
	return cmd
}

// reportFromMirror builds the report from the PostgreSQL copy of the dataset.
func reportFromMirror(cmd *cobra.Command, a *app, sel services.PeriodSelector, top int) (*models.InsightReport, error) {
	if a.mirror == nil {
		return nil, &models.ConfigError{Message: "--from-db needs POSTGRES_ENABLED=true and a reachable database"}
	}
	stored, err := a.mirror.FetchAll(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("report: read mirror: %w", err)
	}
	ds := make(models.Dataset, 0, len(stored))
	for _, l := range stored {
		ds = append(ds, services.NewListen(l.Date, l.Title, l.Artist, l.SongID, l.Link))
	}
	a.logger.Info("[report] Loaded %d listens from PostgreSQL", len(ds))
	return services.NewInsightService(a.logger).Generate(ds, services.ReportOptions{
		Period: sel,
		TopN:   top,
		Now:    time.Now(),
	}), nil
}
