package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"listen-history/export"
	"listen-history/models"
)

var exportFormats = map[string]string{
	"xlsx": ".xlsx",
	"html": ".html",
	"pdf":  ".pdf",
}

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		flags periodFlags
		out   string
	)

	cmd := &cobra.Command{
		Use:       "export xlsx|html|pdf",
		Short:     "Write the insight report to a file",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"xlsx", "html", "pdf"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format := args[0]
			sel, err := flags.selector()
			if err != nil {
				return err
			}

			a, err := root.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.summaries.Summary(cmd.Context(), sel, flags.topN(a))
			if err != nil {
				return err
			}
			if summary.Load.Degraded {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: exporting cached data, refresh failed: %s\n",
					describeError(summary.Load.Warning))
			}

			path := out
			if path == "" {
				path = "listening-report" + exportFormats[format]
			}

			var buf bytes.Buffer
			if err := render(cmd, a, format, summary.Report, &buf); err != nil {
				return err
			}
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("export: create %q: %w", dir, err)
				}
			}
			if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("export: write %q: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s report (%s) to %s\n", format, summary.Report.Period, path)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default listening-report.<format>)")
	return cmd
}

func render(cmd *cobra.Command, a *app, format string, r *models.InsightReport, buf *bytes.Buffer) error {
	switch format {
	case "xlsx":
		return export.WriteXLSX(buf, r)
	case "html":
		return export.WriteHTML(buf, r)
	case "pdf":
		pdf, err := export.NewPDFRenderer(a.cfg.ChromeBin, a.logger).Render(cmd.Context(), r)
		if err != nil {
			return err
		}
		_, err = buf.Write(pdf)
		return err
	default:
		return fmt.Errorf("export: unknown format %q", format)
	}
}
