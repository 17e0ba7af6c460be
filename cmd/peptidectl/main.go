// Command peptidectl prints titration schedules from the protocol catalog
// without the API.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"peptideTrackAPI/internal/titration"
)

func main() {
	if err := rootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	catalogPath string
	start       string
	weekday     string
	asJSON      bool
}

func rootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "peptidectl",
		Short:         "Titration schedule tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "Protocol catalog YAML (defaults to the built-in catalog)")

	cmd.AddCommand(protocolsCmd(opts), scheduleCmd(opts), exportCmd(opts), calendarCmd(opts))
	return cmd
}

func loadCatalog(opts *options) (*titration.Catalog, error) {
	if opts.catalogPath == "" {
		return titration.DefaultCatalog(), nil
	}
	data, err := os.ReadFile(opts.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return titration.LoadCatalog(data)
}

func parseStart(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --start %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func resolve(opts *options, id string) (titration.Protocol, []titration.Phase, error) {
	catalog, err := loadCatalog(opts)
	if err != nil {
		return titration.Protocol{}, nil, err
	}
	p, err := catalog.Get(id)
	if err != nil {
		return titration.Protocol{}, nil, err
	}
	start, err := parseStart(opts.start)
	if err != nil {
		return titration.Protocol{}, nil, err
	}
	return p, titration.Generate(p, start), nil
}

func protocolsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "protocols",
		Short: "List catalog protocols",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(opts)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tFREQUENCY\tSTEPS")
			for _, p := range catalog.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Category, p.Frequency, len(p.Steps))
			}
			return tw.Flush()
		},
	}
}

func scheduleCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule <protocol-id>",
		Short: "Print the dated phases of a protocol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, phases, err := resolve(opts, args[0])
			if err != nil {
				return err
			}

			now := time.Now()
			if opts.asJSON {
				views := make([]titration.PhaseView, 0, len(phases))
				for _, ph := range phases {
					views = append(views, ph.View(now))
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WEEK\tDOSE\tSTART\tEND\t")
			for _, ph := range phases {
				end := "ongoing"
				if ph.EndDate != nil {
					end = ph.EndDate.Format("2006-01-02")
				}
				marker := ""
				if ph.IsCurrent(now) {
					marker = "<- current"
				}
				fmt.Fprintf(tw, "%d\t%s%s\t%s\t%s\t%s\n",
					ph.Step.StartWeek, titration.FormatDose(ph.Step.Dose), ph.Step.Unit,
					ph.StartDate.Format("2006-01-02"), end, marker)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&opts.start, "start", "", "Start date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print JSON")
	return cmd
}

func exportCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <protocol-id>",
		Short: "Print the plain text export of a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, phases, err := resolve(opts, args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), titration.ExportText(phases))
			return err
		},
	}
	cmd.Flags().StringVar(&opts.start, "start", "", "Start date YYYY-MM-DD (default today)")
	return cmd
}

func parseWeekday(s string) (*time.Weekday, error) {
	if s == "" {
		return nil, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("invalid --weekday %q", s)
}

func calendarCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar <protocol-id>",
		Short: "Print the recurring calendar entries for a schedule as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, phases, err := resolve(opts, args[0])
			if err != nil {
				return err
			}
			weekday, err := parseWeekday(opts.weekday)
			if err != nil {
				return err
			}
			entries, err := titration.CalendarEntries(p, phases, weekday)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		},
	}
	cmd.Flags().StringVar(&opts.start, "start", "", "Start date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&opts.weekday, "weekday", "", "Injection weekday for weekly protocols (e.g. mon)")
	return cmd
}
