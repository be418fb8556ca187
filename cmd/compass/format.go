package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/teleportme/compass/pkg/compass"
	"github.com/teleportme/compass/pkg/compass/analytics"
	"github.com/teleportme/compass/pkg/compass/catalog"
	"github.com/teleportme/compass/pkg/compass/report"
	"github.com/teleportme/compass/pkg/compass/signal"
	"github.com/teleportme/compass/pkg/compass/similar"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// headingView is the printable form of a user's heading.
type headingView struct {
	Weights map[string]float64 `json:"weights"`
	Heading signal.Heading     `json:"heading"`
}

// write prints v to w in the requested format.
func write(w io.Writer, format string, v any) error {
	switch OutputFormat(format) {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatHuman:
		return writeHuman(w, v)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeHuman(w io.Writer, v any) error {
	switch v := v.(type) {
	case report.Report:
		return writeReport(w, v)
	case []report.Report:
		return writeReports(w, v)
	case []similar.Result:
		return writeSimilar(w, v)
	case compass.PreviewResult:
		return writePreview(w, v)
	case headingView:
		return writeHeading(w, v)
	case analytics.Summary:
		return writeSummary(w, v)
	default:
		return write(w, string(FormatJSON), v)
	}
}

func writeReport(w io.Writer, r report.Report) error {
	fmt.Fprintf(w, "Report %s (%s)\n", r.ID, r.Mode)
	if r.Heading != nil {
		fmt.Fprintf(w, "Heading: %s %s\n", r.Heading.Emoji, r.Heading.Name)
	}
	if r.UsedFallback {
		fmt.Fprintln(w, "Picks: algorithmic")
	} else {
		fmt.Fprintln(w, "Picks: curated")
	}
	if len(r.Matches) == 0 {
		fmt.Fprintln(w, "No matches.")
		return nil
	}
	for _, m := range r.Matches {
		fmt.Fprintf(w, "\n%d. %s, %s  %d%%\n", m.Rank, m.CityName, m.CityCountry, m.MatchPercent)
		fmt.Fprintf(w, "   %s\n", m.Rationale)
		for _, cat := range report.ComparisonCategories {
			c := m.Comparison[cat]
			fmt.Fprintf(w, "   %-22s %4.1f (%+.1f) %s\n", cat, c.MatchScore, c.Delta, catalog.MetricLabel(cat, c.MatchScore))
		}
	}
	return nil
}

func writeReports(w io.Writer, reports []report.Report) error {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No reports.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tMODE\tMATCHES\tTOP")
	for _, r := range reports {
		top := "-"
		if len(r.Matches) > 0 {
			top = r.Matches[0].CityName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Mode, len(r.Matches), top)
	}
	return tw.Flush()
}

func writeSimilar(w io.Writer, results []similar.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No similar cities found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CITY\tCOUNTRY\tSIMILARITY\tTAG")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%s\n", r.City.Name, r.City.Country, r.Similarity*100, r.Tag)
	}
	return tw.Flush()
}

func writePreview(w io.Writer, res compass.PreviewResult) error {
	if res.Stale {
		fmt.Fprintln(w, "(from a stale snapshot, run with --refresh to reload)")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CITY\tCOUNTRY\tSCORE\tVIBE\tMODIFIER")
	for _, e := range res.Estimates {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.0f\t%+.1f\n", e.City.Name, e.City.Country, e.Score, e.Vibe, e.Modifier)
	}
	return tw.Flush()
}

func writeHeading(w io.Writer, h headingView) error {
	fmt.Fprintf(w, "%s %s\n", h.Heading.Emoji, h.Heading.Name)
	names := make([]string, 0, len(h.Weights))
	for name := range h.Weights {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		bar := strings.Repeat("#", int(h.Weights[name]*20+0.5))
		fmt.Fprintf(w, "  %-10s %.2f %s\n", name, h.Weights[name], bar)
	}
	return nil
}

func writeSummary(w io.Writer, s analytics.Summary) error {
	fmt.Fprintf(w, "Cities: %d\n\n", s.TotalCities)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tCITIES\tCOVERAGE\tMEAN")
	for _, c := range s.Coverage {
		fmt.Fprintf(tw, "%s\t%d\t%.0f%%\t%.1f\n", c.Category, c.Cities, c.Percent, c.Mean)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(s.Drift.Orphans) > 0 {
		fmt.Fprintln(w, "\nTags no signal maps to:")
		for _, o := range s.Drift.Orphans {
			fmt.Fprintf(w, "  %s (%d cities)\n", o.Tag, o.Cities)
		}
	}
	if len(s.Drift.Missing) > 0 {
		fmt.Fprintf(w, "\nSignal tags no city carries: %s\n", strings.Join(s.Drift.Missing, ", "))
	}
	if len(s.Pairs) > 0 {
		fmt.Fprintln(w, "\nTags that travel together:")
		for _, p := range s.Pairs {
			fmt.Fprintf(w, "  %s + %s  pmi=%.2f cities=%d\n", p.A, p.B, p.PMI, p.Support)
		}
	}
	return nil
}
