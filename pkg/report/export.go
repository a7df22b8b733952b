package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
)

// File names written by WriteCSV.
const (
	MetricsFile = "metrics.csv"
	WinnersFile = "winners.csv"
	WinsFile    = "wins.csv"
)

// UndecidedLabel marks blocks without a winner in exported tables.
const UndecidedLabel = "undecided"

// WriteCSV writes the metrics, winner and win-count tables into dir,
// creating it if needed. Values are written as given; pass r.Rounded()
// for dashboard precision.
func WriteCSV(dir string, r *Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tables := []struct {
		name  string
		write func(io.Writer, *Report) error
	}{
		{MetricsFile, WriteMetricsCSV},
		{WinnersFile, WriteWinnersCSV},
		{WinsFile, WriteWinsCSV},
	}
	for _, t := range tables {
		if err := writeFile(filepath.Join(dir, t.name), r, t.write); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, r *Report, write func(io.Writer, *Report) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func WriteMetricsCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"block", "model", "sse", "mse", "r2", "mae", "rmse", "flags", "error"})
	for _, m := range r.Metrics {
		_ = cw.Write([]string{
			strconv.Itoa(m.Block), m.Model,
			m.SSE.String(), m.MSE.String(), m.R2.String(), m.MAE.String(), m.RMSE.String(),
			strings.Join(m.Flags, ";"), m.Error,
		})
	}
	cw.Flush()
	return cw.Error()
}

func WriteWinnersCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"block", "winner", "r2"})
	for _, row := range r.Winners {
		_ = cw.Write([]string{strconv.Itoa(row.Block), winnerLabel(row.Winner), row.R2.String()})
	}
	cw.Flush()
	return cw.Error()
}

func WriteWinsCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"model", "wins"})
	for _, c := range r.Wins {
		_ = cw.Write([]string{c.Model, strconv.Itoa(c.Wins)})
	}
	_ = cw.Write([]string{UndecidedLabel, strconv.Itoa(r.Undecided)})
	cw.Flush()
	return cw.Error()
}

// WriteJSON encodes the whole report; undefined numbers become null.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Fprint renders the three tables as aligned text.
func Fprint(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "block\tmodel\tSSE\tMSE\tR²\tflags\t")
	for _, m := range r.Metrics {
		flags := strings.Join(m.Flags, ",")
		if m.Error != "" {
			flags = "error"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n", m.Block, m.Model, m.SSE, m.MSE, m.R2, flags)
	}
	fmt.Fprintln(tw, "\t\t\t\t\t\t")
	fmt.Fprintln(tw, "block\twinner\tR²\t")
	for _, row := range r.Winners {
		fmt.Fprintf(tw, "%d\t%s\t%s\t\n", row.Block, winnerLabel(row.Winner), row.R2)
	}
	fmt.Fprintln(tw, "\t\t\t")
	fmt.Fprintln(tw, "model\twins\t")
	for _, c := range r.Wins {
		fmt.Fprintf(tw, "%s\t%d\t\n", c.Model, c.Wins)
	}
	fmt.Fprintf(tw, "%s\t%d\t\n", UndecidedLabel, r.Undecided)
	return tw.Flush()
}

func winnerLabel(w string) string {
	if w == "" {
		return UndecidedLabel
	}
	return w
}
