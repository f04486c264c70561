//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package metrics implements model evaluation and reporting.
package metrics

import (
	"errors"
	"fmt"
	"io"

	"github.com/markkurossi/tabulate"
	"github.com/montanaflynn/stats"
)

// MeanSquaredError returns the mean squared error of the predictions.
func MeanSquaredError(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("metrics: %d predictions for %d labels",
			len(predicted), len(actual))
	}
	if len(actual) == 0 {
		return 0, errors.New("metrics: no labels")
	}
	sq := make(stats.Float64Data, len(actual))
	for i := range actual {
		d := actual[i] - predicted[i]
		sq[i] = d * d
	}
	return sq.Mean()
}

// Report collects per-client evaluation results.
type Report struct {
	Title   string
	Columns []string
	rows    []reportRow
}

type reportRow struct {
	name   string
	values []float64
}

// NewReport creates a report with the named value columns.
func NewReport(title string, columns ...string) *Report {
	return &Report{
		Title:   title,
		Columns: columns,
	}
}

// Add adds a row of values for the named client.
func (r *Report) Add(name string, values ...float64) error {
	if len(values) != len(r.Columns) {
		return fmt.Errorf("metrics: %d values for %d columns", len(values),
			len(r.Columns))
	}
	r.rows = append(r.rows, reportRow{
		name:   name,
		values: values,
	})
	return nil
}

// Column returns the values of the column idx.
func (r *Report) Column(idx int) []float64 {
	var result []float64
	for _, row := range r.rows {
		result = append(result, row.values[idx])
	}
	return result
}

// Print prints the report and the mean and standard deviation of
// each column.
func (r *Report) Print(out io.Writer) {
	if len(r.rows) == 0 {
		return
	}
	if len(r.Title) > 0 {
		fmt.Fprintf(out, "%s\n", r.Title)
	}

	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Client").SetAlign(tabulate.ML)
	for _, col := range r.Columns {
		tab.Header(col).SetAlign(tabulate.MR)
	}
	for _, rr := range r.rows {
		row := tab.Row()
		row.Column(rr.name)
		for _, v := range rr.values {
			row.Column(fmt.Sprintf("%.2f", v))
		}
	}
	if len(r.rows) > 1 {
		mean := tab.Row()
		mean.Column("Mean").SetFormat(tabulate.FmtBold)
		sd := tab.Row()
		sd.Column("╰╴StdDev").SetFormat(tabulate.FmtItalic)

		for idx := range r.Columns {
			data := stats.Float64Data(r.Column(idx))
			m, _ := data.Mean()
			s, _ := data.StandardDeviation()
			mean.Column(fmt.Sprintf("%.2f", m)).SetFormat(tabulate.FmtBold)
			sd.Column(fmt.Sprintf("%.2f", s)).SetFormat(tabulate.FmtItalic)
		}
	}
	tab.Print(out)
}
