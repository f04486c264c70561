//
// Copyright (c) 2020-2026 Markku Rossi
//
// All rights reserved.
//

package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/markkurossi/fedlr/p2p"
	"github.com/markkurossi/tabulate"
)

// FileSize implements human readable byte counts.
type FileSize uint64

func (s FileSize) String() string {
	if s > 1000*1000*1000*1000 {
		return fmt.Sprintf("%dTB", s/(1000*1000*1000*1000))
	} else if s > 1000*1000*1000 {
		return fmt.Sprintf("%dGB", s/(1000*1000*1000))
	} else if s > 1000*1000 {
		return fmt.Sprintf("%dMB", s/(1000*1000))
	} else if s > 1000 {
		return fmt.Sprintf("%dkB", s/1000)
	} else {
		return fmt.Sprintf("%dB", s)
	}
}

// Timing records protocol phase durations and renders a profiling
// report. Samples with the same label are accumulated into one row.
type Timing struct {
	Start   time.Time
	End     time.Time
	Samples []*Sample
}

// Sample contains the accumulated duration of one protocol phase.
type Sample struct {
	Label    string
	Count    int
	Duration time.Duration
}

// NewTiming creates a new Timing instance.
func NewTiming() *Timing {
	return &Timing{
		Start: time.Now(),
	}
}

// Add adds the duration d to the sample with label.
func (t *Timing) Add(label string, d time.Duration) {
	t.End = time.Now()
	for _, s := range t.Samples {
		if s.Label == label {
			s.Count++
			s.Duration += d
			return
		}
	}
	t.Samples = append(t.Samples, &Sample{
		Label:    label,
		Count:    1,
		Duration: d,
	})
}

// Measure runs f and records its duration under label.
func (t *Timing) Measure(label string, f func() error) error {
	start := time.Now()
	err := f()
	t.Add(label, time.Since(start))
	return err
}

// Total returns the total duration of the timing.
func (t *Timing) Total() time.Duration {
	if t.End.IsZero() {
		return 0
	}
	return t.End.Sub(t.Start)
}

// Print prints profiling report to out. The stats are included if
// they are set.
func (t *Timing) Print(out io.Writer, stats p2p.IOStats) {
	if len(t.Samples) == 0 {
		return
	}

	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Op").SetAlign(tabulate.ML)
	tab.Header("Count").SetAlign(tabulate.MR)
	tab.Header("Time").SetAlign(tabulate.MR)
	tab.Header("%").SetAlign(tabulate.MR)

	total := t.Total()
	for _, sample := range t.Samples {
		row := tab.Row()
		row.Column(sample.Label)
		row.Column(fmt.Sprintf("%d", sample.Count))
		row.Column(sample.Duration.String())
		var pct float64
		if total > 0 {
			pct = float64(sample.Duration) / float64(total) * 100
		}
		row.Column(fmt.Sprintf("%.2f%%", pct))
	}
	row := tab.Row()
	row.Column("Total").SetFormat(tabulate.FmtBold)
	row.Column("").SetFormat(tabulate.FmtBold)
	row.Column(total.String()).SetFormat(tabulate.FmtBold)
	row.Column("").SetFormat(tabulate.FmtBold)

	if stats.Sent != nil {
		sent := stats.Sent.Load()
		received := stats.Recvd.Load()

		row = tab.Row()
		row.Column("├╴Sent").SetFormat(tabulate.FmtItalic)
		row.Column("")
		row.Column(FileSize(sent).String()).SetFormat(tabulate.FmtItalic)
		row.Column("")

		row = tab.Row()
		row.Column("├╴Rcvd").SetFormat(tabulate.FmtItalic)
		row.Column("")
		row.Column(FileSize(received).String()).SetFormat(tabulate.FmtItalic)
		row.Column("")

		row = tab.Row()
		row.Column("╰╴Flcd").SetFormat(tabulate.FmtItalic)
		row.Column("")
		row.Column(fmt.Sprintf("%v", stats.Flushed.Load())).
			SetFormat(tabulate.FmtItalic)
		row.Column("")
	}
	tab.Print(out)
}
