package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type cacheCounts struct {
	Found   int
	Missing int
}

// summary is the end-of-run report.
type summary struct {
	Elapsed time.Duration
	Tracks  int
	Users   int
	Albums  int
	Artists int
	RunID   string
	Cache   *cacheCounts // nil when the lyrics cache is off
}

func renderSummary(s summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Value"})

	tw.AppendRow(table.Row{"Took", fmt.Sprintf("%.1f seconds", s.Elapsed.Seconds())})
	tw.AppendRow(table.Row{"Total tracks", humanize.Comma(int64(s.Tracks))})
	tw.AppendRow(table.Row{"Total users", humanize.Comma(int64(s.Users))})
	tw.AppendRow(table.Row{"Albums", humanize.Comma(int64(s.Albums))})
	tw.AppendRow(table.Row{"Artists", humanize.Comma(int64(s.Artists))})
	if s.Cache != nil {
		tw.AppendRow(table.Row{"Lyrics cached", fmt.Sprintf("%d found, %d missing", s.Cache.Found, s.Cache.Missing)})
	}
	tw.AppendRow(table.Row{"Run", s.RunID})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
