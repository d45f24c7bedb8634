// Package output renders the final per-peer and group-total traversal
// report as either a table or JSON.
package output

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/otuschhoff/dwalk/internal/scheduler"
)

// Report is what the CLI prints once every peer has reached quiescence.
type Report struct {
	Peers []scheduler.Counters
	Total scheduler.Counters
}

// NewReport aggregates one report from every peer's final counters.
func NewReport(peers []scheduler.Counters) Report {
	r := Report{Peers: peers}
	for _, c := range peers {
		r.Total.Add(c)
	}
	return r
}

// Formatter renders a Report as "table" or "json".
type Formatter struct {
	format string
}

// NewFormatter creates a Formatter for the given format ("table" or
// "json"; anything else falls back to "table").
func NewFormatter(format string) *Formatter {
	return &Formatter{format: format}
}

// Format renders r according to the Formatter's format.
func (f *Formatter) Format(r Report) string {
	if f.format == "json" {
		return f.toJSON(r)
	}
	return f.toTable(r)
}

func (f *Formatter) toJSON(r Report) string {
	type row struct {
		Rank             int    `json:"rank"`
		Files            int64  `json:"files"`
		Dirs             int64  `json:"dirs"`
		Bytes            int64  `json:"bytes"`
		MessagesSent     int64  `json:"messages_sent"`
		MessagesReceived int64  `json:"messages_received"`
		Rounds           int64  `json:"rounds"`
	}
	out := struct {
		Peers []row `json:"peers"`
		Total row   `json:"total"`
	}{}
	for i, c := range r.Peers {
		out.Peers = append(out.Peers, row{
			Rank: i, Files: c.FilesProcessed, Dirs: c.DirsProcessed, Bytes: c.BytesSeen,
			MessagesSent: c.MessagesSent, MessagesReceived: c.MessagesReceived, Rounds: c.Rounds,
		})
	}
	out.Total = row{
		Rank: -1, Files: r.Total.FilesProcessed, Dirs: r.Total.DirsProcessed, Bytes: r.Total.BytesSeen,
		MessagesSent: r.Total.MessagesSent, MessagesReceived: r.Total.MessagesReceived, Rounds: r.Total.Rounds,
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Sprintf("error: %v\n", err)
	}
	return string(b)
}

func (f *Formatter) toTable(r Report) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Rank", "Files", "Dirs", "Bytes", "Sent", "Recvd", "Rounds"})

	for i, c := range r.Peers {
		t.AppendRow(table.Row{
			i,
			humanize.Comma(c.FilesProcessed),
			humanize.Comma(c.DirsProcessed),
			humanize.Bytes(uint64(c.BytesSeen)),
			humanize.Comma(c.MessagesSent),
			humanize.Comma(c.MessagesReceived),
			c.Rounds,
		})
	}

	t.AppendFooter(table.Row{
		"total",
		humanize.Comma(r.Total.FilesProcessed),
		humanize.Comma(r.Total.DirsProcessed),
		humanize.Bytes(uint64(r.Total.BytesSeen)),
		humanize.Comma(r.Total.MessagesSent),
		humanize.Comma(r.Total.MessagesReceived),
		"",
	})

	t.SetStyle(table.StyleColoredDark)
	return fmt.Sprintf("%s\n", t.Render())
}
