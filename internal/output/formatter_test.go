package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/otuschhoff/dwalk/internal/scheduler"
	"github.com/otuschhoff/dwalk/internal/walk"
)

func sampleReport() Report {
	return NewReport([]scheduler.Counters{
		{Counters: walk.Counters{FilesProcessed: 3, DirsProcessed: 1, BytesSeen: 1024}, MessagesSent: 2, Rounds: 2},
		{Counters: walk.Counters{FilesProcessed: 5, DirsProcessed: 2, BytesSeen: 2048}, MessagesReceived: 1, Rounds: 2},
	})
}

func TestFormatTableContainsTotals(t *testing.T) {
	out := NewFormatter("table").Format(sampleReport())
	if !strings.Contains(out, "total") {
		t.Fatalf("expected a total row, got:\n%s", out)
	}
}

func TestFormatJSONRoundTrips(t *testing.T) {
	out := NewFormatter("json").Format(sampleReport())

	var parsed struct {
		Peers []struct {
			Files int64 `json:"files"`
		} `json:"peers"`
		Total struct {
			Files int64 `json:"files"`
		} `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(parsed.Peers) != 2 {
		t.Fatalf("expected 2 peer rows, got %d", len(parsed.Peers))
	}
	if parsed.Total.Files != 8 {
		t.Fatalf("expected total files 8, got %d", parsed.Total.Files)
	}
}

func TestNewReportAggregatesTotals(t *testing.T) {
	r := sampleReport()
	if r.Total.FilesProcessed != 8 || r.Total.DirsProcessed != 3 || r.Total.BytesSeen != 3072 {
		t.Fatalf("unexpected totals: %+v", r.Total)
	}
}
