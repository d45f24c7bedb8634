// Package walk implements the directory-walk driver: given a directory
// path, it enumerates immediate children, classifying each as a
// subdirectory (returned for re-queueing) or a file (accounted and handed
// to a sink). Per-entry stat errors are isolated and never fail the walk;
// a sink rejecting an entry is fatal and aborts the walk immediately.
package walk

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Sink receives every walked directory (AddDir) and every non-directory
// entry encountered during a walk (AddFile).
// The reference implementation is a rotating archival container
// (internal/archive.RotatingArchiver); the walker depends only on this
// interface.
type Sink interface {
	AddFile(path string, info os.FileInfo) error
	AddDir(path string) error
}

// Result holds everything a single walk invocation produced: the
// directories to re-queue at the caller's discretion, the counters it
// accumulated, and Err, set when the sink rejected an entry. Err is fatal:
// the caller must abort the job rather than continue scheduling, per
// spec.md §7's escalation rule for sink failures (as opposed to the
// benign, per-entry stat errors this package swallows on its own).
type Result struct {
	ChildDirs []string
	Counters  Counters
	Err       error
}

// Counters accumulates per-walk accounting: file/dir counts, cumulative
// byte size, and a histogram of st_mode buckets. These are local to a
// single peer and exist purely for end-of-run reporting; they never
// influence scheduling correctness.
type Counters struct {
	FilesProcessed int64
	DirsProcessed  int64
	BytesSeen      int64
	ModeHistogram  map[os.FileMode]int64
}

// Add merges o into c in place.
func (c *Counters) Add(o Counters) {
	c.FilesProcessed += o.FilesProcessed
	c.DirsProcessed += o.DirsProcessed
	c.BytesSeen += o.BytesSeen
	if len(o.ModeHistogram) == 0 {
		return
	}
	if c.ModeHistogram == nil {
		c.ModeHistogram = make(map[os.FileMode]int64)
	}
	for mode, n := range o.ModeHistogram {
		c.ModeHistogram[mode] += n
	}
}

// Walk scans the immediate children of path (maxdepth=1 semantics: a
// single level of expansion), accounting the directory itself and handing
// it to sink.AddDir. Child directories are returned in Result.ChildDirs for
// the caller to re-queue, not handed to sink; files are accounted and sunk
// immediately.
//
// Errors opening or reading path are logged once and swallowed: a
// directory the process can't stat or list is just unproductive, not
// fatal. Per-child stat failures are isolated the same way, and the walk
// continues with the remaining entries. A sink rejecting a directory or
// file, by contrast, means the job's output is silently incomplete — Walk
// stops immediately and reports it via Result.Err for the caller to
// escalate.
func Walk(path string, sink Sink) Result {
	var res Result
	res.Counters.DirsProcessed = 1

	if sink != nil {
		if err := sink.AddDir(path); err != nil {
			res.Err = fmt.Errorf("sink rejected directory %q: %w", path, err)
			return res
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		slog.Warn("cannot scan directory", "path", path, "error", err)
		return res
	}

	for _, entry := range entries {
		childPath := filepath.Join(path, entry.Name())

		if entry.IsDir() {
			res.ChildDirs = append(res.ChildDirs, childPath)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			slog.Warn("cannot stat entry", "path", childPath, "error", err)
			continue
		}

		res.Counters.FilesProcessed++
		res.Counters.BytesSeen += info.Size()
		if res.Counters.ModeHistogram == nil {
			res.Counters.ModeHistogram = make(map[os.FileMode]int64)
		}
		res.Counters.ModeHistogram[info.Mode()&os.ModeType]++

		if sink != nil {
			if err := sink.AddFile(childPath, info); err != nil {
				res.Err = fmt.Errorf("sink rejected file %q: %w", childPath, err)
				return res
			}
		}
	}

	return res
}

// Seed performs the maxdepth=0 bootstrap expansion used by rank 0 at
// startup: it places root itself into the initial queue without scanning
// it, deferring the first scan to the scheduler's normal maxdepth=1 Walk
// calls.
func Seed(root string) string {
	return filepath.Clean(root)
}
