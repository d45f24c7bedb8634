package walk

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

type fakeSink struct {
	files []string
	dirs  []string
}

func (f *fakeSink) AddFile(path string, info os.FileInfo) error {
	f.files = append(f.files, path)
	return nil
}

func (f *fakeSink) AddDir(path string) error {
	f.dirs = append(f.dirs, path)
	return nil
}

// failingSink rejects every AddFile past failAfterFile, and AddDir when
// failDir is set, simulating a full disk or a permission-denied archive
// directory.
type failingSink struct {
	failDir       bool
	failAfterFile int
	files         int
}

var errSinkRejected = errors.New("sink: rejected")

func (f *failingSink) AddFile(path string, info os.FileInfo) error {
	f.files++
	if f.files > f.failAfterFile {
		return errSinkRejected
	}
	return nil
}

func (f *failingSink) AddDir(path string) error {
	if f.failDir {
		return errSinkRejected
	}
	return nil
}

func setupTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f1.txt"), []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "f2.txt"), []byte("worldly"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "sub1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "sub2"), 0o755); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestWalkSingleLevel(t *testing.T) {
	root := setupTree(t)
	sink := &fakeSink{}

	res := Walk(root, sink)

	if res.Counters.DirsProcessed != 1 {
		t.Fatalf("expected 1 dir processed, got %d", res.Counters.DirsProcessed)
	}
	if res.Counters.FilesProcessed != 2 {
		t.Fatalf("expected 2 files processed, got %d", res.Counters.FilesProcessed)
	}
	if res.Counters.BytesSeen != int64(len("hello")+len("worldly")) {
		t.Fatalf("unexpected byte count: %d", res.Counters.BytesSeen)
	}

	sort.Strings(res.ChildDirs)
	want := []string{filepath.Join(root, "sub1"), filepath.Join(root, "sub2")}
	if len(res.ChildDirs) != 2 || res.ChildDirs[0] != want[0] || res.ChildDirs[1] != want[1] {
		t.Fatalf("unexpected child dirs: %v", res.ChildDirs)
	}
	if len(sink.files) != 2 {
		t.Fatalf("expected 2 files sunk, got %d", len(sink.files))
	}
}

func TestWalkMissingDirectory(t *testing.T) {
	sink := &fakeSink{}
	res := Walk(filepath.Join(t.TempDir(), "does-not-exist"), sink)

	// The directory itself still counts (it was "visited"), but there are
	// no children because the scan failed; the walker must not panic or
	// propagate an error.
	if res.Counters.DirsProcessed != 1 {
		t.Fatalf("expected 1 dir processed even on scan failure, got %d", res.Counters.DirsProcessed)
	}
	if len(res.ChildDirs) != 0 || res.Counters.FilesProcessed != 0 {
		t.Fatalf("expected no children on scan failure, got %+v", res)
	}
}

func TestWalkAbortsOnSinkDirRejection(t *testing.T) {
	root := setupTree(t)
	sink := &failingSink{failDir: true}

	res := Walk(root, sink)

	if res.Err == nil {
		t.Fatal("expected a fatal error when the sink rejects the directory")
	}
	if !errors.Is(res.Err, errSinkRejected) {
		t.Fatalf("expected the error to wrap errSinkRejected, got %v", res.Err)
	}
	if len(res.ChildDirs) != 0 || res.Counters.FilesProcessed != 0 {
		t.Fatalf("expected no children queued or files counted past a sink rejection, got %+v", res)
	}
}

func TestWalkAbortsOnSinkFileRejection(t *testing.T) {
	root := setupTree(t)
	sink := &failingSink{failAfterFile: 0}

	res := Walk(root, sink)

	if res.Err == nil {
		t.Fatal("expected a fatal error when the sink rejects a file")
	}
	if !errors.Is(res.Err, errSinkRejected) {
		t.Fatalf("expected the error to wrap errSinkRejected, got %v", res.Err)
	}
}

func TestCountersAdd(t *testing.T) {
	var c Counters
	c.Add(Counters{FilesProcessed: 2, DirsProcessed: 1, BytesSeen: 10})
	c.Add(Counters{FilesProcessed: 3, DirsProcessed: 1, BytesSeen: 5})

	if c.FilesProcessed != 5 || c.DirsProcessed != 2 || c.BytesSeen != 15 {
		t.Fatalf("unexpected merged counters: %+v", c)
	}
}

func TestSeedCleansPath(t *testing.T) {
	if got := Seed("./foo/../bar/"); got != "bar" {
		t.Fatalf("expected cleaned path 'bar', got %q", got)
	}
}
