// Package archive implements the reference sink named by the
// specification: a rotating archival container per peer. Each container is
// a PAX-format tar file; once its cumulative size exceeds the configured
// cap, it is closed and a new one is opened, named deterministically by
// (rank, counter). Traversed directories are recorded (non-recursively) the
// same way so directory metadata (mode, ownership, times) is preserved.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// RotatingArchiver is the walker/scheduler's Sink: it tars every file and
// directory handed to it, rotating to a fresh container once the current
// one exceeds sizeCap bytes.
//
// Not safe for concurrent use; it is owned by exactly one peer's
// cooperative loop.
type RotatingArchiver struct {
	dir     string
	rank    int
	sizeCap int64

	counter  int
	tw       *tar.Writer
	f        *os.File
	curSize  int64
	disabled bool
}

// New creates a RotatingArchiver that writes containers named
// "output-r{rank:03d}-f{counter}.tar" under dir. If dir is empty, the
// archiver discards everything (counters-only mode).
func New(dir string, rank int, sizeCap int64) *RotatingArchiver {
	return &RotatingArchiver{
		dir:      dir,
		rank:     rank,
		sizeCap:  sizeCap,
		disabled: dir == "",
	}
}

// AddFile writes path's contents into the current container, rotating
// first if the current container has already exceeded the cap.
func (a *RotatingArchiver) AddFile(path string, info os.FileInfo) error {
	if a.disabled {
		return nil
	}
	if err := a.rotateIfNeeded(); err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("archive: header for %q: %w", path, err)
	}
	hdr.Name = path
	hdr.Format = tar.FormatPAX

	if err := a.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("archive: write header for %q: %w", path, err)
	}

	if info.Mode().IsRegular() {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("archive: open %q: %w", path, err)
		}
		defer f.Close()
		if _, err := io.Copy(a.tw, f); err != nil {
			return fmt.Errorf("archive: write %q: %w", path, err)
		}
	}

	a.curSize += info.Size()
	return nil
}

// AddDir records a traversed directory (non-recursively) so its
// permissions, ownership and times survive the archive. ACLs and other
// extended attributes are not recorded.
func (a *RotatingArchiver) AddDir(path string) error {
	if a.disabled {
		return nil
	}
	if err := a.rotateIfNeeded(); err != nil {
		return err
	}

	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("archive: lstat %q: %w", path, err)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("archive: header for %q: %w", path, err)
	}
	hdr.Name = path + "/"
	hdr.Format = tar.FormatPAX

	if err := a.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("archive: write dir header for %q: %w", path, err)
	}
	return nil
}

// Close flushes and closes the current container, if any.
func (a *RotatingArchiver) Close() error {
	if a.disabled || a.tw == nil {
		return nil
	}
	if err := a.tw.Close(); err != nil {
		a.f.Close()
		return fmt.Errorf("archive: close tar writer: %w", err)
	}
	return a.f.Close()
}

func (a *RotatingArchiver) rotateIfNeeded() error {
	if a.tw != nil && a.curSize <= a.sizeCap {
		return nil
	}
	if a.tw != nil {
		if err := a.Close(); err != nil {
			return err
		}
		a.counter++
	}
	return a.openContainer()
}

func (a *RotatingArchiver) openContainer() error {
	name := fmt.Sprintf("output-r%03d-f%d.tar", a.rank, a.counter)
	f, err := os.Create(filepath.Join(a.dir, name))
	if err != nil {
		return fmt.Errorf("archive: create container %q: %w", name, err)
	}
	a.f = f
	a.tw = tar.NewWriter(f)
	a.curSize = 0
	return nil
}
