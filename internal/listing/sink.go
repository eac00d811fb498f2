// Package listing routes checksum lines to stdout and, when a copy of the
// listing has to outlive the process, to a spool file that is only moved
// into place after the whole run succeeded.
package listing

import (
	"errors"
	"io"
	"os"

	"github.com/hacdias/fileutils"
	"github.com/rs/zerolog/log"
)

// Sink is the io.Writer the listing is written to.
type Sink struct {
	w         io.Writer
	spool     *os.File
	path      string
	committed bool
}

// NewSink writes to out and, if spool is true, to a temporary file as well.
func NewSink(out io.Writer, spool bool) (*Sink, error) {
	s := &Sink{w: out}
	if !spool {
		return s, nil
	}
	f, err := os.CreateTemp("", "treesum-*.sum")
	if err != nil {
		return nil, err
	}
	s.spool, s.path = f, f.Name()
	s.w = io.MultiWriter(out, f)
	return s, nil
}

func (s *Sink) Write(p []byte) (int, error) { return s.w.Write(p) }

// SpoolPath is empty when no spool file was requested.
func (s *Sink) SpoolPath() string { return s.path }

// Close flushes the spool file to disk. It is safe to call more than once.
func (s *Sink) Close() error {
	if s.spool == nil {
		return nil
	}
	f := s.spool
	s.spool = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Commit moves the spool file to dst. Afterwards SpoolPath returns dst.
func (s *Sink) Commit(dst string) error {
	if s.path == "" {
		return errors.New("listing: no spool file to commit")
	}
	if err := s.Close(); err != nil {
		return err
	}
	if err := moveFile(s.path, dst); err != nil {
		return err
	}
	s.path = dst
	s.committed = true
	return nil
}

// Discard closes and removes an uncommitted spool file. A committed file is left alone.
func (s *Sink) Discard() {
	_ = s.Close()
	if !s.committed && s.path != "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("file", s.path).Msg("failed to remove spool file")
		}
		s.path = ""
	}
}

// moveFile renames src to dst and falls back to copy+remove across devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := fileutils.CopyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}
