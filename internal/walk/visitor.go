// Package walk prints a checksum line for every regular file below a root.
package walk

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Chapsvision-dev/treesum/internal/digest"
)

// Display selects how a file is named in the output.
type Display int

const (
	// DisplayName prints the base name only.
	DisplayName Display = iota
	// DisplayPath prints the path as reached from the root.
	DisplayPath
)

func (d Display) String() string {
	if d == DisplayPath {
		return "path"
	}
	return "name"
}

// ParseDisplay accepts "name" or "path" (case-insensitive).
func ParseDisplay(s string) (Display, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name":
		return DisplayName, nil
	case "path":
		return DisplayPath, nil
	default:
		return DisplayName, fmt.Errorf("unknown display mode %q (want name or path)", s)
	}
}

// Options tunes a traversal.
type Options struct {
	Display Display
	// Exclude lists files that are never hashed, matched by identity rather than name.
	Exclude []string
}

// Line is one output record.
type Line struct {
	Name   string
	Digest string
}

func (l Line) String() string { return l.Name + " - " + l.Digest }

// Stats counts what a traversal saw.
type Stats struct {
	Files   int
	Dirs    int
	Skipped int
}

// Visitor owns the digest.Computer for the duration of a run.
type Visitor struct {
	c    *digest.Computer
	out  io.Writer
	opts Options
}

// New returns a Visitor that writes lines to out.
func New(c *digest.Computer, out io.Writer, opts Options) *Visitor {
	return &Visitor{c: c, out: out, opts: opts}
}

// VisitRoot walks root in lexical pre-order and writes one line per regular file.
// The first error aborts the walk and is returned unchanged:
// *NotFoundError, *SevereError, *digest.FileAccessError or *digest.IOFailure.
func (v *Visitor) VisitRoot(root string) (Stats, error) {
	var st Stats
	start := time.Now()
	excluded := statAll(v.opts.Exclude)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return walkError(path, err)
		}

		switch {
		case d.IsDir():
			st.Dirs++
			return nil
		case !d.Type().IsRegular():
			st.Skipped++
			log.Debug().Str("action", "visit").Str("path", path).
				Str("type", d.Type().String()).Msg("skipping non-regular entry")
			return nil
		case isExcluded(d, excluded):
			st.Skipped++
			log.Debug().Str("action", "visit").Str("path", path).Msg("skipping excluded file")
			return nil
		}

		sum, err := v.c.ComputeFile(path)
		if err != nil {
			return err
		}
		line := Line{Name: v.displayName(path, d), Digest: sum}
		if _, err := io.WriteString(v.out, line.String()+"\n"); err != nil {
			return &SevereError{Path: path, Err: fmt.Errorf("write output: %w", err)}
		}
		st.Files++
		return nil
	})
	if err != nil {
		return st, err
	}

	log.Debug().
		Str("action", "walk").
		Str("root", root).
		Str("algorithm", v.c.Name()).
		Int("files", st.Files).
		Int("dirs", st.Dirs).
		Int("skipped", st.Skipped).
		Dur("elapsed_ms", time.Since(start)).
		Msg("walk OK")
	return st, nil
}

func (v *Visitor) displayName(path string, d fs.DirEntry) string {
	if v.opts.Display == DisplayPath {
		return path
	}
	return d.Name()
}

func walkError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return &NotFoundError{Path: path, Err: err}
	}
	return &SevereError{Path: path, Err: err}
}

func statAll(paths []string) []fs.FileInfo {
	var out []fs.FileInfo
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil {
			out = append(out, fi)
		}
	}
	return out
}

func isExcluded(d fs.DirEntry, excluded []fs.FileInfo) bool {
	if len(excluded) == 0 {
		return false
	}
	fi, err := d.Info()
	if err != nil {
		return false
	}
	for _, x := range excluded {
		if os.SameFile(fi, x) {
			return true
		}
	}
	return false
}
