// Package run wires configuration, hashing, traversal, listing sinks and
// publication into one checksum run. It never exits the process.
package run

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Chapsvision-dev/treesum/internal/config"
	"github.com/Chapsvision-dev/treesum/internal/digest"
	"github.com/Chapsvision-dev/treesum/internal/listing"
	"github.com/Chapsvision-dev/treesum/internal/provider"
	"github.com/Chapsvision-dev/treesum/internal/walk"
)

const (
	defaultPrefix          = "treesum"
	defaultTimestampFormat = "2006-01-02T15-04-05Z"
)

// Test seams.
var (
	newProvider = provider.New
	now         = time.Now
)

// Result describes a successful run.
type Result struct {
	Stats walk.Stats
	// Output is the committed listing file, if one was requested.
	Output string
	// RemoteKey is where the listing was published, if publication is enabled.
	RemoteKey string
}

// PublishError reports a failure to set up or complete listing publication.
type PublishError struct {
	Provider string
	Key      string
	Err      error
}

func (e *PublishError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("publish (%s): %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("publish (%s) %s: %v", e.Provider, e.Key, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Execute hashes every regular file below cfg.RootPath and writes the listing to out.
// The optional output file and publication only happen when the walk completed.
func Execute(ctx context.Context, cfg config.RunConfig, out io.Writer) (Result, error) {
	var res Result

	c, err := digest.New(cfg.Algorithm)
	if err != nil {
		return res, err
	}

	var pub provider.Provider
	if cfg.Publish.Enabled() {
		pub, err = newProvider(cfg.Publish.Provider, cfg)
		if err != nil {
			return res, &PublishError{Provider: cfg.Publish.Provider, Err: err}
		}
	}

	sink, err := listing.NewSink(out, cfg.Output != "" || pub != nil)
	if err != nil {
		return res, fmt.Errorf("create spool file: %w", err)
	}
	defer sink.Discard()

	start := time.Now()
	opts := walk.Options{Display: cfg.Display}
	if spool := sink.SpoolPath(); spool != "" {
		// TMPDIR may sit below the root.
		opts.Exclude = []string{spool}
	}
	v := walk.New(c, sink, opts)
	st, err := v.VisitRoot(cfg.RootPath)
	res.Stats = st
	if err != nil {
		return res, err
	}
	if err := sink.Close(); err != nil {
		return res, fmt.Errorf("flush spool file: %w", err)
	}
	log.Info().
		Str("action", "walk").
		Str("root", cfg.RootPath).
		Str("algorithm", c.Name()).
		Int("files", st.Files).
		Dur("elapsed_ms", time.Since(start)).
		Msg("checksum listing OK")

	if cfg.Output != "" {
		if err := sink.Commit(cfg.Output); err != nil {
			return res, fmt.Errorf("write output file %s: %w", cfg.Output, err)
		}
		res.Output = cfg.Output
	}

	if pub != nil {
		key := RemoteKey(cfg.Publish, c.Name(), now())
		upStart := time.Now()
		if err := pub.Publish(ctx, sink.SpoolPath(), key); err != nil {
			return res, &PublishError{Provider: pub.Name(), Key: key, Err: err}
		}
		res.RemoteKey = key
		log.Info().
			Str("action", "publish").
			Str("provider", pub.Name()).
			Str("remote", key).
			Dur("elapsed_ms", time.Since(upStart)).
			Msg("listing published")
	}
	return res, nil
}

// RemoteKey builds "<prefix>/<timestamp>-<algorithm>.sum".
func RemoteKey(pc config.PublishConfig, algorithm string, ts time.Time) string {
	prefix := strings.Trim(strings.TrimSpace(pc.Prefix), "/")
	if prefix == "" {
		prefix = defaultPrefix
	}
	layout := strings.TrimSpace(pc.TimestampFormat)
	if layout == "" {
		layout = defaultTimestampFormat
	}
	algo := strings.ToLower(strings.ReplaceAll(algorithm, "/", "-"))
	return path.Join(prefix, fmt.Sprintf("%s-%s.sum", ts.UTC().Format(layout), algo))
}
