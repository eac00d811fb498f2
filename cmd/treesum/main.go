package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Chapsvision-dev/treesum/internal/config"
	"github.com/Chapsvision-dev/treesum/internal/digest"
	"github.com/Chapsvision-dev/treesum/internal/logx"
	"github.com/Chapsvision-dev/treesum/internal/provider"
	"github.com/Chapsvision-dev/treesum/internal/run"
	"github.com/Chapsvision-dev/treesum/internal/version"
	"github.com/Chapsvision-dev/treesum/internal/walk"

	_ "github.com/Chapsvision-dev/treesum/internal/provider/azure"
)

// Test seams, overridden in unit tests. Keep signatures in sync with packages.
var (
	parseConfig func([]string) (config.RunConfig, error)                                = config.Parse
	execute     func(context.Context, config.RunConfig, io.Writer) (run.Result, error) = run.Execute
	exit        func(int)                                                              = os.Exit
)

// Exit codes.
const (
	exitOK     = 0
	exitError  = 1 // bad parameters, unknown algorithm, missing path, publication
	exitSevere = 2 // unexpected I/O failure
)

const usage = `
Usage:
  treesum -a=<algorithm> -f=<root folder> [-d=name|path] [-o=<output file>]
  treesum algorithms
  treesum version | --version | -v
  treesum help    | --help    | -h

Notes:
  - Parameters are key=value and may appear in any order; quotes in the folder are removed.
  - Env fallbacks: TREESUM_ALGORITHM, TREESUM_ROOT, TREESUM_DISPLAY, TREESUM_OUTPUT.
  - Publish the listing with TREESUM_PUBLISH_PROVIDER=azure (plus AZURE_STORAGE_* vars),
    under TREESUM_PUBLISH_PREFIX (default treesum).
  - Logs go to stderr: LOG_LEVEL (default warn), LOG_FORMAT (console|json).
`

// main wires CLI -> config -> checksum run, and is the only place that exits.
func main() {
	_ = godotenv.Load() // best-effort
	logx.InitFromEnv(os.Stderr)

	exit(runCLI(context.Background(), os.Args[1:], os.Stdout))
}

// runCLI returns the process exit code. Checksum lines go to out, nothing else does
// unless a help-style command was requested.
func runCLI(ctx context.Context, args []string, out io.Writer) int {
	if len(args) == 1 {
		switch strings.ToLower(args[0]) {
		case "version", "--version", "-v":
			fmt.Fprintf(out, "treesum %s\n", version.Info())
			return exitOK
		case "help", "--help", "-h":
			fmt.Fprint(out, usage)
			return exitOK
		case "algorithms":
			for _, name := range digest.Algorithms() {
				fmt.Fprintln(out, name)
			}
			return exitOK
		}
	}

	cfg, err := parseConfig(args)
	if err != nil {
		log.Error().Err(err).Msg("config error")
		var ue *config.UsageError
		if errors.As(err, &ue) {
			fmt.Fprint(os.Stderr, usage)
		}
		return exitError
	}

	_, err = execute(ctx, cfg, out)
	return report(err, cfg)
}

// report logs err once and maps it to an exit code.
func report(err error, cfg config.RunConfig) int {
	if err == nil {
		return exitOK
	}

	var ua *digest.UnsupportedAlgorithmError
	var pe *run.PublishError
	switch {
	case errors.As(err, &ua):
		log.Error().Str("algorithm", ua.Name).
			Msgf("hashing algorithm %q unknown, supported: %s", ua.Name, strings.Join(digest.Algorithms(), ", "))
		return exitError
	case errors.As(err, &pe):
		log.Error().Err(pe.Err).Str("action", "publish").Str("provider", pe.Provider).
			Str("remote", pe.Key).Strs("available", provider.Names()).Msg("publish failed")
		return exitError
	}

	switch walk.Classify(err) {
	case walk.ClassNotFound:
		log.Error().Err(err).Str("root", cfg.RootPath).Msg("could not locate specified file or folder")
		return exitError
	default:
		log.Error().Err(err).Str("root", cfg.RootPath).Msg("severe error occurred - terminating")
		return exitSevere
	}
}
