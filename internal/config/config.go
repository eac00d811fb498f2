package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Chapsvision-dev/treesum/internal/retry"
	"github.com/Chapsvision-dev/treesum/internal/walk"
)

// Parameter keys accepted on the command line.
const (
	KeyAlgorithm = "-a"
	KeyRoot      = "-f"
	KeyDisplay   = "-d"
	KeyOutput    = "-o"
)

// Scheme is shown whenever the required parameters are missing.
const Scheme = "treesum -a=algorithm -f=root_folder [-d=name|path] [-o=output_file]"

// RunConfig is built once per process and passed down explicitly.
type RunConfig struct {
	Algorithm string
	RootPath  string
	Display   walk.Display
	// Output, when set, receives a copy of the listing once the run succeeds.
	Output string

	Publish PublishConfig
	Azure   AzureConfig

	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	RetryMultiplier   float64
	RetryEnableJitter bool
}

// PublishConfig controls the optional upload of the finished listing.
type PublishConfig struct {
	Provider        string // "" disables publication
	Prefix          string
	TimestampFormat string
}

// Enabled reports whether a publish provider is configured.
func (p PublishConfig) Enabled() bool { return p.Provider != "" }

// AzureConfig holds the storage account, container and credentials used for publication.
type AzureConfig struct {
	Account   string
	Container string
	SASToken  string

	ClientID     string
	ClientSecret string
	TenantID     string
}

// UsageError reports malformed or missing command-line parameters.
type UsageError struct {
	Msg   string
	Token string // offending token, if any
}

func (e *UsageError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s: %q", e.Msg, e.Token)
	}
	return e.Msg
}

// ParseParams splits key=value tokens on the first '='. Later keys win.
func ParseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, tok := range args {
		key, value, ok := strings.Cut(tok, "=")
		if !ok || key == "" || value == "" {
			return nil, &UsageError{Msg: "one or more parameters has not been specified correctly", Token: tok}
		}
		params[key] = value
	}
	return params, nil
}

// Parse builds a RunConfig from command-line tokens, falling back to the
// environment for everything not given as a parameter.
func Parse(args []string) (RunConfig, error) {
	params, err := ParseParams(args)
	if err != nil {
		return RunConfig{}, err
	}

	var unknown []string
	for k := range params {
		switch k {
		case KeyAlgorithm, KeyRoot, KeyDisplay, KeyOutput:
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		log.Warn().Strs("keys", unknown).Msg("ignoring unknown parameters")
	}

	pick := func(key, env string) string {
		if v, ok := params[key]; ok {
			return v
		}
		return strings.TrimSpace(get(env, ""))
	}

	algorithm := pick(KeyAlgorithm, "TREESUM_ALGORITHM")
	root := strings.ReplaceAll(pick(KeyRoot, "TREESUM_ROOT"), `"`, "")
	if algorithm == "" || root == "" {
		return RunConfig{}, &UsageError{Msg: "parameters must be specified using the following scheme: '" + Scheme + "'"}
	}

	display, err := walk.ParseDisplay(pick(KeyDisplay, "TREESUM_DISPLAY"))
	if err != nil {
		return RunConfig{}, &UsageError{Msg: err.Error()}
	}

	cfg := RunConfig{
		Algorithm: algorithm,
		RootPath:  root,
		Display:   display,
		Output:    strings.ReplaceAll(pick(KeyOutput, "TREESUM_OUTPUT"), `"`, ""),

		Publish: PublishConfig{
			Provider:        strings.ToLower(strings.TrimSpace(get("TREESUM_PUBLISH_PROVIDER", ""))),
			Prefix:          get("TREESUM_PUBLISH_PREFIX", ""),
			TimestampFormat: get("TREESUM_PUBLISH_TIMESTAMP_FORMAT", ""),
		},

		Azure: AzureConfig{
			Account:      get("AZURE_STORAGE_ACCOUNT", ""),
			Container:    get("AZURE_STORAGE_CONTAINER", ""),
			SASToken:     get("AZURE_STORAGE_SAS", ""),
			ClientID:     get("AZURE_CLIENT_ID", ""),
			ClientSecret: get("AZURE_CLIENT_SECRET", ""),
			TenantID:     get("AZURE_TENANT_ID", ""),
		},

		RetryMaxAttempts:  parseInt("RETRY_MAX_ATTEMPTS", retry.Default.MaxAttempts),
		RetryInitialDelay: parseDur("RETRY_INITIAL_DELAY", retry.Default.InitialDelay),
		RetryMaxDelay:     parseDur("RETRY_MAX_DELAY", retry.Default.MaxDelay),
		RetryMultiplier:   parseFloat("RETRY_MULTIPLIER", retry.Default.Multiplier),
		RetryEnableJitter: parseBool("RETRY_JITTER", retry.Default.Jitter),
	}

	if err := cfg.validate(); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}

// validate checks publish-provider requirements.
func (c *RunConfig) validate() error {
	switch c.Publish.Provider {
	case "":
	case "azure":
		if c.Azure.Account == "" || c.Azure.Container == "" {
			return errors.New("azure: AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_CONTAINER are required")
		}
	default:
		return errors.New("unsupported publish provider: " + c.Publish.Provider)
	}
	return nil
}

// RetryOptions converts retry-related config values to retry.Options.
func (c RunConfig) RetryOptions() retry.Options {
	return retry.Options{
		MaxAttempts:  c.RetryMaxAttempts,
		InitialDelay: c.RetryInitialDelay,
		MaxDelay:     c.RetryMaxDelay,
		Multiplier:   c.RetryMultiplier,
		Jitter:       c.RetryEnableJitter,
	}
}

func get(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func parseDur(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
