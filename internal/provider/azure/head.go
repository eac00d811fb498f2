package azure

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// metaChecksum is the blob metadata key carrying the listing's SHA-256.
const metaChecksum = "sha256"

// headSizeAndSHA does a direct HEAD (SAS) to read Content-Length and x-ms-meta-sha256.
func (p *Publisher) headSizeAndSHA(ctx context.Context, key string) (int64, string, error) {
	url := p.endpoint + p.container + "/" + normalizeKey(key) + "?" + p.sas

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		return 0, "", err
	}
	cli := &http.Client{Timeout: 15 * time.Second}
	resp, err := cli.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, "", &statusError{Op: "HEAD " + p.container + "/" + normalizeKey(key), StatusCode: resp.StatusCode}
	}

	cl := resp.Header.Get("Content-Length")
	if cl == "" {
		return 0, "", fmt.Errorf("missing Content-Length")
	}
	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("parse Content-Length: %w", err)
	}
	return n, resp.Header.Get("x-ms-meta-" + metaChecksum), nil
}

// statusError keeps the SAS out of error messages.
type statusError struct {
	Op         string
	StatusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}
