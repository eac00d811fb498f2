package azure

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/Chapsvision-dev/treesum/internal/digest"
	"github.com/Chapsvision-dev/treesum/internal/retry"
)

// Publisher uploads listings to an Azure Blob Storage container.
type Publisher struct {
	client     *azblob.Client
	container  string
	endpoint   string // e.g. https://<account>.blob.core.windows.net/
	sas        string // raw SAS without leading "?"
	authViaSAS bool
	ro         retry.Options
}

func (p *Publisher) Name() string { return "azure" }

// Publish uploads the listing and validates it (HEAD with SAS, list otherwise).
func (p *Publisher) Publish(ctx context.Context, source, target string) error {
	if err := p.ensureContainer(ctx); err != nil {
		return fmt.Errorf("ensure container: %w", err)
	}
	key := normalizeKey(target)

	sum, size, err := digest.FileSum("SHA-256", source)
	if err != nil {
		return fmt.Errorf("checksum: %w", err)
	}

	upStart := time.Now()
	var upAttempts int
	uploadOnce := func(ctx context.Context, attempt int) error {
		upAttempts = attempt
		log.Debug().Str("action", "azure_upload").Str("container", p.container).Str("key", key).
			Int("attempt", attempt).Msg("starting attempt")

		f, err := os.Open(source)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				log.Warn().Err(cerr).Str("file", source).Msg("failed to close listing after upload")
			}
		}()
		_, err = p.client.UploadFile(ctx, p.container, key, f, &azblob.UploadFileOptions{
			Metadata: map[string]*string{metaChecksum: to.Ptr(sum)},
		})
		if err != nil {
			log.Debug().Err(err).Str("action", "azure_upload").Str("container", p.container).Str("key", key).
				Int("attempt", attempt).Msg("attempt failed")
			return err
		}
		return nil
	}
	if err := retry.Do(ctx, p.ro, isAzRetryable, uploadOnce); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	log.Info().Str("action", "azure_upload").Str("container", p.container).Str("key", key).
		Int("attempts", upAttempts).Dur("elapsed_ms", time.Since(upStart)).Msg("upload OK")

	if p.authViaSAS {
		return p.validateByHead(ctx, key, size, sum)
	}
	return p.validateByList(ctx, key, size)
}

// validateByHead compares size and sha256 metadata of the uploaded blob.
func (p *Publisher) validateByHead(ctx context.Context, key string, size int64, sum string) error {
	start := time.Now()
	var attempts int
	headOnce := func(ctx context.Context, attempt int) error {
		attempts = attempt
		remoteSize, remoteSHA, err := p.headSizeAndSHA(ctx, key)
		if err != nil {
			log.Debug().Err(err).Str("action", "azure_head").Str("key", key).
				Int("attempt", attempt).Msg("attempt failed")
			return err
		}
		return compareRemote(size, remoteSize, sum, remoteSHA)
	}
	if err := retry.Do(ctx, p.ro, isAzRetryable, headOnce); err != nil {
		return fmt.Errorf("validate (head): %w", err)
	}
	log.Info().Str("action", "azure_head").Str("container", p.container).Str("key", key).
		Int("attempts", attempts).Dur("elapsed_ms", time.Since(start)).
		Msg("validation OK (sha256 & size)")
	return nil
}

// validateByList is used without SAS, where only the size can be read back.
func (p *Publisher) validateByList(ctx context.Context, key string, size int64) error {
	start := time.Now()
	var attempts int
	listOnce := func(ctx context.Context, attempt int) error {
		attempts = attempt
		found, remoteSize, err := p.validateSizeByList(ctx, key)
		if err != nil {
			log.Debug().Err(err).Str("action", "azure_list_validate").Str("key", key).
				Int("attempt", attempt).Msg("attempt failed")
			return err
		}
		if !found {
			return fmt.Errorf("uploaded blob not found at %q", key)
		}
		if remoteSize != size {
			return fmt.Errorf("size mismatch: local=%d, remote=%d", size, remoteSize)
		}
		return nil
	}
	if err := retry.Do(ctx, p.ro, isAzRetryable, listOnce); err != nil {
		return fmt.Errorf("validate (list): %w", err)
	}
	log.Info().Str("action", "azure_list_validate").Str("container", p.container).Str("key", key).
		Int("attempts", attempts).Dur("elapsed_ms", time.Since(start)).Msg("validation OK (size)")
	return nil
}

func compareRemote(size, remoteSize int64, sum, remoteSHA string) error {
	if remoteSize != size {
		return fmt.Errorf("size mismatch: local=%d, remote=%d", size, remoteSize)
	}
	if remoteSHA == "" {
		return fmt.Errorf("missing metadata: %s", metaChecksum)
	}
	if !strings.EqualFold(remoteSHA, sum) {
		return fmt.Errorf("sha256 mismatch: local=%s, remote=%s", sum, remoteSHA)
	}
	return nil
}

func normalizeKey(k string) string {
	return strings.TrimPrefix(k, "/")
}
