package azure

import (
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/Chapsvision-dev/treesum/internal/config"
	"github.com/Chapsvision-dev/treesum/internal/provider"
)

// endpointFor honours AZURE_BLOB_ENDPOINT (e.g. Azurite) before the public cloud URL.
func endpointFor(account string) string {
	endpoint := strings.TrimSpace(os.Getenv("AZURE_BLOB_ENDPOINT"))
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return endpoint
}

// Build client from config and capture endpoint/SAS for HEAD validation.
// Priority: 1) SAS  2) Service Principal  3) DefaultAzureCredential.
func newClientFromConfig(c config.AzureConfig) (*azblob.Client, string, string, bool, error) {
	endpoint := endpointFor(c.Account)

	// 1) SAS
	if sasRaw := strings.TrimSpace(c.SASToken); sasRaw != "" {
		sas := strings.TrimPrefix(sasRaw, "?")
		cl, err := azblob.NewClientWithNoCredential(endpoint+"?"+sas, nil)
		return cl, endpoint, sas, true, err
	}

	// 2) Service Principal
	if c.ClientID != "" && c.ClientSecret != "" && c.TenantID != "" {
		cred, err := azidentity.NewClientSecretCredential(c.TenantID, c.ClientID, c.ClientSecret, nil)
		if err != nil {
			return nil, "", "", false, err
		}
		cl, err := azblob.NewClient(endpoint, cred, nil)
		return cl, endpoint, "", false, err
	}

	// 3) Managed Identity / DefaultAzureCredential
	defCred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, "", "", false, err
	}
	cl, err := azblob.NewClient(endpoint, defCred, nil)
	return cl, endpoint, "", false, err
}

func init() {
	provider.Register("azure", func(cfg any) (provider.Provider, error) {
		c, ok := cfg.(config.RunConfig)
		if !ok {
			return nil, fmt.Errorf("azure: invalid config type %T", cfg)
		}
		client, endpoint, sas, viaSAS, err := newClientFromConfig(c.Azure)
		if err != nil {
			return nil, fmt.Errorf("azure: %w", err)
		}
		return &Publisher{
			client:     client,
			container:  c.Azure.Container,
			endpoint:   endpoint,
			sas:        sas,
			authViaSAS: viaSAS,
			ro:         c.RetryOptions(),
		}, nil
	})
}
