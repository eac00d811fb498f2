package azure

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chapsvision-dev/treesum/internal/config"
	"github.com/Chapsvision-dev/treesum/internal/provider"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "catalog/x.sum", normalizeKey("/catalog/x.sum"))
	assert.Equal(t, "catalog/x.sum", normalizeKey("catalog/x.sum"))
}

func TestIsAzRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"plain", errors.New("nope"), false},
		{"timeout", timeoutErr{}, true},
		{"503", &azcore.ResponseError{StatusCode: http.StatusServiceUnavailable}, true},
		{"429", &azcore.ResponseError{StatusCode: http.StatusTooManyRequests}, true},
		{"404", &azcore.ResponseError{StatusCode: http.StatusNotFound}, false},
		{"busy", &azcore.ResponseError{StatusCode: http.StatusOK, ErrorCode: string(bloberror.ServerBusy)}, true},
		{"head 500", &statusError{Op: "HEAD", StatusCode: 500}, true},
		{"head 403", &statusError{Op: "HEAD", StatusCode: 403}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isAzRetryable(tc.err), tc.name)
	}
}

func TestContainerError(t *testing.T) {
	err := containerError("sums", &azcore.ResponseError{ErrorCode: string(bloberror.ContainerNotFound)})
	assert.ErrorContains(t, err, `container "sums" not found`)

	err = containerError("sums", &azcore.ResponseError{ErrorCode: string(bloberror.AuthorizationFailure)})
	assert.ErrorContains(t, err, "not authorized")

	assert.NoError(t, containerError("sums", &azcore.ResponseError{ErrorCode: "Other"}))
	assert.NoError(t, containerError("sums", errors.New("dial tcp")))
}

func TestCompareRemote(t *testing.T) {
	assert.NoError(t, compareRemote(10, 10, "abcd", "ABCD"))
	assert.ErrorContains(t, compareRemote(10, 11, "abcd", "abcd"), "size mismatch")
	assert.ErrorContains(t, compareRemote(10, 10, "abcd", ""), "missing metadata")
	assert.ErrorContains(t, compareRemote(10, 10, "abcd", "ef01"), "sha256 mismatch")
}

func TestHeadSizeAndSHA(t *testing.T) {
	var gotPath, gotQuery, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotQuery = r.Method, r.URL.Path, r.URL.RawQuery
		if r.URL.Path == "/sums/missing.sum" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", "42")
		w.Header().Set("x-ms-meta-sha256", "deadbeef")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	p := &Publisher{endpoint: srv.URL + "/", container: "sums", sas: "sv=1&sig=secret"}

	size, sha, err := p.headSizeAndSHA(context.Background(), "/catalog/run.sum")

	require.NoError(t, err)
	assert.Equal(t, int64(42), size)
	assert.Equal(t, "deadbeef", sha)
	assert.Equal(t, http.MethodHead, gotMethod)
	assert.Equal(t, "/sums/catalog/run.sum", gotPath)
	assert.Equal(t, "sv=1&sig=secret", gotQuery)

	_, _, err = p.headSizeAndSHA(context.Background(), "missing.sum")
	var se *statusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.NotContains(t, err.Error(), "secret")
	assert.False(t, isAzRetryable(err))
}

func TestFactory(t *testing.T) {
	t.Setenv("AZURE_BLOB_ENDPOINT", "http://127.0.0.1:10000/devstoreaccount1")
	cfg := config.RunConfig{Azure: config.AzureConfig{Account: "devstoreaccount1", Container: "sums", SASToken: "?sv=1&sig=abc"}}

	p, err := provider.New("azure", cfg)

	require.NoError(t, err)
	assert.Equal(t, "azure", p.Name())
	pub, ok := p.(*Publisher)
	require.True(t, ok)
	assert.True(t, pub.authViaSAS)
	assert.Equal(t, "sv=1&sig=abc", pub.sas)
	assert.Equal(t, "http://127.0.0.1:10000/devstoreaccount1/", pub.endpoint)
	assert.Equal(t, "sums", pub.container)

	_, err = provider.New("azure", "not a config")
	assert.ErrorContains(t, err, "invalid config type")
}

func TestEndpointFor_default(t *testing.T) {
	t.Setenv("AZURE_BLOB_ENDPOINT", "")

	assert.Equal(t, "https://acct.blob.core.windows.net/", endpointFor("acct"))
}
