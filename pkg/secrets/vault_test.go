package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVaultServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/eventfinder", r.URL.Path)
		assert.Equal(t, "root", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestApplyVaultSecrets_Disabled(t *testing.T) {
	result, err := ApplyVaultSecrets(context.Background(), VaultConfig{})
	require.NoError(t, err)
	assert.False(t, result.Enabled)
}

func TestApplyVaultSecrets_Incomplete(t *testing.T) {
	_, err := ApplyVaultSecrets(context.Background(), VaultConfig{Enabled: true})
	assert.Error(t, err)
}

func TestApplyVaultSecrets_KV2(t *testing.T) {
	server := newVaultServer(t, `{"data":{"data":{"TICKETMASTER_API_KEY":"from-vault","EVENTBRITE_API_KEY":"eb","UNRELATED":"x"}}}`)

	t.Setenv("TICKETMASTER_API_KEY", "")
	t.Setenv("EVENTBRITE_API_KEY", "already-set")
	os.Unsetenv("TICKETMASTER_API_KEY")

	result, err := ApplyVaultSecrets(context.Background(), VaultConfig{
		Enabled:     true,
		Addr:        server.URL,
		Token:       "root",
		Mount:       "secret",
		Path:        "eventfinder",
		KVVersion:   2,
		Timeout:     time.Second,
		AllowedKeys: ProviderCredentialKeys,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Loaded)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, "from-vault", os.Getenv("TICKETMASTER_API_KEY"))
	assert.Equal(t, "already-set", os.Getenv("EVENTBRITE_API_KEY"))
}

func TestBuildVaultURL(t *testing.T) {
	url, err := buildVaultURL("http://vault:8200/", "/secret/", "/app", 1)
	require.NoError(t, err)
	assert.Equal(t, "http://vault:8200/v1/secret/app", url)

	_, err = buildVaultURL("", "secret", "app", 2)
	assert.Error(t, err)
}

func TestStringifyVaultValue(t *testing.T) {
	assert.Equal(t, "3", stringifyVaultValue(float64(3)))
	assert.Equal(t, "true", stringifyVaultValue(true))
	assert.Equal(t, `["a"]`, stringifyVaultValue([]interface{}{"a"}))
}
