package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ProviderCredentialKeys are the environment variables Vault is allowed to
// populate for event providers.
var ProviderCredentialKeys = []string{
	"TICKETMASTER_API_KEY",
	"EVENTBRITE_API_KEY",
	"REDIS_PASSWORD",
}

// VaultConfig describes where provider credentials live in Vault KV
type VaultConfig struct {
	Enabled   bool          `env:"VAULT_ENABLED" envDefault:"false"`
	Addr      string        `env:"VAULT_ADDR"`
	Token     string        `env:"VAULT_TOKEN"`
	Namespace string        `env:"VAULT_NAMESPACE"`
	Mount     string        `env:"VAULT_MOUNT" envDefault:"secret"`
	Path      string        `env:"VAULT_PATH"`
	KVVersion int           `env:"VAULT_KV_VERSION" envDefault:"2"`
	Timeout   time.Duration `env:"VAULT_TIMEOUT" envDefault:"5s"`
	Overwrite bool          `env:"VAULT_OVERWRITE" envDefault:"false"`
	// AllowedKeys restricts which secrets are exported; empty allows all.
	AllowedKeys []string `env:"VAULT_ALLOWED_KEYS" envSeparator:","`
}

// VaultResult summarizes what ApplyVaultSecrets did
type VaultResult struct {
	Enabled bool
	Path    string
	Loaded  int
	Skipped int
}

// LoadVaultConfigFromEnv reads VAULT_* variables
func LoadVaultConfigFromEnv() (VaultConfig, error) {
	cfg := VaultConfig{AllowedKeys: ProviderCredentialKeys}
	if err := env.Parse(&cfg); err != nil {
		return VaultConfig{}, fmt.Errorf("parse vault env: %w", err)
	}
	return cfg, nil
}

// ApplyVaultSecrets fetches the configured KV path and exports its keys as
// environment variables so config.Load picks them up.
func ApplyVaultSecrets(ctx context.Context, cfg VaultConfig) (VaultResult, error) {
	if !cfg.Enabled {
		return VaultResult{Enabled: false}, nil
	}
	result := VaultResult{Enabled: true, Path: cfg.Path}

	if cfg.Addr == "" || cfg.Token == "" || cfg.Path == "" {
		return result, errors.New("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)")
	}

	data, err := fetchVaultData(ctx, cfg)
	if err != nil {
		return result, err
	}

	allowed := make(map[string]bool, len(cfg.AllowedKeys))
	for _, key := range cfg.AllowedKeys {
		allowed[key] = true
	}

	for key, value := range data {
		if len(allowed) > 0 && !allowed[key] {
			result.Skipped++
			continue
		}
		if !cfg.Overwrite && os.Getenv(key) != "" {
			result.Skipped++
			continue
		}
		if err := os.Setenv(key, stringifyVaultValue(value)); err != nil {
			return result, err
		}
		result.Loaded++
	}

	return result, nil
}

func fetchVaultData(ctx context.Context, cfg VaultConfig) (map[string]interface{}, error) {
	url, err := buildVaultURL(cfg.Addr, cfg.Mount, cfg.Path, cfg.KVVersion)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: cfg.Timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Vault-Token", cfg.Token)
	if cfg.Namespace != "" {
		req.Header.Set("X-Vault-Namespace", cfg.Namespace)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("vault fetch failed: %s %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return extractVaultData(payload, cfg.KVVersion)
}

func buildVaultURL(addr, mount, path string, kvVersion int) (string, error) {
	addr = strings.TrimRight(addr, "/")
	mount = strings.Trim(mount, "/")
	path = strings.TrimLeft(path, "/")
	if addr == "" || mount == "" || path == "" {
		return "", errors.New("vault address, mount, and path must be set")
	}
	if kvVersion == 1 {
		return fmt.Sprintf("%s/v1/%s/%s", addr, mount, path), nil
	}
	return fmt.Sprintf("%s/v1/%s/data/%s", addr, mount, path), nil
}

func extractVaultData(payload map[string]interface{}, kvVersion int) (map[string]interface{}, error) {
	data, ok := payload["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("vault response missing data for KV v%d", kvVersion)
	}
	if kvVersion == 1 {
		return data, nil
	}
	inner, ok := data["data"].(map[string]interface{})
	if !ok {
		return nil, errors.New("vault response missing data for KV v2")
	}
	return inner, nil
}

func stringifyVaultValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
