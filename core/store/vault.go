package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Environment inputs for vault-resolved credentials.
const (
	envVaultAddr   = "VAULT_ADDR"
	envVaultToken  = "VAULT_TOKEN"
	envGithubToken = "GITHUB_TOKEN"
)

// VaultOptions configures vault-backed store construction.
type VaultOptions struct {
	Options
	// HTTPClient overrides the client used to reach the vault service.
	HTTPClient *http.Client
}

// NewVault constructs a persistent-document store whose connection
// credentials are resolved from a secret service at construction time
// instead of caller-supplied plaintext. The vault address comes from
// VAULT_ADDR; authentication uses VAULT_TOKEN, or a GitHub token
// exchange when only GITHUB_TOKEN is set. A missing input fails
// immediately with a MissingCredentialError naming it, never as a
// deferred connection failure.
//
// The secret at vaultPath is expected to carry a JSON value with the
// fields db, host, port, username and password.
func NewVault(collection, vaultPath string, opts VaultOptions) (*Mongo, error) {
	addr := os.Getenv(envVaultAddr)
	if addr == "" {
		return nil, &MissingCredentialError{Name: envVaultAddr}
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	token := os.Getenv(envVaultToken)
	if token == "" {
		ghToken := os.Getenv(envGithubToken)
		if ghToken == "" {
			return nil, &MissingCredentialError{Name: envVaultToken + " or " + envGithubToken}
		}
		var err error
		token, err = githubLogin(client, addr, ghToken)
		if err != nil {
			return nil, fmt.Errorf("vault github login: %w", err)
		}
	}

	creds, err := readSecret(client, addr, token, vaultPath)
	if err != nil {
		return nil, err
	}

	cfg := MongoConfig{
		Host:       creds.Host,
		Port:       creds.Port,
		Database:   creds.DB,
		Collection: collection,
		Username:   creds.Username,
		Password:   creds.Password,
	}
	return NewMongo(cfg, opts.Options), nil
}

type vaultCreds struct {
	DB       string `json:"db"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// githubLogin exchanges a GitHub personal token for a vault client token.
func githubLogin(client *http.Client, addr, ghToken string) (string, error) {
	body, _ := json.Marshal(map[string]string{"token": ghToken})
	resp, err := client.Post(joinURL(addr, "v1/auth/github/login"), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vault returned status %s", resp.Status)
	}
	var out struct {
		Auth struct {
			ClientToken string `json:"client_token"`
		} `json:"auth"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Auth.ClientToken == "" {
		return "", fmt.Errorf("vault login response carried no client token")
	}
	return out.Auth.ClientToken, nil
}

// readSecret fetches the credential mapping stored at path.
func readSecret(client *http.Client, addr, token, path string) (*vaultCreds, error) {
	req, err := http.NewRequest(http.MethodGet, joinURL(addr, "v1/"+strings.TrimPrefix(path, "/")), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Vault-Token", token)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vault read %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vault read %s: status %s", path, resp.Status)
	}

	var out struct {
		Data struct {
			Value string `json:"value"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("vault read %s: %w", path, err)
	}
	if out.Data.Value == "" {
		return nil, &MissingCredentialError{Name: "secret value at " + path}
	}
	var creds vaultCreds
	if err := json.Unmarshal([]byte(out.Data.Value), &creds); err != nil {
		return nil, fmt.Errorf("vault secret at %s is not a credential mapping: %w", path, err)
	}
	return &creds, nil
}

func joinURL(addr, path string) string {
	return strings.TrimSuffix(addr, "/") + "/" + path
}
