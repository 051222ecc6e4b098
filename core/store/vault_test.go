package store

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vaultSecretJSON = `{"db": "materials", "host": "db.example.com", "port": 27018, "username": "reader", "password": "s3cret"}`

func fakeVault(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/github/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["token"] != "gh-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"auth": map[string]any{"client_token": "vault-token"},
		})
	})
	mux.HandleFunc("/v1/secret/dbs/tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "vault-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"value": vaultSecretJSON},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewVault(t *testing.T) {
	t.Run("resolves credentials with a vault token", func(t *testing.T) {
		srv := fakeVault(t)
		t.Setenv("VAULT_ADDR", srv.URL)
		t.Setenv("VAULT_TOKEN", "vault-token")
		t.Setenv("GITHUB_TOKEN", "")

		s, err := NewVault("tasks", "secret/dbs/tasks", VaultOptions{})
		require.NoError(t, err)
		assert.Equal(t, "tasks", s.Name())
		assert.Equal(t, "materials", s.Database())
	})

	t.Run("exchanges a github token when no vault token is set", func(t *testing.T) {
		srv := fakeVault(t)
		t.Setenv("VAULT_ADDR", srv.URL)
		t.Setenv("VAULT_TOKEN", "")
		t.Setenv("GITHUB_TOKEN", "gh-token")

		s, err := NewVault("tasks", "secret/dbs/tasks", VaultOptions{})
		require.NoError(t, err)
		assert.Equal(t, "materials", s.Database())
	})

	t.Run("missing address fails immediately", func(t *testing.T) {
		t.Setenv("VAULT_ADDR", "")
		t.Setenv("VAULT_TOKEN", "vault-token")

		_, err := NewVault("tasks", "secret/dbs/tasks", VaultOptions{})
		var missing *MissingCredentialError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "VAULT_ADDR", missing.Name)
	})

	t.Run("missing tokens fail immediately and name both inputs", func(t *testing.T) {
		t.Setenv("VAULT_ADDR", "http://vault.example.com")
		t.Setenv("VAULT_TOKEN", "")
		t.Setenv("GITHUB_TOKEN", "")

		_, err := NewVault("tasks", "secret/dbs/tasks", VaultOptions{})
		var missing *MissingCredentialError
		require.ErrorAs(t, err, &missing)
		assert.Contains(t, missing.Name, "VAULT_TOKEN")
		assert.Contains(t, missing.Name, "GITHUB_TOKEN")
	})

	t.Run("rejected github token surfaces the login failure", func(t *testing.T) {
		srv := fakeVault(t)
		t.Setenv("VAULT_ADDR", srv.URL)
		t.Setenv("VAULT_TOKEN", "")
		t.Setenv("GITHUB_TOKEN", "wrong")

		_, err := NewVault("tasks", "secret/dbs/tasks", VaultOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "github login")
	})

	t.Run("unknown secret path fails", func(t *testing.T) {
		srv := fakeVault(t)
		t.Setenv("VAULT_ADDR", srv.URL)
		t.Setenv("VAULT_TOKEN", "vault-token")

		_, err := NewVault("tasks", "secret/dbs/ghost", VaultOptions{})
		assert.Error(t, err)
	})
}
