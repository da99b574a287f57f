package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validOAuthClient = `{
  "installed": {
    "client_id": "123.apps.googleusercontent.com",
    "project_id": "clinic-allocator",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "client_secret": "secret",
    "redirect_uris": ["http://localhost"]
  }
}`

func TestLoadOAuthClientFromPath_Valid(t *testing.T) {
	path := writeConfig(t, "oauthClient.json", validOAuthClient)

	cfg, err := LoadOAuthClientFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "123.apps.googleusercontent.com", cfg.Installed.ClientID)
	assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.Installed.TokenURI)
}

func TestLoadOAuthClientFromPath_MissingSecret(t *testing.T) {
	path := writeConfig(t, "oauthClient.json", `{"installed": {"client_id": "x", "project_id": "p",
		"auth_uri": "https://accounts.google.com/o/oauth2/auth", "token_uri": "https://oauth2.googleapis.com/token"}}`)

	_, err := LoadOAuthClientFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oauth client validation failed")
}

func TestLoadOAuthClientFromPath_InvalidJSON(t *testing.T) {
	path := writeConfig(t, "oauthClient.json", "{not json")

	_, err := LoadOAuthClientFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse oauth client file")
}

func TestLoadOAuthClientWithEnv_FindsEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("oauthClient.staging.json", []byte(validOAuthClient), 0644))

	cfg, err := LoadOAuthClientWithEnv("staging")
	require.NoError(t, err)
	assert.Equal(t, "clinic-allocator", cfg.Installed.ProjectID)
}
