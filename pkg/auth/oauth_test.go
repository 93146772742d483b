package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const clientSecret = `{"installed":{
  "client_id":"id.apps.googleusercontent.com",
  "client_secret":"secret",
  "redirect_uris":["http://localhost"],
  "auth_uri":"https://accounts.google.com/o/oauth2/auth",
  "token_uri":"https://oauth2.googleapis.com/token"}}`

func TestConfig_RedirectOnLocalPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(clientSecret), 0o600))

	cfg, err := Config(Options{CredentialsFile: path}, Scopes)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:6789", cfg.RedirectURL)
	assert.Equal(t, Scopes, cfg.Scopes)
}

func TestConfig_MissingFile(t *testing.T) {
	_, err := Config(Options{CredentialsFile: filepath.Join(t.TempDir(), "nope.json")}, Scopes)
	assert.Error(t, err)
}

func TestRedirectURL(t *testing.T) {
	log := zerolog.Nop()
	assert.Equal(t, "http://localhost:7000/oauth2callback", redirectURL("urn:ietf:wg:oauth:2.0:oob", "7000", log))
	assert.Equal(t, "http://127.0.0.1:7000/cb", redirectURL("http://127.0.0.1:9999/cb", "7000", log))
	assert.Equal(t, "https://example.com/cb", redirectURL("https://example.com/cb", "7000", log))
}

func TestToken_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	require.NoError(t, saveToken(path, tok))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)
	assert.Equal(t, "r", got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))
}

type staticSource struct{ tok *oauth2.Token }

func (s staticSource) Token() (*oauth2.Token, error) { return s.tok, nil }

func TestPersistingSource_SavesRefreshedToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	old := &oauth2.Token{AccessToken: "old"}
	src := &persistingSource{base: staticSource{&oauth2.Token{AccessToken: "new"}}, path: path, last: old, logger: zerolog.Nop()}

	_, err := src.Token()
	require.NoError(t, err)

	saved, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", saved.AccessToken)
}

func TestLogin_MissingCredentials(t *testing.T) {
	dir := t.TempDir()
	token := filepath.Join(dir, "token.json")
	require.NoError(t, saveToken(token, &oauth2.Token{AccessToken: "stale"}))

	err := Login(t.Context(), Options{CredentialsFile: filepath.Join(dir, "missing.json"), TokenFile: token})
	require.Error(t, err)
	_, statErr := os.Stat(token)
	assert.True(t, os.IsNotExist(statErr), "stale token removed before the flow")
}
