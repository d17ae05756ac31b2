package kite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTokens(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadCredential(t *testing.T) {
	path := writeTokens(t, `{"api_key":"k1","access_token":"tok","user_id":"AB1234","login_time":"2025-01-06 08:55:10"}`)

	cred, err := LoadCredential(path, "fallback")
	require.NoError(t, err)
	assert.Equal(t, "k1", cred.APIKey)
	assert.Equal(t, "tok", cred.AccessToken)
	assert.Equal(t, "AB1234", cred.UserID)
	assert.Equal(t, time.Date(2025, 1, 6, 8, 55, 10, 0, time.UTC), cred.LoginTime)
	assert.Equal(t, "token k1:tok", cred.authorization())
}

func TestLoadCredential_FallbackAPIKey(t *testing.T) {
	path := writeTokens(t, `{"access_token":"tok"}`)

	cred, err := LoadCredential(path, "from-env")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cred.APIKey)
	assert.True(t, cred.LoginTime.IsZero())
	assert.False(t, cred.IssuedBefore(time.Now()), "unknown login time is never reported stale")
}

func TestLoadCredential_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"corrupted", `{"access_token":`},
		{"missing token", `{"api_key":"k1"}`},
		{"missing key", `{"access_token":"tok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCredential(writeTokens(t, tt.body), "")
			assert.Error(t, err)
		})
	}

	_, err := LoadCredential(filepath.Join(t.TempDir(), "absent.json"), "k")
	assert.Error(t, err)
}

func TestCredential_StringHidesToken(t *testing.T) {
	cred := Credential{APIKey: "k1", AccessToken: "super-secret", UserID: "AB1234"}
	assert.NotContains(t, cred.String(), "super-secret")
	assert.Contains(t, cred.String(), "AB1234")
}

func TestCredential_IssuedBefore(t *testing.T) {
	cred := Credential{LoginTime: time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)}
	assert.True(t, cred.IssuedBefore(time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)))
	assert.False(t, cred.IssuedBefore(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)))
}
