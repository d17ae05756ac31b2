package kite

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Credential is the daily access token issued by the Kite login flow.
// It is loaded once per run and never cached beyond it.
type Credential struct {
	APIKey      string    `json:"api_key"`
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id,omitempty"`
	LoginTime   time.Time `json:"-"`
}

// tokensFile is the shape written by the login flow
type tokensFile struct {
	APIKey      string `json:"api_key"`
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	LoginTime   string `json:"login_time"`
}

// loginTimeLayouts are the formats seen in tokens.json
var loginTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999",
}

// LoadCredential reads tokens.json. apiKey fills in a missing api_key.
func LoadCredential(path, apiKey string) (Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credential{}, fmt.Errorf("read tokens file: %w", err)
	}

	var raw tokensFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return Credential{}, fmt.Errorf("tokens file %s is corrupted: %w", path, err)
	}

	cred := Credential{
		APIKey:      raw.APIKey,
		AccessToken: raw.AccessToken,
		UserID:      raw.UserID,
	}
	if cred.APIKey == "" {
		cred.APIKey = apiKey
	}
	for _, layout := range loginTimeLayouts {
		if t, err := time.Parse(layout, raw.LoginTime); err == nil {
			cred.LoginTime = t
			break
		}
	}

	if err := cred.Validate(); err != nil {
		return Credential{}, err
	}
	return cred, nil
}

// Validate checks that both halves of the auth header are present
func (c Credential) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("credential: api_key missing (tokens file or KITE_API_KEY)")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("credential: access_token missing, re-run the login flow")
	}
	return nil
}

// IssuedBefore reports whether the token was issued before t.
// Kite tokens expire daily, so a token from a previous day is likely dead.
func (c Credential) IssuedBefore(t time.Time) bool {
	return !c.LoginTime.IsZero() && c.LoginTime.Before(t)
}

func (c Credential) authorization() string {
	return fmt.Sprintf("token %s:%s", c.APIKey, c.AccessToken)
}

// String never prints the token
func (c Credential) String() string {
	return fmt.Sprintf("kite credential (api_key=%s, user=%s)", c.APIKey, c.UserID)
}
