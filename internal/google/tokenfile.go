package google

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// expiryLayout matches the expiry format written by other Google client
// libraries so that token files can be shared between tools.
const expiryLayout = "2006-01-02T15:04:05.000000Z"

// authorizedUser is the on-disk token cache format.
type authorizedUser struct {
	Token        string   `json:"token,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	TokenURI     string   `json:"token_uri,omitempty"`
	ClientID     string   `json:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	Expiry       string   `json:"expiry,omitempty"`
}

// readTokenFile loads cached credentials. The returned error wraps
// fs.ErrNotExist when there is no cache yet.
func readTokenFile(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var au authorizedUser
	if err := json.Unmarshal(data, &au); err != nil {
		return nil, fmt.Errorf("failed to decode token file %s: %w", path, err)
	}

	tok := &oauth2.Token{
		AccessToken:  au.Token,
		TokenType:    "Bearer",
		RefreshToken: au.RefreshToken,
	}
	if au.Expiry != "" {
		expiry, err := time.Parse(time.RFC3339Nano, au.Expiry)
		if err != nil {
			return nil, fmt.Errorf("invalid expiry %q in token file %s: %w", au.Expiry, path, err)
		}
		tok.Expiry = expiry
	}

	return &Credentials{
		Token:  tok,
		Scopes: au.Scopes,
		Config: &oauth2.Config{
			ClientID:     au.ClientID,
			ClientSecret: au.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  au.TokenURI,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: au.Scopes,
		},
	}, nil
}

// writeTokenFile persists credentials with owner-only permissions.
func writeTokenFile(path string, creds *Credentials) error {
	au := authorizedUser{
		Token:        creds.Token.AccessToken,
		RefreshToken: creds.Token.RefreshToken,
		Scopes:       creds.Scopes,
	}
	if creds.Config != nil {
		au.TokenURI = creds.Config.Endpoint.TokenURL
		au.ClientID = creds.Config.ClientID
		au.ClientSecret = creds.Config.ClientSecret
	}
	if !creds.Token.Expiry.IsZero() {
		au.Expiry = creds.Token.Expiry.UTC().Format(expiryLayout)
	}

	data, err := json.MarshalIndent(au, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}
