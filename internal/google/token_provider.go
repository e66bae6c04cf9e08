package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenProvider supplies credentials for Gmail API clients.
// CredentialStore is the file-backed implementation.
type TokenProvider interface {
	Obtain(ctx context.Context) (*Credentials, error)
}

var (
	_ TokenProvider = (*CredentialStore)(nil)
	_ TokenProvider = (*StaticTokenProvider)(nil)
)

// StaticTokenProvider serves a fixed access token minted elsewhere, for
// example with `gcloud auth print-access-token`. The token is never refreshed
// or persisted.
type StaticTokenProvider struct {
	accessToken string
}

// NewStaticTokenProvider creates a provider for a pre-issued access token.
func NewStaticTokenProvider(accessToken string) *StaticTokenProvider {
	return &StaticTokenProvider{accessToken: accessToken}
}

// Obtain returns credentials wrapping the static token.
func (p *StaticTokenProvider) Obtain(_ context.Context) (*Credentials, error) {
	if p.accessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrAuth)
	}
	return &Credentials{
		Token: &oauth2.Token{
			AccessToken: p.accessToken,
			TokenType:   "Bearer",
		},
	}, nil
}
