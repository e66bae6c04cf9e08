package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/mailexport/internal/instrumentation"
	"github.com/teemow/mailexport/internal/logging"
)

// DefaultConsentTimeout bounds how long the consent flow waits for the
// browser redirect.
const DefaultConsentTimeout = 5 * time.Minute

// CredentialConfig configures where credentials live and which scopes they
// must carry.
type CredentialConfig struct {
	// Scopes requested during consent. Defaults to DefaultScopes.
	Scopes []string

	// TokenPath is the cached "authorized user" token file.
	TokenPath string

	// ClientSecretPath is the OAuth client secret downloaded from the Google
	// Cloud console. Only read when consent or a refresh needs client data.
	ClientSecretPath string

	// OpenBrowser opens the authorization URL with the platform browser.
	OpenBrowser bool

	// ConsentTimeout defaults to DefaultConsentTimeout.
	ConsentTimeout time.Duration

	// Prompt receives the authorization URL. Defaults to os.Stderr.
	Prompt io.Writer
}

// Credentials is an OAuth token together with the client data needed to
// refresh it.
type Credentials struct {
	Token  *oauth2.Token
	Config *oauth2.Config
	Scopes []string
}

// TokenSource returns a token source that refreshes the token as needed.
func (c *Credentials) TokenSource(ctx context.Context) oauth2.TokenSource {
	if c.Config == nil || c.Config.Endpoint.TokenURL == "" {
		return oauth2.StaticTokenSource(c.Token)
	}
	return c.Config.TokenSource(ctx, c.Token)
}

// HTTPClient returns an HTTP client that authorizes every request.
func (c *Credentials) HTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, c.TokenSource(ctx))
}

// CredentialStore loads, refreshes, creates and persists credentials.
type CredentialStore struct {
	config  CredentialConfig
	logger  logging.Logger
	metrics *instrumentation.Metrics

	// openURL is swapped out in tests.
	openURL func(url string) error
}

// NewCredentialStore creates a credential store. A nil logger discards log
// output and nil metrics disable recording.
func NewCredentialStore(config CredentialConfig, logger logging.Logger, metrics *instrumentation.Metrics) *CredentialStore {
	if len(config.Scopes) == 0 {
		config.Scopes = DefaultScopes
	}
	if config.ConsentTimeout <= 0 {
		config.ConsentTimeout = DefaultConsentTimeout
	}
	if config.Prompt == nil {
		config.Prompt = os.Stderr
	}
	if logger == nil {
		logger = logging.Discard()
	}

	s := &CredentialStore{
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
	if config.OpenBrowser {
		s.openURL = openBrowser
	}
	return s
}

// Obtain returns usable credentials. A valid cached token is returned as is,
// an expired one is refreshed and a missing one is created through consent.
// New or refreshed credentials are written back to the token file.
func (s *CredentialStore) Obtain(ctx context.Context) (*Credentials, error) {
	creds, err := readTokenFile(s.config.TokenPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Debug("No cached token", logging.Path(s.config.TokenPath))
		creds = nil
	case err != nil:
		s.logger.Warn("Ignoring unreadable token file",
			logging.Path(s.config.TokenPath),
			logging.Err(err))
		creds = nil
	}

	if creds != nil && creds.Token.Valid() {
		if err := s.fillClientData(creds); err != nil {
			s.logger.Debug("Client secret unavailable for refresh", logging.Err(err))
		}
		s.logger.Debug("Using cached token",
			logging.Path(s.config.TokenPath),
			"token", logging.SanitizeToken(creds.Token.AccessToken))
		return creds, nil
	}

	if creds != nil && creds.Token.RefreshToken != "" {
		creds, err = s.refresh(ctx, creds)
	} else {
		creds, err = s.consent(ctx)
	}
	if err != nil {
		return nil, err
	}

	if err := writeTokenFile(s.config.TokenPath, creds); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}
	s.logger.Debug("Saved token", logging.Path(s.config.TokenPath))

	return creds, nil
}

func (s *CredentialStore) refresh(ctx context.Context, creds *Credentials) (*Credentials, error) {
	clientErr := s.fillClientData(creds)

	if creds.Config.Endpoint.TokenURL == "" {
		s.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		if clientErr != nil {
			return nil, clientErr
		}
		return nil, fmt.Errorf("%w: token file has no token_uri to refresh against", ErrAuth)
	}
	if clientErr != nil {
		s.logger.Debug("Client secret unavailable for refresh", logging.Err(clientErr))
	}

	// Force the token source to hit the token endpoint.
	stale := *creds.Token
	stale.Expiry = time.Unix(1, 0)

	tok, err := creds.Config.TokenSource(ctx, &stale).Token()
	if err != nil {
		result := instrumentation.OAuthResultFailure
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.ErrorCode == "invalid_grant" {
			// Refresh token revoked or expired; consent is needed again.
			result = instrumentation.OAuthResultExpired
		}
		s.metrics.RecordOAuthTokenRefresh(ctx, result)
		return nil, fmt.Errorf("%w: failed to refresh token (remove %s to sign in again): %w", ErrAuth, s.config.TokenPath, err)
	}
	s.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)

	if tok.RefreshToken == "" {
		tok.RefreshToken = creds.Token.RefreshToken
	}
	s.logger.Info("Refreshed access token",
		"token", logging.SanitizeToken(tok.AccessToken))

	return &Credentials{
		Token:  tok,
		Config: creds.Config,
		Scopes: creds.Scopes,
	}, nil
}

// fillClientData completes token files written without client data, using
// the client secret file when it is available.
func (s *CredentialStore) fillClientData(creds *Credentials) error {
	if creds.Config.ClientID != "" && creds.Config.Endpoint.TokenURL != "" {
		return nil
	}
	conf, err := s.clientConfig()
	if err != nil {
		return err
	}
	if creds.Config.ClientID == "" {
		creds.Config.ClientID = conf.ClientID
		creds.Config.ClientSecret = conf.ClientSecret
	}
	if creds.Config.Endpoint.TokenURL == "" {
		creds.Config.Endpoint = conf.Endpoint
	}
	if len(creds.Scopes) == 0 {
		creds.Scopes = s.config.Scopes
	}
	return nil
}

// clientConfig reads the OAuth client secret file.
func (s *CredentialStore) clientConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(s.config.ClientSecretPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w: %s", ErrAuth, ErrClientSecretMissing, s.config.ClientSecretPath)
		}
		return nil, fmt.Errorf("%w: failed to read client secret: %w", ErrAuth, err)
	}

	conf, err := google.ConfigFromJSON(data, s.config.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid client secret file %s: %w", ErrAuth, s.config.ClientSecretPath, err)
	}
	return conf, nil
}
