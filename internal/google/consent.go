package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/mailexport/internal/instrumentation"
	"github.com/teemow/mailexport/internal/logging"
)

const consentDoneMessage = "The authentication flow has completed. You may close this window.\n"

type callbackResult struct {
	code string
	err  error
}

// consent runs the installed-application flow: print and open the
// authorization URL, wait for the redirect on a loopback listener, then
// exchange the code.
func (s *CredentialStore) consent(ctx context.Context) (*Credentials, error) {
	base, err := s.clientConfig()
	if err != nil {
		s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, err
	}

	creds, err := s.runConsent(ctx, base)
	if err != nil {
		s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, err
	}
	s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	return creds, nil
}

func (s *CredentialStore) runConsent(ctx context.Context, base *oauth2.Config) (*Credentials, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start callback listener: %w", ErrAuth, err)
	}

	conf := *base
	conf.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())

	state, err := randomState()
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deliver(results, callbackResult{err: err})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	fmt.Fprintf(s.config.Prompt, "Please visit this URL to authorize this application: %s\n", authURL)
	if s.openURL != nil {
		if err := s.openURL(authURL); err != nil {
			s.logger.Warn("Failed to open browser", logging.Err(err))
		}
	}

	timer := time.NewTimer(s.config.ConsentTimeout)
	defer timer.Stop()

	var res callbackResult
	select {
	case res = <-results:
	case <-timer.C:
		return nil, fmt.Errorf("%w: no authorization received within %s", ErrAuth, s.config.ConsentTimeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrAuth, ctx.Err())
	}
	if res.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, res.err)
	}

	tok, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %w", ErrAuth, err)
	}
	s.logger.Info("Authorization granted",
		"token", logging.SanitizeToken(tok.AccessToken))

	return &Credentials{
		Token:  tok,
		Config: base,
		Scopes: base.Scopes,
	}, nil
}

// callbackHandler accepts the authorization redirect. Only the root path is
// handled so that browser side requests such as favicon.ico are ignored.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			deliver(results, callbackResult{err: fmt.Errorf("authorization denied: %s", q.Get("error"))})
			http.Error(w, "Authorization was denied.", http.StatusForbidden)
			return
		case q.Get("state") != state:
			deliver(results, callbackResult{err: errors.New("authorization state mismatch")})
			http.Error(w, "Invalid state parameter.", http.StatusBadRequest)
			return
		case q.Get("code") == "":
			deliver(results, callbackResult{err: errors.New("authorization response has no code")})
			http.Error(w, "Missing authorization code.", http.StatusBadRequest)
			return
		}

		deliver(results, callbackResult{code: q.Get("code")})
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(consentDoneMessage))
	})
}

// deliver keeps the first result and drops the rest.
func deliver(results chan<- callbackResult, res callbackResult) {
	select {
	case results <- res:
	default:
	}
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
