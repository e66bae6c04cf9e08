package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/teemow/mailexport/internal/gmail"
	"github.com/teemow/mailexport/internal/google"
	"github.com/teemow/mailexport/internal/instrumentation"
	"github.com/teemow/mailexport/internal/logging"
)

// session holds everything a command needs to talk to Gmail.
type session struct {
	logger   *slog.Logger
	provider *instrumentation.Provider
	runID    string
}

// newSession builds the logger and the instrumentation provider.
// Callers must call close.
func newSession(ctx context.Context, cmd *cobra.Command, operation string) (*session, error) {
	applyGlobalEnv(cmd)

	base, err := logging.NewLogger(cmd.ErrOrStderr(), globals.logLevel, globals.logFormat)
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	logger := logging.WithOperation(logging.WithRunID(base, runID), operation)

	provider, err := instrumentation.NewProvider(ctx, globals.instrumentationConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	return &session{
		logger:   logger,
		provider: provider,
		runID:    runID,
	}, nil
}

// close flushes telemetry. It uses a fresh context so that an interrupted
// run still writes its metrics.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.provider.Shutdown(ctx); err != nil {
		s.logger.Warn("Error during instrumentation shutdown", logging.Err(err))
	}
}

// tokenProvider picks the static token when one was given, the token file
// otherwise.
func (s *session) tokenProvider(prompt io.Writer) google.TokenProvider {
	if globals.accessToken != "" {
		s.logger.Debug("Using access token from command line",
			"token", logging.SanitizeToken(globals.accessToken))
		return google.NewStaticTokenProvider(globals.accessToken)
	}
	return google.NewCredentialStore(google.CredentialConfig{
		Scopes:           google.DefaultScopes,
		TokenPath:        globals.tokenPath,
		ClientSecretPath: globals.credentialsPath,
		OpenBrowser:      !globals.noBrowser,
		ConsentTimeout:   globals.consentTimeout,
		Prompt:           prompt,
	}, logging.NewSlogAdapter(logging.WithService(s.logger, "oauth")), s.provider.Metrics())
}

// gmailClient authenticates and creates the Gmail client.
func (s *session) gmailClient(ctx context.Context, prompt io.Writer) (*gmail.Client, error) {
	creds, err := s.tokenProvider(prompt).Obtain(ctx)
	if err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if globals.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(globals.apiEndpoint))
	}

	client, err := gmail.NewClient(ctx, creds.HTTPClient(ctx), opts...)
	if err != nil {
		return nil, err
	}
	return client.
		WithLogger(logging.NewSlogAdapter(logging.WithService(s.logger, instrumentation.ServiceGmail))).
		WithMetrics(s.provider.Metrics()), nil
}
