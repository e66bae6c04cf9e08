package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/mailexport/internal/google"
	"github.com/teemow/mailexport/internal/instrumentation"
	"github.com/teemow/mailexport/internal/logging"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the CLI
func SetVersion(v string) {
	version = v
}

// globalOptions are shared by every command that talks to Gmail.
type globalOptions struct {
	logLevel  string
	logFormat string

	credentialsPath string
	tokenPath       string
	noBrowser       bool
	consentTimeout  time.Duration
	accessToken     string
	apiEndpoint     string

	metricsExporter string
	tracingExporter string
	otlpEndpoint    string
	metricsTextfile string
}

var globals globalOptions

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd := newRootCmd()

	// Run the export command when no subcommand is given
	rootCmd.SetArgs(defaultCommandArgs(rootCmd, os.Args[1:]))

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Shared flags are bound to globals,
// which are reset on every call.
func newRootCmd() *cobra.Command {
	globals = globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "mailexport",
		Short: "Exports Gmail senders and subjects to CSV",
		Long: `mailexport signs in to Gmail with OAuth2, searches messages by query or
label and writes the sender, subject and date of every match to a CSV file.

The first run opens a browser for consent and caches the resulting token,
later runs reuse and refresh it.`,
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate(`{{printf "mailexport version %s\n" .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globals.logLevel, "log-level", "info", "Log level: debug, info, warn or error. Can also use MAILEXPORT_LOG_LEVEL env var.")
	flags.StringVar(&globals.logFormat, "log-format", logging.FormatText, "Log format: text or json. Can also use MAILEXPORT_LOG_FORMAT env var.")

	flags.StringVar(&globals.credentialsPath, "credentials", "credentials.json", "OAuth client secret file from the Google Cloud console. Can also use MAILEXPORT_CREDENTIALS env var.")
	flags.StringVar(&globals.tokenPath, "token", "token.json", "Cached OAuth token file, created on first sign-in. Can also use MAILEXPORT_TOKEN env var.")
	flags.BoolVar(&globals.noBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser. Can also use MAILEXPORT_NO_BROWSER env var.")
	flags.DurationVar(&globals.consentTimeout, "consent-timeout", google.DefaultConsentTimeout, "How long to wait for the browser sign-in to complete")
	flags.StringVar(&globals.accessToken, "access-token", "", "Use this OAuth access token instead of the token file (never refreshed or saved). Can also use MAILEXPORT_ACCESS_TOKEN env var.")
	flags.StringVar(&globals.apiEndpoint, "api-endpoint", "", "Override the Gmail API base URL. Can also use MAILEXPORT_API_ENDPOINT env var.")
	_ = flags.MarkHidden("api-endpoint")

	flags.StringVar(&globals.metricsExporter, "metrics-exporter", "", "Metrics exporter: none, stdout, otlp or prometheus. Can also use METRICS_EXPORTER env var.")
	flags.StringVar(&globals.tracingExporter, "tracing-exporter", "", "Tracing exporter: none, stdout or otlp. Can also use TRACING_EXPORTER env var.")
	flags.StringVar(&globals.otlpEndpoint, "otlp-endpoint", "", "OTLP collector endpoint, e.g. localhost:4318. Can also use OTEL_EXPORTER_OTLP_ENDPOINT env var.")
	flags.StringVar(&globals.metricsTextfile, "metrics-textfile", "", "File the prometheus exporter writes on exit (node-exporter textfile format). Can also use METRICS_TEXTFILE env var.")

	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newLabelsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// defaultCommandArgs prepends "export" unless args already name a command or
// ask for help or the version. Global flags may come before the command name.
func defaultCommandArgs(root *cobra.Command, args []string) []string {
	if len(args) == 0 {
		return []string{"export"}
	}
	switch args[0] {
	case "-h", "--help", "-v", "--version",
		cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return args
	}

	// help and completion are only attached on Execute
	root.InitDefaultHelpCmd()
	root.InitDefaultCompletionCmd(args...)

	if cmd, _, err := root.Find(args); err == nil && cmd != root {
		return args
	}
	return append([]string{"export"}, args...)
}

// instrumentationConfig overlays the command line flags on the environment
// defaults.
func (o *globalOptions) instrumentationConfig() instrumentation.Config {
	cfg := instrumentation.DefaultConfig()
	cfg.ServiceVersion = version
	if o.metricsExporter != "" {
		cfg.MetricsExporter = o.metricsExporter
	}
	if o.tracingExporter != "" {
		cfg.TracingExporter = o.tracingExporter
	}
	if o.otlpEndpoint != "" {
		cfg.OTLPEndpoint = o.otlpEndpoint
	}
	if o.metricsTextfile != "" {
		cfg.MetricsTextfile = o.metricsTextfile
	}
	return cfg
}
