// Package instrumentation provides OpenTelemetry instrumentation for mailexport.
//
// A run of the exporter is short-lived, so metrics are pushed or written out
// when the provider shuts down rather than scraped:
//   - prometheus: metrics are written to a node-exporter textfile on shutdown
//   - otlp: metrics and traces are pushed to an OTLP/HTTP collector
//   - stdout: metrics and traces are printed to stderr (debugging only)
//   - none: instrumentation is disabled (default)
//
// # Metrics
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// OAuth Metrics:
//   - oauth_auth_total: Counter of interactive consent attempts by result
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// Export Metrics:
//   - export_rows_total: Counter of rows by row shape and result (written, skipped)
//   - export_pages_total: Counter of result pages processed
//
// # Tracing
//
// Each Gmail API call is wrapped in a client span named google.gmail.<operation>;
// the whole export runs under a single export.run span.
package instrumentation
