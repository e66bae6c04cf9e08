// Package logging provides structured logging utilities for mailexport.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog (text or JSON handlers)
//   - PII sanitization (sender address anonymization, token masking)
//   - Consistent attribute naming across the codebase
//   - Logger adapter interface for library packages
//
// # Usage Patterns
//
// Build the process logger once and attach the run identifier:
//
//	logger, err := logging.NewLogger(os.Stderr, "info", "text")
//	logger = logging.WithRunID(logger, runID)
//
// Log with standard attributes:
//
//	logger.Info("page exported",
//	    logging.Count(total),
//	    logging.Page(page))
//
// # Security Considerations
//
//   - Sender addresses are hashed before they reach log output
//   - Tokens are never logged directly
package logging
