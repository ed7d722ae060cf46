// Package logging provides structured logging with secret redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON and text formats
//   - Redaction of credentials found in log attributes
//   - Context-aware logging with run, application and environment fields
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Redact: true,
//	})
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithApplication(ctx, "shop/app.config")
//	logger.WarnContext(ctx, "unresolved variable reference",
//	    "path", "db.url",
//	    "reference", "_{ $dbHost }_",
//	)
//
// Library packages accept a *slog.Logger; pass Logger.Slog() so records
// logged there get the same context fields and redaction.
//
// # Redaction
//
// Attribute values whose key looks sensitive (password, token, secret, api
// key, credential) are masked. String values of all other attributes are
// scrubbed for bearer tokens, URL credentials and key=value secrets.
package logging
