// Package logging provides logging utilities for lab-ctl.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("creating container", "name", name, "image", image)
//	logging.Warn("grant skipped", "connection", conn, "reason", reason)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Provisioning %d accounts...", len(specs))
//	logging.UserSuccess("Container %s created", name)
//	logging.UserWarning("Connection %s not registered", conn)
//	logging.UserError("Failed to create account: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// SetUserOutput redirects both streams, which commands use to honour
// cobra's configured writers.
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
