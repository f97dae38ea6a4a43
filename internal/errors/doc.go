// Package errors provides typed errors with exit codes for lab-ctl.
//
// # Error Types
//
// LabError is the base error type that wraps an error with an exit code
// and a Kind used by the bulk orchestrator to classify per-item outcomes:
//
//	type LabError struct {
//	    Code    int    // Exit code
//	    Kind    Kind   // validation, not_found, adapter, partial, conflict, ...
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Taxonomy
//
//	Validation     malformed name or missing field, rejected before any adapter call
//	NotFound       referenced account, container or connection does not exist
//	AdapterFailed  the registry or runtime call failed
//	Partial        first step of a compound operation succeeded, a dependent step failed
//	AlreadyExists  create collided with an existing entity
//
// Only a request-level Validation error stops a batch. Everything else is
// recorded against the item that produced it.
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
