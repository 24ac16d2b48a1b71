package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("%w: access token expired", ErrNotAuthenticated)
	ErrStateMismatch    = fmt.Errorf("%w: oauth state mismatch", ErrAuthFailed)

	// Domain errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrNotFound        = fmt.Errorf("not found")
	ErrConflict        = fmt.Errorf("conflict")
	ErrInternal        = fmt.Errorf("internal error")

	// External dependency errors
	ErrExternalDependency = fmt.Errorf("external dependency failure")
	ErrAPIRequest         = fmt.Errorf("%w: API request failed", ErrExternalDependency)
	ErrTimeout            = fmt.Errorf("%w: operation timed out", ErrExternalDependency)
	ErrPlaylistNotFound   = fmt.Errorf("%w: playlist not found", ErrExternalDependency)

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("%w: missing required argument", ErrInvalidArgument)
	ErrInvalidTemplate = fmt.Errorf("%w: invalid template", ErrInvalidArgument)
)
