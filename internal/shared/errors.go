package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Persistence errors
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrCredentialNotFound = fmt.Errorf("credential not found")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// API and service errors
	ErrAPIRequest = fmt.Errorf("API request failed")
	ErrTimeout    = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
