package loop

import "errors"

// Sentinel errors for event loop operations
var (
	// ErrAlreadyRunning indicates Run was called while another Run is active
	ErrAlreadyRunning = errors.New("event loop already running")

	// ErrTaskPanicked indicates a task panicked; Run ends with a Fatal error wrapping it
	ErrTaskPanicked = errors.New("event loop task panicked")
)
