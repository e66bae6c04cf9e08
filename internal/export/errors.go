package export

import "errors"

var (
	// ErrRemote wraps failures of the mail API. They abort the run.
	ErrRemote = errors.New("mail API request failed")

	// ErrNoLabels is returned when none of the requested labels exist.
	// Without it an empty label filter would export the whole mailbox.
	ErrNoLabels = errors.New("none of the requested labels exist")
)
