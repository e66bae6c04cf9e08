package google

import "errors"

var (
	// ErrAuth wraps every failure to obtain usable credentials.
	ErrAuth = errors.New("google authentication failed")

	// ErrClientSecretMissing is returned when consent is required but the
	// OAuth client secret file cannot be read.
	ErrClientSecretMissing = errors.New("oauth client secret file not found")
)
