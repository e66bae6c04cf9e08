package google

import (
	gmail "google.golang.org/api/gmail/v1"
)

// DefaultScopes are the OAuth scopes requested by the exporter.
// The export only reads labels and message metadata, so read-only access is
// enough. Changing the scopes requires deleting the cached token file.
var DefaultScopes = []string{
	gmail.GmailReadonlyScope,
}
