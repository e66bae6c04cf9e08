// Package google obtains OAuth2 credentials for the Gmail API.
//
// Credentials are cached in an "authorized user" JSON file. A cached token is
// reused while valid, refreshed with its refresh token once expired, and
// otherwise replaced through an interactive consent flow that receives the
// authorization code on a loopback listener bound to an ephemeral port.
//
// Example usage:
//
//	store := google.NewCredentialStore(google.CredentialConfig{
//	    Scopes:           google.DefaultScopes,
//	    TokenPath:        "token.json",
//	    ClientSecretPath: "credentials.json",
//	    OpenBrowser:      true,
//	}, logger, metrics)
//	creds, err := store.Obtain(ctx)
//	if err != nil {
//	    return err
//	}
//	httpClient := creds.HTTPClient(ctx)
package google
