package cmd

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// envString sets *target from key when the flag was not given explicitly.
func envString(cmd *cobra.Command, flag, key string, target *string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envBool is envString for boolean flags. Unparseable values are ignored.
func envBool(cmd *cobra.Command, flag, key string, target *bool) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

// envList is envString for comma separated list flags.
func envList(cmd *cobra.Command, flag, key string, target *[]string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if list := parseCommaSeparatedList(os.Getenv(key)); list != nil {
		*target = list
	}
}

// applyGlobalEnv fills the shared options from MAILEXPORT_* variables.
func applyGlobalEnv(cmd *cobra.Command) {
	envString(cmd, "log-level", "MAILEXPORT_LOG_LEVEL", &globals.logLevel)
	envString(cmd, "log-format", "MAILEXPORT_LOG_FORMAT", &globals.logFormat)
	envString(cmd, "credentials", "MAILEXPORT_CREDENTIALS", &globals.credentialsPath)
	envString(cmd, "token", "MAILEXPORT_TOKEN", &globals.tokenPath)
	envBool(cmd, "no-browser", "MAILEXPORT_NO_BROWSER", &globals.noBrowser)
	envString(cmd, "access-token", "MAILEXPORT_ACCESS_TOKEN", &globals.accessToken)
	envString(cmd, "api-endpoint", "MAILEXPORT_API_ENDPOINT", &globals.apiEndpoint)
}

// parseCommaSeparatedList parses a comma-separated string into a slice of
// trimmed, non-empty values.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
