package utils

import "regexp"

var (
	dsnPasswordRegex = regexp.MustCompile(`(:)([^:@/]+)(@)`)
	tokenQueryRegex  = regexp.MustCompile(`((?:^|[?&])token=)[^&#]*`)
)

// MaskDSN hides the password portion of a connection string.
func MaskDSN(dsn string) string {
	return dsnPasswordRegex.ReplaceAllString(dsn, ":***@")
}

// MaskToken hides the value of a token query parameter so URLs can be logged.
func MaskToken(rawURL string) string {
	return tokenQueryRegex.ReplaceAllString(rawURL, "${1}***")
}
