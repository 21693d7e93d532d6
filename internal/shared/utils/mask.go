package utils

// MaskSecret masks a credential for API responses and logs.
// Empty input stays empty so callers can tell "no password" apart from
// "password withheld".
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
