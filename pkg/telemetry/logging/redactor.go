package logging

import (
	"net/url"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "***"

var sensitiveParams = []string{
	"token",
	"access_token",
	"refresh_token",
	"api_key",
	"apikey",
	"key",
	"password",
	"passwd",
	"secret",
	"signature",
	"sig",
	"auth",
}

// IsSensitiveParam reports whether a query parameter name usually carries a
// credential.
func IsSensitiveParam(name string) bool {
	name = strings.ToLower(name)
	for _, p := range sensitiveParams {
		if name == p || strings.HasSuffix(name, "_"+p) {
			return true
		}
	}
	return false
}

// RedactQuery masks the values of sensitive parameters in a raw query string.
// An unparseable query is replaced entirely.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return RedactedValue
	}

	redacted := false
	for name, vals := range values {
		if !IsSensitiveParam(name) {
			continue
		}
		for i := range vals {
			vals[i] = RedactedValue
		}
		redacted = true
	}

	if !redacted {
		return rawQuery
	}
	return values.Encode()
}
