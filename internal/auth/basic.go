package auth

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// basicScheme is the authorization scheme name in the credential header.
const basicScheme = "Basic"

// ParseBasic extracts a (username, secret) pair from the request's
// Authorization header. The header value is the scheme name followed by
// the base64 encoding of "user:pass".
//
// Returns ok=false if the header is absent, uses a different scheme,
// is not valid base64, or contains no colon separator.
func ParseBasic(r *http.Request) (username, secret string, ok bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "", false
	}

	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, basicScheme) {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return "", "", false
	}

	username, secret, found = strings.Cut(string(decoded), ":")
	if !found {
		return "", "", false
	}
	return username, secret, true
}

// WriteChallenge writes the 401 re-authentication challenge.
// Browsers respond by prompting for credentials.
func WriteChallenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", basicScheme+` realm="thingsd"`)
	w.WriteHeader(http.StatusUnauthorized)
}
