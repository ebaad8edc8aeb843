package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// decodeBody parses a request body into a field map.
//
// The Content-Type header selects the decoding: form-encoded bodies
// become string-valued maps, anything else is treated as JSON. JSON
// numbers are kept as json.Number so integer identifiers survive
// without float rounding.
func decodeBody(r *http.Request) (map[string]any, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty request body")
	}

	if isFormEncoded(r.Header.Get("Content-Type")) {
		values, err := url.ParseQuery(string(data))
		if err != nil {
			return nil, fmt.Errorf("parsing form body: %w", err)
		}
		out := make(map[string]any, len(values))
		for k, v := range values {
			if len(v) > 0 {
				out[k] = v[0]
			} else {
				out[k] = ""
			}
		}
		return out, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("parsing JSON body: %w", err)
	}
	return out, nil
}

func isFormEncoded(contentType string) bool {
	return strings.HasPrefix(contentType, "application/x-www-form-urlencoded")
}
