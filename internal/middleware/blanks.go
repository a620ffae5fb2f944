package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
)

// RemoveBlanks strips every object key whose value is "" from a JSON request
// body, at any depth. Bodies that are not a JSON object or array pass through
// unchanged for the handler to reject.
func RemoveBlanks(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "Request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Failed to read request body")
			return
		}

		body := raw
		if cleaned, ok := stripBlanks(raw); ok {
			body = cleaned
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
		r.Header.Set("Content-Length", strconv.Itoa(len(body)))

		next.ServeHTTP(w, r)
	})
}

// stripBlanks returns the cleaned document, or false if raw is not a JSON object or array.
func stripBlanks(raw []byte) ([]byte, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}

	switch doc.(type) {
	case map[string]any, []any:
	default:
		return nil, false
	}

	out, err := json.Marshal(removeBlankValues(doc))
	if err != nil {
		return nil, false
	}
	return out, true
}

func removeBlankValues(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if s, ok := child.(string); ok && s == "" {
				delete(t, k)
				continue
			}
			t[k] = removeBlankValues(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = removeBlankValues(child)
		}
		return t
	default:
		return v
	}
}
