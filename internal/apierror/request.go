package apierror

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/medconnect/backend/internal/logging"
)

const maxJSONBody = 1 << 20

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return Validation("request body is required")
		}
		return Validation("invalid request body")
	}
	return nil
}

// Handle logs unexpected errors with the request trace and writes the response.
func Handle(w http.ResponseWriter, r *http.Request, op string, err error) {
	if KindOf(err) == KindInternal {
		logging.FromContext(r.Context()).Error().
			Err(err).
			Str("op", op).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	Write(w, err)
}
