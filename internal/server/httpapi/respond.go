package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/fittrack/internal/common"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Status      string            `json:"status"`
	Token       string            `json:"token,omitempty"`
	Results     *int              `json:"results,omitempty"`
	Data        any               `json:"data,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func success(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, envelope{Status: "success", Data: data})
}

// decodeJSON reads a single JSON object from the body, rejecting unknown
// fields and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return common.New(common.KindValidationFailure, "Request body must not be empty")
		}
		return common.Wrap(common.KindValidationFailure, err, "Invalid request body")
	}
	if dec.More() {
		return common.New(common.KindValidationFailure, "Request body must contain a single JSON object")
	}
	return nil
}
