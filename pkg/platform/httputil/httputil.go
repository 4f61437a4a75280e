// Package httputil holds the JSON response helpers shared by handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "signup/pkg/domain-errors"
)

// fielder is implemented by errors that point at a single input field.
type fielder interface {
	FieldName() string
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope:
//
//	{"error": "<code>", "error_description": "<message>", "field": "<field>"}
//
// Internal errors never expose their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	if code == "" {
		code = dErrors.CodeInternal
	}
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		body["error_description"] = err.Error()
	}
	var f fielder
	if errors.As(err, &f) && f.FieldName() != "" {
		body["field"] = f.FieldName()
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
