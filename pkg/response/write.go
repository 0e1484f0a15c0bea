package response

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/openverse/toolkit/pkg/types"
)

// WriteJSON writes data as a JSON body with the given HTTP status.
// Headers must be set before the status line, so the order here is
// fixed: Content-Type, WriteHeader, body.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps an unexpected error into the standard envelope.
func GeneralError(err error) Envelope {
	return Err(err.Error())
}

// ValidationError renders per-field validation failures into the
// standard envelope. It accepts both the toolkit's own
// *types.ValidationError and raw validator.ValidationErrors, so
// services can pass whichever their handler produced.
func ValidationError(err error) Envelope {
	if errs, ok := err.(validator.ValidationErrors); ok {
		return Err(types.FromValidatorErrors(errs).Error())
	}
	return Err(err.Error())
}
