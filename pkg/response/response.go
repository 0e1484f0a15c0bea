// Package response defines the envelope every OpenVerse service speaks:
// a status field plus exactly one of a data payload or an error message.
// The same shape is written by services answering requests and parsed by
// the client in pkg/request, so callers branch on one contract
// everywhere.
package response

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Status values carried in the envelope's status field.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// maxBodySize caps how much of a response body is read when decoding.
const maxBodySize = 1 << 20

// Envelope is the typed wrapper for an inter-service call result.
// Exactly one of Data or Error is populated.
type Envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`

	// StatusCode records the HTTP status observed by the client. It is
	// zero for envelopes built locally and never serialized.
	StatusCode int `json:"-"`
}

// Ok builds a success envelope around data.
func Ok(data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("response: encode data: %w", err)
	}
	return Envelope{Status: StatusOK, Data: raw}, nil
}

// Err builds an error envelope with the given message.
func Err(msg string) Envelope {
	return Envelope{Status: StatusError, Error: msg}
}

// IsOK reports whether the envelope carries a payload rather than an
// error.
func (e Envelope) IsOK() bool {
	return e.Status == StatusOK && e.Error == ""
}

// DecodeData unmarshals the envelope payload into v. It fails on error
// envelopes so a payload can never be read out of a failed call.
func (e Envelope) DecodeData(v any) error {
	if !e.IsOK() {
		return fmt.Errorf("response: no data in %s envelope: %s", e.Status, e.Error)
	}
	if len(e.Data) == 0 {
		return fmt.Errorf("response: envelope has empty data")
	}
	return json.Unmarshal(e.Data, v)
}

// Decode maps a raw HTTP response into an Envelope. A non-success
// status or an unparsable body produces an error-populated envelope
// rather than a returned failure, so callers branch uniformly.
func Decode(resp *http.Response) Envelope {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		e := Err(fmt.Sprintf("read response body: %s", err))
		e.StatusCode = resp.StatusCode
		return e
	}

	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil || e.Status == "" {
		e = Err(fmt.Sprintf("unparsable response body (status %d)", resp.StatusCode))
		e.StatusCode = resp.StatusCode
		return e
	}
	e.StatusCode = resp.StatusCode

	if resp.StatusCode >= http.StatusBadRequest && e.IsOK() {
		// The remote claimed success on a failing HTTP status; trust
		// the transport and surface the mismatch.
		e = Err(fmt.Sprintf("remote returned HTTP %d with an ok envelope", resp.StatusCode))
		e.StatusCode = resp.StatusCode
	}
	return e
}
