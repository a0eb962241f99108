// Package types holds the JSON envelopes every endpoint responds with.
package types

// SuccessEnvelope wraps successful payloads under a "data" key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error shape. Code is one of the stable ledger or
// ambient error codes; Message is only populated for codes whose metadata
// allows exposing it.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError under an "error" key.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
