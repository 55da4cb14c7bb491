package stt

import "fmt"

// GenericCloseCode is the websocket close code used when an upstream error
// does not map onto one of the recognized HTTP statuses.
const GenericCloseCode = 4000

// ProviderError is an upstream failure normalized to an HTTP status code.
// Adapters produce these from vendor-specific error frames so the relay and
// health layers can treat every vendor uniformly.
type ProviderError struct {
	HTTPCode     int
	Message      string
	ProviderCode string
}

func (e *ProviderError) Error() string {
	if e.ProviderCode != "" {
		return fmt.Sprintf("upstream error %d (%s): %s", e.HTTPCode, e.ProviderCode, e.Message)
	}
	return fmt.Sprintf("upstream error %d: %s", e.HTTPCode, e.Message)
}

// wsMappedCodes are the HTTP statuses that translate to a distinct close
// code in the 4000 range. Everything else collapses to GenericCloseCode.
var wsMappedCodes = map[int]bool{
	400: true,
	401: true,
	402: true,
	403: true,
	404: true,
	429: true,
	500: true,
}

// WSCloseCode maps the error onto a websocket close code. Recognized HTTP
// statuses become 4000+status (401 -> 4401, 429 -> 4429); anything else
// becomes the generic 4000 so clients never see an out-of-range code.
func (e *ProviderError) WSCloseCode() int {
	if wsMappedCodes[e.HTTPCode] {
		return GenericCloseCode + e.HTTPCode
	}
	return GenericCloseCode
}

// Blocking reports whether the error indicates a condition that will fail
// every subsequent request until an operator intervenes, as opposed to a
// transient overload.
func (e *ProviderError) Blocking() bool {
	switch e.HTTPCode {
	case 400, 401, 402, 403, 404:
		return true
	}
	return false
}

func NewProviderError(httpCode int, message string) *ProviderError {
	return &ProviderError{HTTPCode: httpCode, Message: message}
}
