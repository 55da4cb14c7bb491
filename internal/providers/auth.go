package providers

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"
)

// AuthScheme enumerates how a vendor expects credentials to arrive.
type AuthScheme int

const (
	// SchemeHeader sends the key as an HTTP header on the websocket
	// handshake or REST call.
	SchemeHeader AuthScheme = iota
	// SchemeFirstMessage injects the key into the first JSON text frame
	// the client sends after the upgrade.
	SchemeFirstMessage
	// SchemeSessionInit exchanges the key for a session URL via a REST
	// pre-flight before any websocket is opened.
	SchemeSessionInit
	// SchemePresignedURL signs the websocket URL itself; no header or
	// message carries the credential.
	SchemePresignedURL
)

// AuthMode pairs a scheme with the vendor-specific names it needs.
type AuthMode struct {
	Scheme       AuthScheme
	HeaderName   string
	HeaderPrefix string
	Field        string
	InitHeader   string
}

func HeaderAuth(name, prefix string) AuthMode {
	return AuthMode{Scheme: SchemeHeader, HeaderName: name, HeaderPrefix: prefix}
}

func FirstMessageAuth(field string) AuthMode {
	return AuthMode{Scheme: SchemeFirstMessage, Field: field}
}

func SessionInitAuth(header string) AuthMode {
	return AuthMode{Scheme: SchemeSessionInit, InitHeader: header}
}

func PresignedURLAuth() AuthMode {
	return AuthMode{Scheme: SchemePresignedURL}
}

// RequestHeader returns the header to attach for header-style auth. ok is
// false for every other scheme.
func (m AuthMode) RequestHeader(apiKey string) (name, value string, ok bool) {
	if m.Scheme != SchemeHeader || apiKey == "" {
		return "", "", false
	}
	return m.HeaderName, m.HeaderPrefix + apiKey, true
}

// SessionInitHeader returns the header for the session-init pre-flight.
func (m AuthMode) SessionInitHeader(apiKey string) (name, value string, ok bool) {
	if m.Scheme != SchemeSessionInit || apiKey == "" {
		return "", "", false
	}
	return m.InitHeader, apiKey, true
}

// InjectKey sets the credential field on a first-message payload. The
// payload must be a JSON object; other frames pass through untouched so a
// client that opens with binary audio never has a key spliced into it.
func (m AuthMode) InjectKey(payload []byte, apiKey string) ([]byte, error) {
	if m.Scheme != SchemeFirstMessage {
		return payload, nil
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("first message is not valid JSON")
	}
	return sjson.SetBytes(payload, m.Field, apiKey)
}
