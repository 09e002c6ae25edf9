package authflow

import (
	"encoding/json"
	"strings"
)

// StateParam is the JSON object round-tripped through the identity provider
// in the state query parameter. The nonce guards against CSRF; Next carries
// the post-login destination.
type StateParam struct {
	Nonce string `json:"s"`
	Next  string `json:"next"`
}

// EncodeState serializes the state parameter. URL escaping is left to the
// query encoder.
func EncodeState(nonce, next string) (string, error) {
	data, err := json.Marshal(StateParam{Nonce: nonce, Next: next})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeState parses the state parameter returned by the provider. A value
// that fails to decode yields an empty nonce, which fails the state-match
// check downstream instead of aborting the handler.
func DecodeState(raw string) StateParam {
	var st StateParam
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return StateParam{}
	}
	return st
}

// DefaultNext is where a flow lands when no usable destination was carried.
const DefaultNext = "/dashboard"

// SanitizeNext restricts post-login destinations to same-origin absolute
// paths so the state parameter cannot be abused as an open redirect.
func SanitizeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return DefaultNext
	}
	return next
}
