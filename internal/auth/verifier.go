// Package auth gates sensitive routes behind bearer credentials.
//
// Credentials are checked by an ordered chain of verifiers, first match wins.
// The deployed order is capability token first, then static key, so a token
// that happens to collide with a key string still verifies as a token.
package auth

import "attendgate/internal/token"

// Verifier attempts to match one credential scheme. Matched reports whether
// the credential belongs to this scheme and is valid; an unmatched credential
// falls through to the next verifier.
type Verifier interface {
	Matched(credential string) bool
	// Scheme names the verifier for audit details.
	Scheme() string
}

// TokenVerifier accepts capability tokens minted by the token service.
type TokenVerifier struct {
	tokens *token.Service
}

func NewTokenVerifier(tokens *token.Service) *TokenVerifier {
	return &TokenVerifier{tokens: tokens}
}

func (v *TokenVerifier) Matched(credential string) bool {
	_, err := v.tokens.Verify(credential)
	return err == nil
}

func (v *TokenVerifier) Scheme() string { return "capability_token" }

// StaticKeyVerifier accepts literal membership in the configured key set.
type StaticKeyVerifier struct {
	keys map[string]struct{}
}

func NewStaticKeyVerifier(keys []string) *StaticKeyVerifier {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return &StaticKeyVerifier{keys: set}
}

func (v *StaticKeyVerifier) Matched(credential string) bool {
	_, ok := v.keys[credential]
	return ok
}

func (v *StaticKeyVerifier) Scheme() string { return "static_key" }

// Chain composes verifiers in order, first match wins.
type Chain struct {
	verifiers []Verifier
}

func NewChain(verifiers ...Verifier) *Chain {
	return &Chain{verifiers: verifiers}
}

// Verify returns the scheme that matched, or "" when none did.
func (c *Chain) Verify(credential string) (string, bool) {
	for _, v := range c.verifiers {
		if v.Matched(credential) {
			return v.Scheme(), true
		}
	}
	return "", false
}
