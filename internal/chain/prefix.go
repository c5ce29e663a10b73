package chain

import (
	"regexp"
	"strings"
)

// DefaultContextIdentifier marks version 1 health certificate tokens
const DefaultContextIdentifier = "HC1:"

// contextIdentifierPattern matches identifiers shaped like "HC1:"
var contextIdentifierPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]:`)

// IdentifierPrefixer prepends a fixed context identifier.
// On Strip a different identifier of the same shape is removed but not reported as matched.
type IdentifierPrefixer struct {
	identifier string
}

func NewIdentifierPrefixer(identifier string) IdentifierPrefixer {
	return IdentifierPrefixer{identifier: identifier}
}

func (p IdentifierPrefixer) Prefix(text string) string { return p.identifier + text }

func (p IdentifierPrefixer) Strip(token string) (string, string, bool) {
	if p.identifier != "" && strings.HasPrefix(token, p.identifier) {
		return token[len(p.identifier):], p.identifier, true
	}
	return stripForeignIdentifier(token)
}

// NoopPrefixer adds no context identifier
type NoopPrefixer struct{}

func (NoopPrefixer) Prefix(text string) string { return text }

func (NoopPrefixer) Strip(token string) (string, string, bool) { return stripForeignIdentifier(token) }

func stripForeignIdentifier(token string) (string, string, bool) {
	if m := contextIdentifierPattern.FindString(token); m != "" {
		return token[len(m):], m, false
	}
	return token, "", false
}
