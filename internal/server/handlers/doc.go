// Package handlers provides the HTTP handlers of the hcert service.
//
// Infrastructure handlers (health, version, jwks) sit next to the domain handlers:
// certificate lookup and trust list download (certificates.go), token generation and
// verification (tokens.go) and the conformance test suite (testsuite.go).
package handlers
