// Package server provides the HTTP server for the hcert service.
//
// the server is configured through environment variables
// (see internal/config/config.go for details)
//
// The package wires the signing keys, the trust list aggregator, the token chain and the
// conformance suite (see dependencies.go) and registers the handlers for
//   - token generation and verification (/generate, /verify, /qrc, /testsuite)
//   - the trust list and certificate lookup (/cert/...)
//   - common infrastructure handlers (health, version, jwks, metrics)
//
// handlers are in internal/server/handlers, middleware is in internal/server/middleware
package server
