// Package integration contains end-to-end tests for the hcert server.
//
// These tests start the server in-process, configured through environment variables like
// a deployment, with key files on disk and a fake certificate gateway. They verify the
// token, trust list and certificate endpoints work together (tokens signed by gateway
// certificates verify, the trust list lists every certificate source, etc).
//
// These tests assume the chain, crypto and trustlist packages are working correctly (tested separately).
// If bugs are introduced in lower-level packages, there will be cascading failures here -
// fix the low-level problems first.
package integration
