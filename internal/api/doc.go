// Package api holds the error codes, error responses and response helpers shared by the
// HTTP handlers and middleware.
package api
