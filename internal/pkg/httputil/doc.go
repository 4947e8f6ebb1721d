// Package httputil provides shared HTTP response helpers for handlers.
//
// Handlers use these helpers instead of writing raw http.ResponseWriter
// calls, so every endpoint emits the same JSON error envelope and the
// same cache headers on tracking artifacts.
package httputil
