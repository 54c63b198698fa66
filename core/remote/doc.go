// Package remote is the client of the remote illustration API.
//
// Authentication uses an OAuth refresh token. Every call is retried with a fixed
// delay (remote.max_retries retries, remote.wait_ms apart) and followed by the same
// delay on success, which keeps a run well under the remote rate limit.
// Rejections (missing or hidden works) surface as ErrNotFound and are never retried.
//
// Illustration details are cached for the lifetime of a Client, so one run
// never asks twice for the same id.
package remote
