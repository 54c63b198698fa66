// Package server holds the HTTP server configuration.
//
// The Config struct defines the listen port and the API key checked by the auth
// middleware. The start command builds the Fiber app from it.
package server
