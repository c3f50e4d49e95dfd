// Package cli provides the interactive gophauth command-line client.
//
// It wires configuration, the persisted session, the API client and a small
// REPL. A session saved by a previous run is checked against the server at
// startup; when the server later rejects it for good, the user is sent back
// to the login prompt.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
