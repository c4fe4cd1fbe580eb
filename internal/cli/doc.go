// Package cli provides the interactive credstore command-line client.
//
// It wires configuration, storage (PostgreSQL or in-memory), the credential
// store and a small REPL. The client keeps only the current session token,
// the way a browser keeps a cookie, and resolves the current user from it on
// every command.
//
// Commands:
//   - register: create an account
//   - login / logout: start or end a session
//   - whoami: show the user behind the current session token
//   - passwd: change the password, which also ends other sessions
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
