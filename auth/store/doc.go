// Package store holds the access credential used by the authenticated
// transport.
//
// The in-memory implementation is enough for a single process. FileStore and
// SecretStore mirror the credential to a file (plain or encrypted) so that a
// session survives process restarts, the way a browser keeps the token in
// local storage.
package store
