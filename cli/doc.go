// Package cli implements the statsctl command: log in once, then call the
// stats backend with the stored session. The credential and the refresh
// cookie are kept in the session directory between invocations.
package cli
