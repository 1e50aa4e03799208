// Package client is an authenticated client for the stats backend.
//
// Every call carries the stored bearer credential. A 401 on a regular
// resource parks the call while a single refresh (POST /refresh, refresh
// cookie) obtains a new credential; parked calls are then replayed. When the
// refresh fails the credential is cleared and every parked call fails with
// ErrSessionExpired.
//
//	options := &client.ClientOptions{}
//	if err := options.LoadEnv(); err != nil { ... }
//	cli, err := client.NewClient(options)
//	if err = cli.Login(ctx, "admin", "admin"); err != nil { ... }
//	var teams []Team
//	err = cli.Get(ctx, "/teams", &teams)
package client
