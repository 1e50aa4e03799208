// Package transport implements the authenticated http.RoundTripper used to
// talk to the stats backend.
//
// The RoundTripper attaches the stored bearer credential to every call. When
// the backend answers 401 Unauthorized the call is parked on the Coordinator,
// which issues a single refresh (exchanging the HTTP-only refresh cookie for
// a new access credential) no matter how many calls failed at once, then
// replays every parked call with the new credential. A failed refresh clears
// the credential and rejects every parked call with ErrSessionExpired.
package transport
