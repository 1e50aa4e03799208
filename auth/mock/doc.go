// Package mock provides an httptest double of the stats backend that speaks
// the same password / bearer / refresh-cookie protocol, so the client can be
// exercised end to end without the real service.
//
// Access tokens are RS256 JWTs; the refresh artifact is an HTTP-only cookie
// holding a session ID. Tests can expire every issued access token, make
// refresh fail, slow it down and count how often it was called.
package mock
