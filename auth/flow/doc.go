// Package flow obtains an access credential from the backend login endpoint.
package flow
