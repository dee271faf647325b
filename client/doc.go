// Package client is the Go consumer of the bridge's tool API.
//
// It wraps the /rpc endpoint with typed helpers for the marketplace tools
// and handles credential attachment (bearer token or API key) on every
// request.
package client
