// Package server exposes the tool registry over HTTP.
//
// The surface is three endpoints: POST /rpc carries tools/list and
// tools/call requests, GET /health reports component health, and GET /docs
// describes the API. Admission control (authentication plus rate limiting)
// runs as middleware in front of every endpoint; /health and /docs are
// configured as public paths so probes work without credentials.
package server
