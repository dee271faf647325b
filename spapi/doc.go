// Package spapi is a thin client for the Amazon Selling Partner API.
//
// It covers the two read paths the tool server exposes: listing items
// (product information) and competitive pricing. Requests authenticate with
// a Login-with-Amazon access token obtained from a refresh token and cached
// until shortly before expiry. A client-side token bucket throttles calls to
// stay under Amazon's published rate limits, and transient failures (429,
// 5xx) are retried with exponential backoff.
package spapi
