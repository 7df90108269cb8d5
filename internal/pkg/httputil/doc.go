// Package httputil provides shared HTTP response/request utilities for
// API handlers: consistent JSON envelopes, error structures and request
// body decoding.
package httputil
