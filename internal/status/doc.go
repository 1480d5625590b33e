// Package status holds the most recent cycle outcome in memory for the
// read-only HTTP API and the WebSocket stream.
package status
