// Package ws broadcasts the latest cycle report to connected dashboard
// clients over WebSocket on a fixed interval.
package ws
