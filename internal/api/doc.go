// Package api serves the read-only JSON status endpoints: fleet health,
// per-VM state, the last cycle report, and channel delivery results.
package api
