// Package report merges threshold analysis and power-change detection into
// one severity-resolved bundle per cycle and renders it into the plain-text
// messages delivered through notification channels.
package report
