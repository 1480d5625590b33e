// Package types defines the shared data types of the VM monitoring core:
// the per-VM snapshot produced by a collector and the severity scale used
// by the analyzer, aggregator, and notification channels.
package types
