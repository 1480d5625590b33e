// Package statestore persists the previous cycle's VM state map to a JSON
// file. Loading is fail-soft (a missing or corrupt file is an empty state),
// writes are atomic via temp-file-and-rename, and pruning never discards
// entries whose timestamps it cannot parse.
package statestore
