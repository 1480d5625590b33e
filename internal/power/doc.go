// Package power detects VM power-state transitions between reporting
// cycles by diffing the current snapshot batch against the persisted
// previous state. It is the sole producer of the next persisted state.
package power
