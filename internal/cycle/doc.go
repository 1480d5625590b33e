// Package cycle orchestrates one full reporting cycle: collect, analyze,
// detect transitions, aggregate, persist state, and dispatch. Cycles run
// to completion synchronously; the caller serializes them.
package cycle
