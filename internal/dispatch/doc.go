// Package dispatch delivers rendered cycle reports through an arbitrary
// set of notification channels. Channels are isolated from each other:
// one channel's failure (or panic) never prevents delivery through the
// rest, and transition sub-messages are capped per cycle to avoid
// rate-limiting on push channels.
package dispatch
