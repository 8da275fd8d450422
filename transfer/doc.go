// Package transfer implements the Send Manager and the Receive Manager:
// the two state machines that move file bytes once a transfer has been
// requested, track per-file progress, and answer pause/cancel requests
// from either side.
package transfer
