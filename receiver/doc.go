// Package receiver implements the Receiver: registration as the bus's
// handler for the Data Transfer and File Discovery interfaces, decoding
// each inbound signal and delegating it to the manager responsible for
// it. The Receiver does no work itself beyond decoding and routing —
// each destination is a small capability interface it accepts at
// construction.
package receiver
