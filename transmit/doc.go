// Package transmit implements the Transmitter: a thin wrapper over the
// session bus exposing one operation per Action variant that actually
// crosses the wire. It holds no transfer state of its own — pure
// marshalling onto bus.Bus.
//
// Signal operations (Announce, RequestAnnouncement, StopXfer,
// XferCancelled, data chunk delivery) return once the bus accepts them
// and are normally invoked from the Dispatcher's worker goroutine.
// Method-call operations (RequestData, OfferFile, RequestOffer) block
// for a synchronous reply and are invoked directly by whichever manager
// needs them — the transmit-immediately bypass.
package transmit
