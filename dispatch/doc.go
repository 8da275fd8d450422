// Package dispatch implements the Action tagged variant and the
// Dispatcher, a single-consumer action queue for outbound protocol
// events.
//
// Outbound events are modeled as a sum type (the Action interface,
// implemented by one struct per variant) switched on in the
// Dispatcher's worker goroutine, rather than as a class hierarchy with a
// virtual transmit method.
//
// Method-call actions (RequestData, OfferFile, RequestOffer) never pass
// through this package: they block for a peer response, and queueing
// them behind a slow broadcast would deadlock request/response flows.
// Callers invoke the Transmitter for those directly.
package dispatch
