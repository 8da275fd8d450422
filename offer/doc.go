// Package offer implements the Offer Manager: proposing a file to a
// specific peer and blocking the caller until that peer accepts,
// rejects, or times out, and the server side of accepting or declining
// an inbound offer from a peer.
package offer
