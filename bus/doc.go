// Package bus declares the interface the core consumes from the session
// bus — the underlying transport providing named sessions, directed and
// broadcast signal emission, signal handler registration, and synchronous
// method calls. The bus itself (connect/disconnect, wire encoding,
// transport selection) is an external collaborator and is not implemented
// here; this package only fixes the shape the core needs.
//
// NewNetwork and Network.Join provide Loopback, an in-process reference
// implementation used by tests, the same simulation-vs-real switch
// a packet delivery layer provides between a real transport and a
// deterministic test double.
package bus
