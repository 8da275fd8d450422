// Package filemesh implements a peer-to-peer file transfer protocol
// layered over a message bus that provides named sessions, directed and
// broadcast signals, and method calls. Peers within a session announce
// files they wish to share, discover files announced by others, request
// transfers by file identifier, offer files unsolicited, and pause or
// cancel transfers from either side.
//
// # Getting started
//
// A Facade composes every internal component (File System Adapter,
// Catalog, Dispatcher, Transmitter, Receiver, Announcement Manager,
// Directed Announcement Manager, Offer Manager, Send Manager, Receive
// Manager) behind one API surface, attached to a bus.Bus:
//
//	net := bus.NewNetwork("session1")
//	fm := filemesh.New(net.Join("alice"), config.DefaultConfig())
//	fm.OnFileCompleted(func(name string, status descriptor.StatusCode) {
//	    fmt.Printf("%s finished: %s\n", name, status)
//	})
//	fm.Announce([]string{"/shared/report.pdf"})
//
// The underlying session bus, the platform file system beneath the File
// System Adapter, and the cryptographic hash primitive are all external
// collaborators consumed through small interfaces. A host application
// supplies the bus.Bus (bus.Loopback is the in-process one shipped here);
// the Facade always uses fsadapter.FSA, which hashes with crypto/sha1.
package filemesh
