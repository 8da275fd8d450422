// Package announce implements the Announcement Manager and the Directed
// Announcement Manager: broadcasting and requesting catalogs of locally
// shared files, and the offer-request/offer-response round trip used to
// discover one file by path without a prior broadcast announcement.
//
// Both managers depend only on descriptor and dispatch directly; their
// other collaborators (file system, catalog, identity) are accepted as
// small locally-defined capability interfaces so this package never
// imports fsadapter or catalog.
package announce
