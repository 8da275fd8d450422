// Package fsadapter implements the File System Adapter: it materializes
// Descriptors from paths by hashing their content with SHA-1, streams
// chunks for outbound transfers, appends received chunks for inbound
// ones, and maintains an optional on-disk cache mapping a path to its
// last known (mtime, size, sha1) to avoid rehashing unchanged files.
//
// This is the one package in the core that touches the real platform
// file system directly, for hashing and chunked I/O.
package fsadapter
