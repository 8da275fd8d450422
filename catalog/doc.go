// Package catalog implements the Catalog, the core's only shared mutable
// structure: in-memory indexes of announced and offered files, local and
// remote, keyed by FileID and by peer. Every map mutation here must be
// atomic with respect to readers; a single mutex protects the whole
// structure, the same coarse-grained locking a friend request manager
// uses for its own shared tables.
package catalog
