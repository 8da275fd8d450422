// Package descriptor defines the wire-level and in-memory data types shared
// across the file transfer core: the File Descriptor (a file's announced
// identity), the File Status (per-transfer progress), the externally
// visible Progress Descriptor, and the stable StatusCode ordinals returned
// by every public operation.
//
// Nothing in this package talks to a file system, a bus, or a clock; it is
// the vocabulary the other packages share.
package descriptor
