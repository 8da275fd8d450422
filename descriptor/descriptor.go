package descriptor

import "encoding/hex"

// FileIDLength is the byte length of a file identifier: a SHA-1 digest.
const FileIDLength = 20

// FileID is the content-addressed identity of a file: the SHA-1 of its
// byte stream at announcement time. Two descriptors with equal FileID
// denote identical content regardless of path.
type FileID [FileIDLength]byte

// String renders the file id as lowercase hex, for logging and cache keys.
func (id FileID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether id is the zero value (never a valid hash).
func (id FileID) IsZero() bool {
	return id == FileID{}
}

// PeerID names an endpoint on the session bus. The empty PeerID denotes
// broadcast where an operation allows it.
type PeerID string

// Descriptor is the wire-level identity of a file.
//
// file_id is the SHA-1 of the byte stream found at
// SharedPath/RelativePath/Filename at the moment of announcement.
// Equality is structural over all fields.
type Descriptor struct {
	Owner        PeerID
	SharedPath   string
	RelativePath string
	Filename     string
	FileID       FileID
	Size         int64
}

// Equal reports structural equality over every field.
func (d Descriptor) Equal(other Descriptor) bool {
	return d.Owner == other.Owner &&
		d.SharedPath == other.SharedPath &&
		d.RelativePath == other.RelativePath &&
		d.Filename == other.Filename &&
		d.FileID == other.FileID &&
		d.Size == other.Size
}

// FileStatus is the per-transfer progress record held by both sides of a
// transfer. It is created when a transfer begins and destroyed on
// completion, cancel-by-self, or session reset; it is mutated only by its
// owning manager.
type FileStatus struct {
	FileID            FileID
	Peer              PeerID
	StartByte         int64
	Length            int64
	BytesTransferred  int64
	ChunkLength       int32
	SaveDirectory     string // receiver-only
	SaveFilename      string // receiver-only
}

// ProgressState is the three-state external view of a FileStatus.
type ProgressState uint8

const (
	// ProgressInProgress means bytes are actively flowing.
	ProgressInProgress ProgressState = iota
	// ProgressPaused means the transfer was paused by the receiver.
	ProgressPaused
	// ProgressTimedOut means an in-flight transfer has produced or received
	// no chunk for longer than its manager's stall timeout.
	ProgressTimedOut
)

// String implements fmt.Stringer for log output.
func (s ProgressState) String() string {
	switch s {
	case ProgressInProgress:
		return "in_progress"
	case ProgressPaused:
		return "paused"
	case ProgressTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// ProgressDescriptor is the external view of a FileStatus exposed to host
// applications, carrying the three-state summary instead of internal
// bookkeeping fields.
type ProgressDescriptor struct {
	FileID           FileID
	Peer             PeerID
	BytesTransferred int64
	Length           int64
	State            ProgressState
}

// ToProgress converts a FileStatus into its external ProgressDescriptor view.
func ToProgress(fs FileStatus, state ProgressState) ProgressDescriptor {
	return ProgressDescriptor{
		FileID:           fs.FileID,
		Peer:             fs.Peer,
		BytesTransferred: fs.BytesTransferred,
		Length:           fs.Length,
		State:            state,
	}
}
