// ABOUTME: Branch and version data model for per-document history
// ABOUTME: Defines version records, lock tokens and collaborator contracts

package versioning

import "time"

// MainBranch is created for every document on initialization
const MainBranch = "main"

// User is the attribution handle recorded on versions and history lines
type User interface {
	ID() string
	DisplayName() string
}

// Document is the externally owned handle the store reads and rewrites.
// The store never keeps a Document; it keys its state by ID().
type Document interface {
	ID() string
	Content() string
	SetContent(content string)
	Version() int
	SetVersion(version int)
	Author() User
	CreatedAt() time.Time
	AddHistoryEntry(message string)
}

// VersionRecord is one immutable snapshot within a branch
type VersionRecord struct {
	Version     int       // 1..N within the branch, no gaps
	Content     string    // Full text snapshot
	Date        time.Time // Creation time
	Author      User      // Who produced the snapshot
	Description string    // Optional free text

	// Provenance
	ParentBranch       string // Set on the first record of a branch
	ParentVersion      int
	MergedFrom         string // Set on merge records
	MergedVersion      int
	ConflictResolution bool // Set on manual resolution records
}

// LockToken proves ownership of a document lock
type LockToken string

// Lock records the current holder of a document lock
type Lock struct {
	UserID     string
	Token      LockToken
	AcquiredAt time.Time
}

// Stats summarizes the store contents
type Stats struct {
	Documents int
	Branches  int
	Versions  int
	Locks     int
}
