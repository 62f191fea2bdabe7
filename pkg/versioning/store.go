// ABOUTME: Branch/version store with commit, merge and checkout
// ABOUTME: Single-writer bookkeeping keyed by document ID

package versioning

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// documentState holds every branch of one document
type documentState struct {
	branches map[string][]VersionRecord
	order    []string // Branch names in creation order
	active   string
}

func (ds *documentState) tip(branch string) VersionRecord {
	records := ds.branches[branch]
	return records[len(records)-1]
}

func (ds *documentState) appendRecord(branch string, rec VersionRecord) int {
	rec.Version = len(ds.branches[branch]) + 1
	ds.branches[branch] = append(ds.branches[branch], rec)
	return rec.Version
}

// Store tracks branches, versions and advisory locks for documents.
//
// Store performs no internal synchronization. Callers sharing a Store
// between goroutines must serialize access to it.
type Store struct {
	documents map[string]*documentState
	locks     map[string]Lock

	now      func() time.Time
	newToken func() LockToken
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used to stamp records and locks
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTokenSource overrides lock token generation
func WithTokenSource(fn func() LockToken) Option {
	return func(s *Store) { s.newToken = fn }
}

// New creates an empty version store
func New(opts ...Option) *Store {
	s := &Store{
		documents: make(map[string]*documentState),
		locks:     make(map[string]Lock),
		now:       time.Now,
		newToken:  func() LockToken { return LockToken(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize starts version tracking for a document.
// Calling it again for a known document does nothing.
func (s *Store) Initialize(doc Document) {
	if _, ok := s.documents[doc.ID()]; ok {
		return
	}

	s.documents[doc.ID()] = &documentState{
		branches: map[string][]VersionRecord{
			MainBranch: {{
				Version: 1,
				Content: doc.Content(),
				Date:    doc.CreatedAt(),
				Author:  doc.Author(),
			}},
		},
		order:  []string{MainBranch},
		active: MainBranch,
	}
	doc.AddHistoryEntry("Version control system initialized")
}

// IsInitialized reports whether the document has version state
func (s *Store) IsInitialized(doc Document) bool {
	_, ok := s.documents[doc.ID()]
	return ok
}

// CreateBranch forks a new branch from the tip of the active branch.
// The active branch is left unchanged.
func (s *Store) CreateBranch(doc Document, name string, user User) error {
	s.Initialize(doc)
	ds := s.documents[doc.ID()]

	if _, exists := ds.branches[name]; exists {
		return fmt.Errorf("%w: %q", ErrBranchExists, name)
	}

	from := ds.active
	ds.branches[name] = []VersionRecord{{
		Version:       1,
		Content:       ds.tip(from).Content,
		Date:          s.now(),
		Author:        user,
		ParentBranch:  from,
		ParentVersion: len(ds.branches[from]),
	}}
	ds.order = append(ds.order, name)

	doc.AddHistoryEntry(fmt.Sprintf("Branch '%s' created by %s", name, user.DisplayName()))
	return nil
}

// SwitchBranch makes name the active branch and loads its tip into doc
func (s *Store) SwitchBranch(doc Document, name string, user User) error {
	ds, ok := s.documents[doc.ID()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, doc.ID())
	}
	records, ok := ds.branches[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrBranchNotFound, name)
	}

	ds.active = name
	doc.SetContent(records[len(records)-1].Content)
	doc.SetVersion(len(records))

	doc.AddHistoryEntry(fmt.Sprintf("Switched to branch '%s' by %s", name, user.DisplayName()))
	return nil
}

// CommitChanges appends the document's current content to the active
// branch and returns the new version number. ErrNoChange is returned when
// the content matches the branch tip.
func (s *Store) CommitChanges(doc Document, user User, description string, token LockToken) (int, error) {
	s.Initialize(doc)
	if err := s.checkLock(doc.ID(), token); err != nil {
		return 0, err
	}

	ds := s.documents[doc.ID()]
	branch := ds.active
	if ds.tip(branch).Content == doc.Content() {
		return 0, fmt.Errorf("%w on branch %q", ErrNoChange, branch)
	}

	version := ds.appendRecord(branch, VersionRecord{
		Content:     doc.Content(),
		Date:        s.now(),
		Author:      user,
		Description: description,
	})
	doc.SetVersion(version)

	doc.AddHistoryEntry(fmt.Sprintf("Version %d saved in branch '%s' by %s: %s",
		version, branch, user.DisplayName(), description))
	return version, nil
}

// MergeBranches copies the tip of source onto target as a new version.
//
// The source content always wins: no three-way merge or conflict
// detection is attempted, so edits made only on target are replaced in
// the new record. Callers that need to reconcile divergent edits compare
// tips themselves and use ResolveConflict.
//
// Merging identical tips (including a branch into itself) succeeds
// without appending anything.
func (s *Store) MergeBranches(doc Document, source, target string, user User, token LockToken) (string, error) {
	ds, ok := s.documents[doc.ID()]
	if !ok {
		return "Document not initialized for version control",
			fmt.Errorf("%w: %s", ErrDocumentNotFound, doc.ID())
	}
	if _, ok := ds.branches[source]; !ok {
		return "Specified branch does not exist", fmt.Errorf("%w: %q", ErrBranchNotFound, source)
	}
	if _, ok := ds.branches[target]; !ok {
		return "Specified branch does not exist", fmt.Errorf("%w: %q", ErrBranchNotFound, target)
	}
	if err := s.checkLock(doc.ID(), token); err != nil {
		return "Document is locked by another user", err
	}

	src := ds.tip(source)
	if src.Content == ds.tip(target).Content {
		return "Branches are identical, no merge needed", nil
	}

	ds.appendRecord(target, VersionRecord{
		Content:       src.Content,
		Date:          s.now(),
		Author:        user,
		Description:   fmt.Sprintf("Merged from branch '%s'", source),
		MergedFrom:    source,
		MergedVersion: len(ds.branches[source]),
	})

	doc.AddHistoryEntry(fmt.Sprintf("Merged branch '%s' into '%s' by %s", source, target, user.DisplayName()))
	return "Merge completed successfully", nil
}

// ResolveConflict appends manually reconciled content to the active
// branch and loads it into doc. Returns the new version number.
func (s *Store) ResolveConflict(doc Document, content string, user User, description string, token LockToken) (int, error) {
	ds, ok := s.documents[doc.ID()]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrDocumentNotFound, doc.ID())
	}
	if err := s.checkLock(doc.ID(), token); err != nil {
		return 0, err
	}

	version := ds.appendRecord(ds.active, VersionRecord{
		Content:            content,
		Date:               s.now(),
		Author:             user,
		Description:        "Conflict resolution: " + description,
		ConflictResolution: true,
	})
	doc.SetContent(content)
	doc.SetVersion(version)

	doc.AddHistoryEntry(fmt.Sprintf("Conflict resolved by %s: %s", user.DisplayName(), description))
	return version, nil
}

// VersionHistory returns a copy of a branch's records in version order.
// An empty branch name selects the active branch. Unknown documents or
// branches yield nil.
func (s *Store) VersionHistory(doc Document, branch string) []VersionRecord {
	ds, ok := s.documents[doc.ID()]
	if !ok {
		return nil
	}
	if branch == "" {
		branch = ds.active
	}

	records, ok := ds.branches[branch]
	if !ok {
		return nil
	}

	out := make([]VersionRecord, len(records))
	copy(out, records)
	return out
}

// CheckoutVersion loads a historical version of the active branch into
// doc. No version is created and doc's version number is not changed.
func (s *Store) CheckoutVersion(doc Document, version int, user User) error {
	ds, ok := s.documents[doc.ID()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, doc.ID())
	}

	records := ds.branches[ds.active]
	if version <= 0 || version > len(records) {
		return fmt.Errorf("%w: %d not in [1, %d] on branch %q",
			ErrVersionOutOfRange, version, len(records), ds.active)
	}

	doc.SetContent(records[version-1].Content)

	doc.AddHistoryEntry(fmt.Sprintf("Reverted to version %d by %s", version, user.DisplayName()))
	return nil
}

// DocumentBranches lists branch names in creation order
func (s *Store) DocumentBranches(doc Document) []string {
	ds, ok := s.documents[doc.ID()]
	if !ok {
		return nil
	}
	out := make([]string, len(ds.order))
	copy(out, ds.order)
	return out
}

// ActiveBranch returns the checked out branch of a document
func (s *Store) ActiveBranch(doc Document) (string, bool) {
	ds, ok := s.documents[doc.ID()]
	if !ok {
		return "", false
	}
	return ds.active, true
}

// Stats counts documents, branches, versions and held locks
func (s *Store) Stats() Stats {
	st := Stats{Documents: len(s.documents), Locks: len(s.locks)}
	for _, ds := range s.documents {
		st.Branches += len(ds.branches)
		for _, records := range ds.branches {
			st.Versions += len(records)
		}
	}
	return st
}
