// ABOUTME: Tests for branch, commit, merge and checkout behaviour
// ABOUTME: Uses in-test document and user fakes

package versioning

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUser struct {
	id, name string
}

func (u *testUser) ID() string          { return u.id }
func (u *testUser) DisplayName() string { return u.name }

type testDocument struct {
	id      string
	content string
	version int
	author  User
	created time.Time
	history []string
}

func (d *testDocument) ID() string               { return d.id }
func (d *testDocument) Content() string          { return d.content }
func (d *testDocument) SetContent(c string)      { d.content = c }
func (d *testDocument) Version() int             { return d.version }
func (d *testDocument) SetVersion(v int)         { d.version = v }
func (d *testDocument) Author() User             { return d.author }
func (d *testDocument) CreatedAt() time.Time     { return d.created }
func (d *testDocument) AddHistoryEntry(m string) { d.history = append(d.history, m) }

func (d *testDocument) lastEntry() string {
	if len(d.history) == 0 {
		return ""
	}
	return d.history[len(d.history)-1]
}

var (
	alice = &testUser{id: "u1", name: "alice"}
	bob   = &testUser{id: "u2", name: "bob"}
)

func newTestDocument(id, content string) *testDocument {
	return &testDocument{
		id:      id,
		content: content,
		version: 1,
		author:  alice,
		created: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	tick := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	n := 0
	return New(
		WithClock(func() time.Time {
			tick = tick.Add(time.Minute)
			return tick
		}),
		WithTokenSource(func() LockToken {
			n++
			return LockToken("token-" + string(rune('0'+n)))
		}),
	)
}

func TestInitialize(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "hello")

	s.Initialize(doc)

	assert.Equal(t, []string{MainBranch}, s.DocumentBranches(doc))
	history := s.VersionHistory(doc, MainBranch)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Version)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, doc.created, history[0].Date)
	assert.Equal(t, alice, history[0].Author)

	active, ok := s.ActiveBranch(doc)
	require.True(t, ok)
	assert.Equal(t, MainBranch, active)
	assert.Equal(t, []string{"Version control system initialized"}, doc.history)
}

func TestInitializeIdempotent(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "hello")

	s.Initialize(doc)
	doc.content = "changed"
	s.Initialize(doc)

	history := s.VersionHistory(doc, "")
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
	assert.Len(t, doc.history, 1)
	assert.Equal(t, Stats{Documents: 1, Branches: 1, Versions: 1}, s.Stats())
}

func TestCreateBranch(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")
	s.Initialize(doc)

	doc.content = "B"
	_, err := s.CommitChanges(doc, alice, "c1", "")
	require.NoError(t, err)

	require.NoError(t, s.CreateBranch(doc, "feat", bob))

	history := s.VersionHistory(doc, "feat")
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Version)
	assert.Equal(t, "B", history[0].Content)
	assert.Equal(t, MainBranch, history[0].ParentBranch)
	assert.Equal(t, 2, history[0].ParentVersion)
	assert.Equal(t, bob, history[0].Author)

	active, _ := s.ActiveBranch(doc)
	assert.Equal(t, MainBranch, active, "branch creation must not switch")
	assert.Equal(t, "Branch 'feat' created by bob", doc.lastEntry())
}

func TestCreateBranchInitializesUnknownDocument(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")

	require.NoError(t, s.CreateBranch(doc, "feat", alice))

	assert.Equal(t, []string{MainBranch, "feat"}, s.DocumentBranches(doc))
}

func TestCreateBranchExisting(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")
	require.NoError(t, s.CreateBranch(doc, "feat", alice))
	entries := len(doc.history)

	err := s.CreateBranch(doc, "feat", alice)
	assert.ErrorIs(t, err, ErrBranchExists)
	assert.Equal(t, OutcomeAlreadyExists, OutcomeOf(err))

	err = s.CreateBranch(doc, MainBranch, alice)
	assert.ErrorIs(t, err, ErrBranchExists)
	assert.Len(t, doc.history, entries)
	assert.Len(t, s.VersionHistory(doc, "feat"), 1)
}

func TestSwitchBranch(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")
	s.Initialize(doc)
	require.NoError(t, s.CreateBranch(doc, "feat", alice))

	require.NoError(t, s.SwitchBranch(doc, "feat", alice))
	doc.content = "feature text"
	_, err := s.CommitChanges(doc, alice, "on feat", "")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.version)

	require.NoError(t, s.SwitchBranch(doc, MainBranch, bob))
	assert.Equal(t, "A", doc.content)
	assert.Equal(t, 1, doc.version)
	assert.Equal(t, "Switched to branch 'main' by bob", doc.lastEntry())

	active, _ := s.ActiveBranch(doc)
	assert.Equal(t, MainBranch, active)
}

func TestSwitchBranchUnknown(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")

	err := s.SwitchBranch(doc, MainBranch, alice)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.False(t, s.IsInitialized(doc))

	s.Initialize(doc)
	err = s.SwitchBranch(doc, "nope", alice)
	assert.ErrorIs(t, err, ErrBranchNotFound)
	assert.Equal(t, OutcomeNotFound, OutcomeOf(err))

	active, _ := s.ActiveBranch(doc)
	assert.Equal(t, MainBranch, active)
}

func TestCommitChanges(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")
	s.Initialize(doc)

	for i, content := range []string{"B", "C", "D"} {
		before := len(s.VersionHistory(doc, ""))
		doc.content = content

		version, err := s.CommitChanges(doc, bob, "edit", "")
		require.NoError(t, err)

		assert.Equal(t, before+1, version)
		assert.Equal(t, i+2, version)
		assert.Equal(t, version, doc.version)
		assert.Len(t, s.VersionHistory(doc, ""), before+1)
	}

	history := s.VersionHistory(doc, MainBranch)
	for i, rec := range history {
		assert.Equal(t, i+1, rec.Version, "versions must be gap free")
	}
	assert.Equal(t, "edit", history[3].Description)
	assert.Equal(t, bob, history[3].Author)
	assert.Equal(t, "Version 4 saved in branch 'main' by bob: edit", doc.lastEntry())
}

func TestCommitChangesInitializesUnknownDocument(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")

	_, err := s.CommitChanges(doc, alice, "nothing", "")

	assert.ErrorIs(t, err, ErrNoChange)
	assert.True(t, s.IsInitialized(doc))
	assert.Len(t, s.VersionHistory(doc, ""), 1)
}

func TestCommitNoChange(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")
	s.Initialize(doc)
	entries := len(doc.history)

	version, err := s.CommitChanges(doc, alice, "noop", "")

	assert.ErrorIs(t, err, ErrNoChange)
	assert.Equal(t, OutcomeNoChange, OutcomeOf(err))
	assert.Zero(t, version)
	assert.Len(t, s.VersionHistory(doc, ""), 1)
	assert.Len(t, doc.history, entries)
	assert.Equal(t, 1, doc.version)
}

func TestMergeBranches(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")
	s.Initialize(doc)
	require.NoError(t, s.CreateBranch(doc, "feat", alice))
	require.NoError(t, s.SwitchBranch(doc, "feat", alice))
	doc.content = "feature"
	_, err := s.CommitChanges(doc, alice, "f1", "")
	require.NoError(t, err)
	require.NoError(t, s.SwitchBranch(doc, MainBranch, alice))

	msg, err := s.MergeBranches(doc, "feat", MainBranch, bob, "")
	require.NoError(t, err)
	assert.Equal(t, "Merge completed successfully", msg)

	history := s.VersionHistory(doc, MainBranch)
	require.Len(t, history, 2)
	merged := history[1]
	assert.Equal(t, 2, merged.Version)
	assert.Equal(t, "feature", merged.Content)
	assert.Equal(t, "feat", merged.MergedFrom)
	assert.Equal(t, 2, merged.MergedVersion)
	assert.Equal(t, "Merged from branch 'feat'", merged.Description)
	assert.Equal(t, bob, merged.Author)
	assert.Equal(t, "Merged branch 'feat' into 'main' by bob", doc.lastEntry())
}

func TestMergeSourceAlwaysWins(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")
	require.NoError(t, s.CreateBranch(doc, "feat", alice))

	doc.content = "main edit"
	_, err := s.CommitChanges(doc, alice, "m", "")
	require.NoError(t, err)

	require.NoError(t, s.SwitchBranch(doc, "feat", alice))
	doc.content = "feat edit"
	_, err = s.CommitChanges(doc, alice, "f", "")
	require.NoError(t, err)

	_, err = s.MergeBranches(doc, "feat", MainBranch, alice, "")
	require.NoError(t, err)

	history := s.VersionHistory(doc, MainBranch)
	assert.Equal(t, "feat edit", history[len(history)-1].Content)
}

func TestMergeIdenticalTips(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")
	require.NoError(t, s.CreateBranch(doc, "feat", alice))
	entries := len(doc.history)

	msg, err := s.MergeBranches(doc, "feat", MainBranch, alice, "")
	require.NoError(t, err)
	assert.Equal(t, "Branches are identical, no merge needed", msg)

	msg, err = s.MergeBranches(doc, MainBranch, MainBranch, alice, "")
	require.NoError(t, err)
	assert.Equal(t, "Branches are identical, no merge needed", msg)

	assert.Len(t, s.VersionHistory(doc, MainBranch), 1)
	assert.Len(t, s.VersionHistory(doc, "feat"), 1)
	assert.Len(t, doc.history, entries)
}

func TestMergeUnknown(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")

	msg, err := s.MergeBranches(doc, "feat", MainBranch, alice, "")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.Equal(t, "Document not initialized for version control", msg)

	s.Initialize(doc)
	msg, err = s.MergeBranches(doc, "feat", MainBranch, alice, "")
	assert.ErrorIs(t, err, ErrBranchNotFound)
	assert.Equal(t, "Specified branch does not exist", msg)

	_, err = s.MergeBranches(doc, MainBranch, "feat", alice, "")
	assert.ErrorIs(t, err, ErrBranchNotFound)
}

func TestResolveConflict(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")

	_, err := s.ResolveConflict(doc, "X", alice, "fix", "")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.Equal(t, "A", doc.content)

	s.Initialize(doc)
	version, err := s.ResolveConflict(doc, "merged by hand", bob, "combine edits", "")
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.Equal(t, "merged by hand", doc.content)
	assert.Equal(t, 2, doc.version)

	rec := s.VersionHistory(doc, "")[1]
	assert.True(t, rec.ConflictResolution)
	assert.Equal(t, "Conflict resolution: combine edits", rec.Description)
	assert.Equal(t, "Conflict resolved by bob: combine edits", doc.lastEntry())
}

func TestVersionHistoryUnknown(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")

	assert.Empty(t, s.VersionHistory(doc, ""))
	assert.Empty(t, s.DocumentBranches(doc))

	s.Initialize(doc)
	assert.Empty(t, s.VersionHistory(doc, "missing"))
}

func TestVersionHistoryIsCopy(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")
	s.Initialize(doc)

	history := s.VersionHistory(doc, "")
	history[0].Content = "tampered"

	assert.Equal(t, "A", s.VersionHistory(doc, "")[0].Content)
}

func TestCheckoutVersion(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")
	s.Initialize(doc)
	doc.content = "B"
	_, err := s.CommitChanges(doc, alice, "c1", "")
	require.NoError(t, err)

	require.NoError(t, s.CheckoutVersion(doc, 1, bob))

	assert.Equal(t, "A", doc.content)
	assert.Equal(t, 2, doc.version, "checkout must not touch the version counter")
	assert.Len(t, s.VersionHistory(doc, ""), 2)
	active, _ := s.ActiveBranch(doc)
	assert.Equal(t, MainBranch, active)
	assert.Equal(t, "Reverted to version 1 by bob", doc.lastEntry())
}

func TestCheckoutVersionOutOfRange(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("d1", "A")

	assert.ErrorIs(t, s.CheckoutVersion(doc, 1, alice), ErrDocumentNotFound)

	s.Initialize(doc)
	for _, v := range []int{-1, 0, 2} {
		err := s.CheckoutVersion(doc, v, alice)
		assert.ErrorIs(t, err, ErrVersionOutOfRange, "version %d", v)
	}
	assert.Equal(t, "A", doc.content)
}

func TestScenarioBranchCommitMerge(t *testing.T) {
	s := setupTestStore(t)
	doc := newTestDocument("D", "A")
	s.Initialize(doc)

	doc.content = "B"
	_, err := s.CommitChanges(doc, alice, "c1", "")
	require.NoError(t, err)

	require.NoError(t, s.CreateBranch(doc, "feat", alice))
	require.NoError(t, s.SwitchBranch(doc, "feat", alice))
	doc.content = "C"
	_, err = s.CommitChanges(doc, alice, "c2", "")
	require.NoError(t, err)

	require.NoError(t, s.SwitchBranch(doc, MainBranch, alice))
	_, err = s.MergeBranches(doc, "feat", MainBranch, alice, "")
	require.NoError(t, err)

	history := s.VersionHistory(doc, MainBranch)
	require.Len(t, history, 3)
	for i, want := range []string{"A", "B", "C"} {
		assert.Equal(t, i+1, history[i].Version)
		assert.Equal(t, want, history[i].Content)
	}
	assert.Equal(t, "feat", history[2].MergedFrom)

	require.NoError(t, s.CheckoutVersion(doc, 1, alice))
	assert.Equal(t, "A", doc.content)
	assert.ElementsMatch(t, []string{"main", "feat"}, s.DocumentBranches(doc))
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want Outcome
	}{
		{nil, OutcomeOK},
		{ErrDocumentNotFound, OutcomeNotFound},
		{ErrBranchNotFound, OutcomeNotFound},
		{ErrVersionOutOfRange, OutcomeNotFound},
		{ErrNotLocked, OutcomeNotFound},
		{ErrBranchExists, OutcomeAlreadyExists},
		{ErrNoChange, OutcomeNoChange},
		{ErrLocked, OutcomeLocked},
		{ErrNotLockHolder, OutcomeLocked},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, OutcomeOf(tt.err), "%v", tt.err)
	}
	assert.Equal(t, OutcomeNoChange, OutcomeOf(errors.Join(errors.New("ctx"), ErrNoChange)))
	assert.Equal(t, "already_exists", OutcomeAlreadyExists.String())
}
