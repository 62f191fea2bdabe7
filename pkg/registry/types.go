// ABOUTME: In-memory user and document handles
// ABOUTME: Document implements the version store's collaborator contract

package registry

import (
	"time"

	"github.com/nainya/versionstore/pkg/versioning"
)

// User is a registered author or editor
type User struct {
	id   string
	name string
}

func (u *User) ID() string          { return u.id }
func (u *User) DisplayName() string { return u.name }

// HistoryEntry is one audit line on a document
type HistoryEntry struct {
	Message   string
	Timestamp time.Time
}

// Document is a registry-owned document whose content and version are
// rewritten by the version store.
type Document struct {
	id         string
	title      string
	content    string
	author     *User
	createdAt  time.Time
	modifiedAt time.Time
	version    int
	history    []HistoryEntry

	now func() time.Time
}

func (d *Document) ID() string                  { return d.id }
func (d *Document) Title() string               { return d.title }
func (d *Document) Content() string             { return d.content }
func (d *Document) SetContent(content string)   { d.content = content }
func (d *Document) Version() int                { return d.version }
func (d *Document) SetVersion(version int)      { d.version = version }
func (d *Document) Author() versioning.User     { return d.author }
func (d *Document) CreatedAt() time.Time        { return d.createdAt }
func (d *Document) ModifiedAt() time.Time       { return d.modifiedAt }
func (d *Document) AddHistoryEntry(msg string) {
	d.history = append(d.history, HistoryEntry{Message: msg, Timestamp: d.now()})
}

// History returns a copy of the audit log, oldest first
func (d *Document) History() []HistoryEntry {
	out := make([]HistoryEntry, len(d.history))
	copy(out, d.history)
	return out
}
