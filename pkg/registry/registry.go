// ABOUTME: Document lifecycle owner on top of the version store
// ABOUTME: Registers users, creates documents and applies edits

package registry

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/nainya/versionstore/pkg/versioning"
)

const maxNameLength = 256

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrDocumentNotFound = errors.New("document not found")
)

// Registry holds users and documents and starts version tracking for
// every document it creates. Like the store, it is not safe for
// concurrent use.
type Registry struct {
	store     *versioning.Store
	users     map[string]*User
	documents map[string]*Document
	order     []string

	now   func() time.Time
	newID func() string
}

// Option configures a Registry
type Option func(*Registry)

// WithClock overrides the time source for documents and history entries
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithIDSource overrides user and document ID generation
func WithIDSource(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// New creates a registry backed by store
func New(store *versioning.Store, opts ...Option) *Registry {
	r := &Registry{
		store:     store,
		users:     make(map[string]*User),
		documents: make(map[string]*Document),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the backing version store
func (r *Registry) Store() *versioning.Store {
	return r.store
}

// RegisterUser adds a user with the given display name
func (r *Registry) RegisterUser(name string) (*User, error) {
	if err := validation.Validate(name,
		validation.Required,
		validation.RuneLength(1, maxNameLength),
	); err != nil {
		return nil, fmt.Errorf("invalid user name: %w", err)
	}

	u := &User{id: r.newID(), name: name}
	r.users[u.id] = u
	return u, nil
}

// User looks up a registered user
func (r *Registry) User(id string) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return u, nil
}

// CreateDocument creates a document authored by authorID and
// initializes its version history.
func (r *Registry) CreateDocument(title, content, authorID string) (*Document, error) {
	if err := validation.Validate(title,
		validation.Required,
		validation.RuneLength(1, maxNameLength),
	); err != nil {
		return nil, fmt.Errorf("invalid title: %w", err)
	}

	author, err := r.User(authorID)
	if err != nil {
		return nil, err
	}

	now := r.now()
	doc := &Document{
		id:         r.newID(),
		title:      title,
		content:    content,
		author:     author,
		createdAt:  now,
		modifiedAt: now,
		version:    1,
		now:        r.now,
	}
	doc.AddHistoryEntry("Document created.")

	r.documents[doc.id] = doc
	r.order = append(r.order, doc.id)
	r.store.Initialize(doc)
	return doc, nil
}

// Document looks up a document
func (r *Registry) Document(id string) (*Document, error) {
	doc, ok := r.documents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return doc, nil
}

// Documents returns all documents in creation order
func (r *Registry) Documents() []*Document {
	out := make([]*Document, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.documents[id])
	}
	return out
}

// EditContent replaces a document's working content. The change is not
// versioned until it is committed through the store.
func (r *Registry) EditContent(docID, content, editorID string) (*Document, error) {
	doc, err := r.Document(docID)
	if err != nil {
		return nil, err
	}
	editor, err := r.User(editorID)
	if err != nil {
		return nil, err
	}

	doc.content = content
	doc.modifiedAt = r.now()
	doc.AddHistoryEntry(fmt.Sprintf("Content updated by %s.", editor.DisplayName()))
	return doc, nil
}
