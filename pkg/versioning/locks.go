package versioning

import "fmt"

// LockDocument claims the document for user and returns the token that
// CommitChanges, MergeBranches and ResolveConflict require while the
// lock is held. A locked document cannot be locked again, even by its
// holder.
func (s *Store) LockDocument(doc Document, user User) (LockToken, error) {
	if lock, ok := s.locks[doc.ID()]; ok {
		return "", fmt.Errorf("%w by user %s", ErrLocked, lock.UserID)
	}

	token := s.newToken()
	s.locks[doc.ID()] = Lock{
		UserID:     user.ID(),
		Token:      token,
		AcquiredAt: s.now(),
	}

	doc.AddHistoryEntry(fmt.Sprintf("Document locked for editing by %s", user.DisplayName()))
	return token, nil
}

// UnlockDocument releases a lock held by user
func (s *Store) UnlockDocument(doc Document, user User) error {
	lock, ok := s.locks[doc.ID()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLocked, doc.ID())
	}
	if lock.UserID != user.ID() {
		return fmt.Errorf("%w: held by %s", ErrNotLockHolder, lock.UserID)
	}

	delete(s.locks, doc.ID())

	doc.AddHistoryEntry(fmt.Sprintf("Document unlocked by %s", user.DisplayName()))
	return nil
}

// IsDocumentLocked reports whether any user holds the document lock
func (s *Store) IsDocumentLocked(doc Document) bool {
	_, ok := s.locks[doc.ID()]
	return ok
}

// LockHolder returns the user ID holding the document lock
func (s *Store) LockHolder(doc Document) (string, bool) {
	lock, ok := s.locks[doc.ID()]
	return lock.UserID, ok
}

// checkLock rejects a mutation on a locked document unless token is the
// one issued to the current holder.
func (s *Store) checkLock(docID string, token LockToken) error {
	lock, ok := s.locks[docID]
	if !ok || lock.Token == token {
		return nil
	}
	return fmt.Errorf("%w by user %s", ErrLocked, lock.UserID)
}
