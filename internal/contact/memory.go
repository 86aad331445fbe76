package contact

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps contacts entirely in process memory. It mirrors
// PostgresStore behavior closely enough for tests: IDs are UUIDs, UIDs
// are unique, etags change on every write, and transactions are
// snapshot-isolated with working savepoints.
type MemoryStore struct {
	mu       sync.RWMutex
	contacts map[string]Contact
	now      func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contacts: make(map[string]Contact),
		now:      time.Now,
	}
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedContacts(s.contacts), nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contacts[id]
	if !ok {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) Create(ctx context.Context, fields Fields) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createInMap(s.contacts, fields, s.now())
}

func (s *MemoryStore) Update(ctx context.Context, id string, fields Fields) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateInMap(s.contacts, id, fields, s.now())
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[id]; !ok {
		return ErrNotFound
	}
	delete(s.contacts, id)
	return nil
}

// Begin snapshots the current state. Writes stage against the snapshot
// and become visible only when Commit replaces the store's state.
func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	s.mu.RLock()
	staged := maps.Clone(s.contacts)
	s.mu.RUnlock()

	return &memTx{store: s, staged: staged}, nil
}

// memTx is an in-memory transaction. Savepoints are full copies of the
// staged state, so RollbackTo restores exactly the view at Savepoint time.
type memTx struct {
	store  *MemoryStore
	mu     sync.Mutex
	staged map[string]Contact
	saves  []memSavepoint
	done   bool
}

type memSavepoint struct {
	name  string
	state map[string]Contact
}

func (t *memTx) GetByID(ctx context.Context, id string) (Contact, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return Contact{}, errTxClosed
	}
	c, ok := t.staged[id]
	if !ok {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

func (t *memTx) Create(ctx context.Context, fields Fields) (Contact, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return Contact{}, errTxClosed
	}
	return createInMap(t.staged, fields, t.store.now())
}

func (t *memTx) Update(ctx context.Context, id string, fields Fields) (Contact, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return Contact{}, errTxClosed
	}
	return updateInMap(t.staged, id, fields, t.store.now())
}

func (t *memTx) Savepoint(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return errTxClosed
	}
	t.saves = append(t.saves, memSavepoint{name: name, state: maps.Clone(t.staged)})
	return nil
}

func (t *memTx) RollbackTo(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return errTxClosed
	}
	for i := len(t.saves) - 1; i >= 0; i-- {
		if t.saves[i].name != name {
			continue
		}
		t.staged = maps.Clone(t.saves[i].state)
		// Later savepoints are gone; the named one survives, as in SQL.
		t.saves = t.saves[:i+1]
		return nil
	}
	return fmt.Errorf("rollback to savepoint %s: no such savepoint", name)
}

func (t *memTx) Release(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return errTxClosed
	}
	for i := len(t.saves) - 1; i >= 0; i-- {
		if t.saves[i].name != name {
			continue
		}
		t.saves = t.saves[:i]
		return nil
	}
	return fmt.Errorf("release savepoint %s: no such savepoint", name)
}

func (t *memTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return errTxClosed
	}
	t.done = true

	t.store.mu.Lock()
	t.store.contacts = t.staged
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Rollback after Commit or Rollback is a no-op, matching pgxTx.
	t.done = true
	return nil
}

var errTxClosed = errors.New("transaction already closed")

func sortedContacts(m map[string]Contact) []Contact {
	contacts := make([]Contact, 0, len(m))
	for _, c := range m {
		contacts = append(contacts, c)
	}
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].ID < contacts[j].ID })
	return contacts
}

func createInMap(m map[string]Contact, fields Fields, now time.Time) (Contact, error) {
	uid := fields.UID
	if uid == "" {
		uid = uuid.NewString()
	}
	for _, existing := range m {
		if existing.UID == uid {
			return Contact{}, errors.New("create contact: a contact with this identifier already exists")
		}
	}

	c := Contact{
		ID:           uuid.NewString(),
		UID:          uid,
		FullName:     fields.FullName,
		FirstName:    fields.FirstName,
		LastName:     fields.LastName,
		Email:        fields.Email,
		Phone:        fields.Phone,
		Organization: fields.Organization,
		JobTitle:     fields.JobTitle,
		Address:      fields.Address,
		Notes:        fields.Notes,
		CardData:     fields.CardData,
		Etag:         uuid.NewString(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m[c.ID] = c
	return c, nil
}

func updateInMap(m map[string]Contact, id string, fields Fields, now time.Time) (Contact, error) {
	c, ok := m[id]
	if !ok {
		return Contact{}, ErrNotFound
	}

	if fields.UID != "" && fields.UID != c.UID {
		for otherID, other := range m {
			if otherID != id && other.UID == fields.UID {
				return Contact{}, errors.New("update contact: a contact with this identifier already exists")
			}
		}
		c.UID = fields.UID
	}

	c.FullName = fields.FullName
	c.FirstName = fields.FirstName
	c.LastName = fields.LastName
	c.Email = fields.Email
	c.Phone = fields.Phone
	c.Organization = fields.Organization
	c.JobTitle = fields.JobTitle
	c.Address = fields.Address
	c.Notes = fields.Notes
	c.CardData = fields.CardData
	c.Etag = uuid.NewString()
	c.UpdatedAt = now

	m[id] = c
	return c, nil
}
