package library

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Library is the single persistence handle shared by the catalog,
// membership, circulation and recommendation components. It owns the
// in-memory model and serializes every operation behind one lock.
type Library struct {
	mu    sync.Mutex
	store Store
	state *Snapshot

	now      func() time.Time
	newID    func() string
	shuffle  func(n int, swap func(i, j int))
	hashCost int
	log      logrus.FieldLogger
}

// Option configures a Library.
type Option func(*Library)

// WithClock overrides the time source used to stamp ledger records.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Library) { l.log = log }
}

// WithIDGenerator overrides how ledger record ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(l *Library) { l.newID = fn }
}

// WithHashCost sets the bcrypt cost used for member credentials.
func WithHashCost(cost int) Option {
	return func(l *Library) { l.hashCost = cost }
}

// WithRand makes random recommendations reproducible.
func WithRand(r *rand.Rand) Option {
	return func(l *Library) { l.shuffle = r.Shuffle }
}

// Open loads the persisted state from store and verifies it.
func Open(ctx context.Context, store Store, opts ...Option) (*Library, error) {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	l := &Library{
		store:    store,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
		shuffle:  rand.Shuffle,
		hashCost: bcrypt.DefaultCost,
		log:      discard,
	}
	for _, opt := range opts {
		opt(l)
	}

	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load library: %w: %w", ErrPersistence, err)
	}
	if snap == nil {
		snap = &Snapshot{}
	}
	if err := snap.verify(); err != nil {
		return nil, fmt.Errorf("load library: %w: inconsistent state: %w", ErrPersistence, err)
	}
	l.state = snap
	l.log.WithFields(logrus.Fields{
		"books":  len(snap.Books),
		"users":  len(snap.Users),
		"ledger": len(snap.Ledger),
	}).Info("library loaded")
	return l, nil
}

// Close closes the underlying store.
func (l *Library) Close() error { return l.store.Close() }

// Snapshot returns a deep copy of the current state for read-only use.
func (l *Library) Snapshot() *Snapshot {
	var out *Snapshot
	l.view(func(s *Snapshot) { out = s.Clone() })
	return out
}

// Verify checks every cross-table invariant against the current state.
func (l *Library) Verify() error {
	var err error
	l.view(func(s *Snapshot) { err = s.verify() })
	return err
}

func (l *Library) view(fn func(s *Snapshot)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.state)
}

// commit applies mutate to a working copy, saves the copy and only then
// swaps it in. Any failure leaves the current state untouched.
func (l *Library) commit(ctx context.Context, op string, mutate func(s *Snapshot) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state.Clone()
	if err := mutate(next); err != nil {
		return err
	}
	if err := l.store.Save(ctx, next); err != nil {
		l.log.WithError(err).WithField("op", op).Error("save failed, change rolled back")
		return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
	}
	l.state = next
	return nil
}

func (s *Snapshot) bookIndex(id string) int {
	for i := range s.Books {
		if s.Books[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) userIndex(id string) int {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return i
		}
	}
	return -1
}

// openRecordIndex returns the open record for (userID, bookID), or -1.
func (s *Snapshot) openRecordIndex(userID, bookID string) int {
	for i := range s.Ledger {
		r := &s.Ledger[i]
		if r.Open() && r.UserID == userID && r.BookID == bookID {
			return i
		}
	}
	return -1
}

func (s *Snapshot) verify() error {
	books := make(map[string]*Book, len(s.Books))
	for i := range s.Books {
		b := &s.Books[i]
		if _, dup := books[b.ID]; dup {
			return fmt.Errorf("book %q: %w", b.ID, ErrDuplicateKey)
		}
		books[b.ID] = b
	}
	users := make(map[string]*User, len(s.Users))
	for i := range s.Users {
		u := &s.Users[i]
		if _, dup := users[u.ID]; dup {
			return fmt.Errorf("user %q: %w", u.ID, ErrDuplicateKey)
		}
		users[u.ID] = u
	}

	open := make(map[string]string) // book id -> holder
	for _, r := range s.Ledger {
		if !r.Open() {
			continue
		}
		if _, ok := books[r.BookID]; !ok {
			return fmt.Errorf("open record %s references missing book %q", r.ID, r.BookID)
		}
		u, ok := users[r.UserID]
		if !ok {
			return fmt.Errorf("open record %s references missing user %q", r.ID, r.UserID)
		}
		if holder, dup := open[r.BookID]; dup {
			return fmt.Errorf("book %q has open records for %q and %q", r.BookID, holder, r.UserID)
		}
		open[r.BookID] = r.UserID
		if !u.Holds(r.BookID) {
			return fmt.Errorf("user %q has an open record for %q but does not hold it", r.UserID, r.BookID)
		}
	}

	for id, b := range books {
		_, lent := open[id]
		if b.Available == lent {
			return fmt.Errorf("book %q available=%t disagrees with ledger", id, b.Available)
		}
	}
	for id, u := range users {
		seen := make(map[string]bool, len(u.BorrowedBooks))
		for _, bookID := range u.BorrowedBooks {
			if seen[bookID] {
				return fmt.Errorf("user %q holds %q twice", id, bookID)
			}
			seen[bookID] = true
			if open[bookID] != id {
				return fmt.Errorf("user %q holds %q without an open record", id, bookID)
			}
		}
	}
	return nil
}
