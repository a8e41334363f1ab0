package library

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errDiskFull = errors.New("disk full")

// failingStore wraps a MemoryStore and fails every Save while failing is set.
type failingStore struct {
	*MemoryStore
	failing bool
}

func (f *failingStore) Save(ctx context.Context, snap *Snapshot) error {
	if f.failing {
		return errDiskFull
	}
	return f.MemoryStore.Save(ctx, snap)
}

// stepClock returns a clock that advances one minute per call.
func stepClock() func() time.Time {
	t := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func testOptions() []Option {
	return []Option{WithHashCost(bcrypt.MinCost), WithClock(stepClock())}
}

func newManagerWithStore(t *testing.T, store Store, opts ...Option) *LibraryManager {
	t.Helper()
	mgr, err := NewLibraryManager(context.Background(), store, append(testOptions(), opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func newManager(t *testing.T, opts ...Option) *LibraryManager {
	t.Helper()
	return newManagerWithStore(t, NewMemoryStore(nil), opts...)
}

func mustAddBook(t *testing.T, mgr *LibraryManager, id, category string) {
	t.Helper()
	_, err := mgr.Catalog.Add(context.Background(), id, "Title "+id, "Author", category)
	require.NoError(t, err)
}

func mustRegister(t *testing.T, mgr *LibraryManager, id string) {
	t.Helper()
	_, err := mgr.Members.Register(context.Background(), id, "Member "+id, "secret-"+id)
	require.NoError(t, err)
}

func mustBorrow(t *testing.T, mgr *LibraryManager, userID, bookID string) {
	t.Helper()
	_, err := mgr.Circulation.Borrow(context.Background(), userID, bookID)
	require.NoError(t, err)
}

func mustReturn(t *testing.T, mgr *LibraryManager, userID, bookID string) {
	t.Helper()
	_, err := mgr.Circulation.Return(context.Background(), userID, bookID)
	require.NoError(t, err)
}

func bookIDs(books []Book) []string {
	ids := make([]string, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	return ids
}

func TestOpenRejectsInconsistentStore(t *testing.T) {
	seed := &Snapshot{
		Books: []Book{{ID: "B1", Title: "T", Available: false}},
	}
	_, err := NewLibraryManager(context.Background(), NewMemoryStore(seed), testOptions()...)
	require.ErrorIs(t, err, ErrPersistence)
	require.Contains(t, err.Error(), "disagrees with ledger")
}

func TestOpenLoadsExistingState(t *testing.T) {
	store := NewMemoryStore(nil)
	first := newManagerWithStore(t, store)
	mustAddBook(t, first, "B1", "Fiction")
	mustRegister(t, first, "U1")
	mustBorrow(t, first, "U1", "B1")

	second := newManagerWithStore(t, store)
	require.Equal(t, first.Snapshot(), second.Snapshot())
	require.NoError(t, second.Verify())
}

func TestSnapshotIsACopy(t *testing.T) {
	mgr := newManager(t)
	mustAddBook(t, mgr, "B1", "Fiction")
	mustRegister(t, mgr, "U1")
	mustBorrow(t, mgr, "U1", "B1")

	snap := mgr.Snapshot()
	snap.Books[0].Available = true
	snap.Users[0].BorrowedBooks[0] = "other"
	snap.Ledger[0].ReturnedAt = &snap.Ledger[0].BorrowedAt

	require.NoError(t, mgr.Verify())
	book, err := mgr.Catalog.Lookup("B1")
	require.NoError(t, err)
	require.False(t, book.Available)
}
