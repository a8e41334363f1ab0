package library

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSnapshot() *Snapshot {
	borrowed := time.Date(2024, time.May, 2, 10, 30, 0, 0, time.UTC)
	due := borrowed.Add(14 * 24 * time.Hour)
	returned := borrowed.Add(48 * time.Hour)
	return &Snapshot{
		Books: []Book{
			{ID: "B2", Title: "Animal Farm", Author: "George Orwell", Category: "Fiction", Available: false},
			{ID: "B1", Title: "The Art of War", Author: "Sun Tzu", Category: "History", Available: true},
		},
		Users: []User{
			{ID: "U1", Name: "Alice", CredentialHash: "hash-a", BorrowedBooks: []string{"B2"}},
			{ID: "U2", Name: "Bob", CredentialHash: "hash-b", BorrowedBooks: []string{}},
		},
		Ledger: []BorrowRecord{
			{ID: "r1", UserID: "U2", BookID: "B1", BorrowedAt: borrowed, ReturnedAt: &returned},
			{ID: "r2", UserID: "U1", BookID: "B2", BorrowedAt: borrowed.Add(time.Hour), DueAt: &due},
		},
	}
}

func assertSameSnapshot(t *testing.T, want, got *Snapshot) {
	t.Helper()
	assert.Equal(t, want.Books, got.Books)
	assert.Equal(t, want.Users, got.Users)
	require.Len(t, got.Ledger, len(want.Ledger))
	for i := range want.Ledger {
		w, g := want.Ledger[i], got.Ledger[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.UserID, g.UserID)
		assert.Equal(t, w.BookID, g.BookID)
		assert.True(t, w.BorrowedAt.Equal(g.BorrowedAt), "borrowed_at of %s", w.ID)
		assertSameTime(t, w.DueAt, g.DueAt)
		assertSameTime(t, w.ReturnedAt, g.ReturnedAt)
	}
}

func assertSameTime(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "want %v, got %v", want, got)
}

func TestDatabaseEmptyLoad(t *testing.T) {
	db := tempDB(t)
	snap, err := db.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Books)
	assert.Empty(t, snap.Users)
	assert.Empty(t, snap.Ledger)
}

func TestDatabaseSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	want := sampleSnapshot()

	require.NoError(t, db.Save(ctx, want))
	got, err := db.Load(ctx)
	require.NoError(t, err)
	assertSameSnapshot(t, want, got)
	require.NoError(t, got.verify())

	// Last write wins: a smaller snapshot replaces everything.
	smaller := &Snapshot{Books: []Book{{ID: "B9", Title: "Solo", Available: true}}}
	require.NoError(t, db.Save(ctx, smaller))
	got, err = db.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, smaller.Books, got.Books)
	assert.Empty(t, got.Users)
	assert.Empty(t, got.Ledger)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	first, err := NewDatabase(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(context.Background(), sampleSnapshot()))
	require.NoError(t, first.Close())

	second, err := NewDatabase(path)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	got, err := second.Load(context.Background())
	require.NoError(t, err)
	assertSameSnapshot(t, sampleSnapshot(), got)
}

func TestCheckoutFlowSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "lib.db")

	store, err := OpenStore(DriverSQLite, path)
	require.NoError(t, err)
	mgr, err := NewLibraryManager(ctx, store, testOptions()...)
	require.NoError(t, err)
	mustAddBook(t, mgr, "B1", "Fiction")
	mustAddBook(t, mgr, "B2", "Fiction")
	mustRegister(t, mgr, "U1")
	mustBorrow(t, mgr, "U1", "B1")
	mustBorrow(t, mgr, "U1", "B2")
	mustReturn(t, mgr, "U1", "B1")
	want := mgr.Snapshot()
	require.NoError(t, mgr.Close())

	store, err = OpenStore(DriverSQLite, path)
	require.NoError(t, err)
	reopened := newManagerWithStore(t, store)
	require.NoError(t, reopened.Verify())
	assertSameSnapshot(t, want, reopened.Snapshot())
	assert.True(t, reopened.Members.Authenticate("U1", "secret-U1"))

	// The reopened store keeps accepting transitions.
	mustReturn(t, reopened, "U1", "B2")
	assert.Len(t, reopened.Catalog.ListAvailable(), 2)
}

func TestDatabaseSaveRollsBackOnError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_borrowed").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	db := newDatabaseFromDB(sqlDB)
	err = db.Save(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear user_borrowed")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseLoadReportsQueryErrors(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery("SELECT id,title,author,category,available FROM books").
		WillReturnError(errors.New("no such table: books"))

	db := newDatabaseFromDB(sqlDB)
	_, err = db.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load books")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManagerOverFailingDatabaseKeepsMemoryState(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	mgr := newManager(t)
	mustAddBook(t, mgr, "B1", "Fiction")
	// Swap the store for one whose next write fails.
	mgr.lib.store = newDatabaseFromDB(sqlDB)

	_, err = mgr.Catalog.Add(context.Background(), "B2", "Second", "Author", "Fiction")
	require.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Equal(t, []string{"B1"}, bookIDs(mgr.Catalog.List()))
	require.NoError(t, mock.ExpectationsWereMet())
}
