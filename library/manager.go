package library

import (
	"context"
	"fmt"
	"time"
)

// LibraryManager is a thin façade that wires every component to one
// shared Library handle, keeping CLI code simple.
type LibraryManager struct {
	lib *Library

	Catalog     *Catalog
	Members     *Membership
	Circulation *Circulation
	Recommender *Recommender
}

// NewLibraryManager loads the library from store and builds its components.
func NewLibraryManager(ctx context.Context, store Store, opts ...Option) (*LibraryManager, error) {
	lib, err := Open(ctx, store, opts...)
	if err != nil {
		return nil, err
	}
	return &LibraryManager{
		lib:         lib,
		Catalog:     NewCatalog(lib),
		Members:     NewMembership(lib),
		Circulation: NewCirculation(lib),
		Recommender: NewRecommender(lib),
	}, nil
}

// Close closes the underlying store.
func (lm *LibraryManager) Close() error { return lm.lib.Close() }

// Snapshot returns a read-only copy of all three tables.
func (lm *LibraryManager) Snapshot() *Snapshot { return lm.lib.Snapshot() }

// Verify checks the availability and ownership invariants.
func (lm *LibraryManager) Verify() error { return lm.lib.Verify() }

// ------------------ Auth gate ------------------

// AuthenticateMember wraps Membership.Authenticate for shells that want
// an error to print.
func (lm *LibraryManager) AuthenticateMember(userID, credential string) error {
	if !lm.Members.Authenticate(userID, credential) {
		return ErrInvalidCredentials
	}
	return nil
}

// ------------------ Circulation ------------------

// CheckoutBook borrows bookID for userID with a due date loanPeriod from
// now. A zero loanPeriod records no due date.
func (lm *LibraryManager) CheckoutBook(ctx context.Context, userID, bookID string, loanPeriod time.Duration) (BorrowRecord, error) {
	var opts []BorrowOption
	if loanPeriod > 0 {
		opts = append(opts, WithDueDate(lm.lib.now().Add(loanPeriod)))
	}
	return lm.Circulation.Borrow(ctx, userID, bookID, opts...)
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b Book) string {
	avail := "Yes"
	if !b.Available {
		avail = "No"
	}
	return fmt.Sprintf("%-8s %-30s %-22s %-15s %-9s",
		b.ID, truncateN(b.Title, 30), truncateN(b.Author, 22), truncateN(b.Category, 15), avail)
}

func truncateN(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
