package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Circulation is the only writer of book availability and of the
// borrowed sets. Each transition updates the book, the user and the
// ledger as one unit.
type Circulation struct {
	lib *Library
}

// NewCirculation returns the circulation engine of lib.
func NewCirculation(lib *Library) *Circulation { return &Circulation{lib: lib} }

type borrowOptions struct {
	dueAt *time.Time
}

// BorrowOption customizes a borrow.
type BorrowOption func(*borrowOptions)

// WithDueDate attaches a due date to the new ledger record. The fine
// policy that reads it lives outside the library.
func WithDueDate(due time.Time) BorrowOption {
	return func(o *borrowOptions) {
		d := due.UTC()
		o.dueAt = &d
	}
}

// Borrow lends bookID to userID.
func (c *Circulation) Borrow(ctx context.Context, userID, bookID string, opts ...BorrowOption) (BorrowRecord, error) {
	var o borrowOptions
	for _, opt := range opts {
		opt(&o)
	}

	var rec BorrowRecord
	err := c.lib.commit(ctx, "borrow", func(s *Snapshot) error {
		ui := s.userIndex(userID)
		if ui < 0 {
			return fmt.Errorf("user %q: %w", userID, ErrNotFound)
		}
		bi := s.bookIndex(bookID)
		if bi < 0 {
			return fmt.Errorf("book %q: %w", bookID, ErrNotFound)
		}
		if !s.Books[bi].Available {
			if s.Users[ui].Holds(bookID) {
				return fmt.Errorf("book %q is already borrowed by you: %w", bookID, ErrBookUnavailable)
			}
			return fmt.Errorf("book %q is borrowed by another member: %w", bookID, ErrBookUnavailable)
		}

		rec = BorrowRecord{
			ID:         c.lib.newID(),
			UserID:     userID,
			BookID:     bookID,
			BorrowedAt: c.lib.now(),
			DueAt:      cloneTime(o.dueAt),
		}
		s.Books[bi].Available = false
		s.Users[ui].BorrowedBooks = append(s.Users[ui].BorrowedBooks, bookID)
		s.Ledger = append(s.Ledger, rec)
		return nil
	})
	fields := logrus.Fields{"user_id": userID, "book_id": bookID}
	if err != nil {
		if !errors.Is(err, ErrPersistence) {
			c.lib.log.WithFields(fields).WithError(err).Debug("borrow rejected")
		}
		return BorrowRecord{}, err
	}
	c.lib.log.WithFields(fields).WithField("record_id", rec.ID).Info("book borrowed")
	return rec, nil
}

// Return closes the open loan of bookID by userID.
func (c *Circulation) Return(ctx context.Context, userID, bookID string) (BorrowRecord, error) {
	var rec BorrowRecord
	err := c.lib.commit(ctx, "return", func(s *Snapshot) error {
		ri := s.openRecordIndex(userID, bookID)
		if ri < 0 {
			for _, r := range s.Ledger {
				if r.UserID == userID && r.BookID == bookID {
					return fmt.Errorf("book %q was already returned by %q: %w", bookID, userID, ErrNoOpenBorrow)
				}
			}
			return fmt.Errorf("book %q was never borrowed by %q: %w", bookID, userID, ErrNoOpenBorrow)
		}
		ui := s.userIndex(userID)
		bi := s.bookIndex(bookID)
		if ui < 0 || bi < 0 {
			return fmt.Errorf("open record %s has no matching user or book: %w", s.Ledger[ri].ID, ErrNotFound)
		}

		now := c.lib.now()
		s.Ledger[ri].ReturnedAt = &now
		s.Users[ui].BorrowedBooks = without(s.Users[ui].BorrowedBooks, bookID)
		s.Books[bi].Available = true
		rec = s.Ledger[ri]
		rec.DueAt = cloneTime(rec.DueAt)
		rec.ReturnedAt = cloneTime(rec.ReturnedAt)
		return nil
	})
	fields := logrus.Fields{"user_id": userID, "book_id": bookID}
	if err != nil {
		if !errors.Is(err, ErrPersistence) {
			c.lib.log.WithFields(fields).WithError(err).Debug("return rejected")
		}
		return BorrowRecord{}, err
	}
	c.lib.log.WithFields(fields).WithField("record_id", rec.ID).Info("book returned")
	return rec, nil
}

// Ledger returns every record in append order.
func (c *Circulation) Ledger() []BorrowRecord {
	return c.records(func(BorrowRecord) bool { return true })
}

// History returns the records of one user in append order.
func (c *Circulation) History(userID string) []BorrowRecord {
	return c.records(func(r BorrowRecord) bool { return r.UserID == userID })
}

// OpenLoans returns the records that have not been returned yet.
func (c *Circulation) OpenLoans() []BorrowRecord {
	return c.records(BorrowRecord.Open)
}

// Overdue returns open records whose due date is before now.
func (c *Circulation) Overdue(now time.Time) []BorrowRecord {
	return c.records(func(r BorrowRecord) bool {
		return r.Open() && r.DueAt != nil && r.DueAt.Before(now)
	})
}

func (c *Circulation) records(keep func(BorrowRecord) bool) []BorrowRecord {
	out := []BorrowRecord{}
	c.lib.view(func(s *Snapshot) {
		for _, r := range s.Ledger {
			if keep(r) {
				r.DueAt = cloneTime(r.DueAt)
				r.ReturnedAt = cloneTime(r.ReturnedAt)
				out = append(out, r)
			}
		}
	})
	return out
}

// CategoryCount is the number of borrows recorded for one category.
type CategoryCount struct {
	Category string
	Count    int
}

// TopCategories ranks categories by how often their books were
// borrowed. Records of books no longer in the catalog are ignored. Ties
// keep the order in which the category first appears in the catalog.
func (c *Circulation) TopCategories(n int) []CategoryCount {
	var out []CategoryCount
	c.lib.view(func(s *Snapshot) {
		category := make(map[string]string, len(s.Books))
		first := make(map[string]int)
		for i, b := range s.Books {
			category[b.ID] = b.Category
			if _, ok := first[b.Category]; !ok {
				first[b.Category] = i
			}
		}
		counts := make(map[string]int)
		for _, r := range s.Ledger {
			if cat, ok := category[r.BookID]; ok {
				counts[cat]++
			}
		}
		for cat, count := range counts {
			out = append(out, CategoryCount{Category: cat, Count: count})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Count != out[j].Count {
				return out[i].Count > out[j].Count
			}
			return first[out[i].Category] < first[out[j].Category]
		})
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	if out == nil {
		out = []CategoryCount{}
	}
	return out
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
