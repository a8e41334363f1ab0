package library

import "time"

// Book represents catalog metadata and current availability of a book.
// Available is only ever flipped by the circulation engine.
type Book struct {
	ID        string `json:"id" db:"id"`
	Title     string `json:"title" db:"title"`
	Author    string `json:"author" db:"author"`
	Category  string `json:"category" db:"category"`
	Available bool   `json:"available" db:"available"`
}

// User represents a registered library member.
type User struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	CredentialHash string   `json:"credential_hash"`
	BorrowedBooks  []string `json:"borrowed_books"`
}

// Holds reports whether bookID is in the user's borrowed set.
func (u *User) Holds(bookID string) bool {
	for _, id := range u.BorrowedBooks {
		if id == bookID {
			return true
		}
	}
	return false
}

// BorrowRecord is one append-only ledger entry. A record with a nil
// ReturnedAt is open and represents an active loan.
type BorrowRecord struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	BookID     string     `json:"book_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      *time.Time `json:"due_at,omitempty"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// Open reports whether the loan is still active.
func (r BorrowRecord) Open() bool { return r.ReturnedAt == nil }

// Snapshot represents the complete library state for persistence. Each
// table is kept in insertion order.
type Snapshot struct {
	Books  []Book         `json:"books"`
	Users  []User         `json:"users"`
	Ledger []BorrowRecord `json:"ledger"`
}

// Clone returns a deep copy so callers can mutate it freely.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return &Snapshot{}
	}
	out := &Snapshot{
		Books:  append([]Book(nil), s.Books...),
		Users:  make([]User, len(s.Users)),
		Ledger: make([]BorrowRecord, len(s.Ledger)),
	}
	for i, u := range s.Users {
		u.BorrowedBooks = append([]string{}, u.BorrowedBooks...)
		out.Users[i] = u
	}
	for i, r := range s.Ledger {
		r.DueAt = cloneTime(r.DueAt)
		r.ReturnedAt = cloneTime(r.ReturnedAt)
		out.Ledger[i] = r
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
