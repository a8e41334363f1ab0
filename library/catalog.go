package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Catalog owns book records. It never flips availability itself.
type Catalog struct {
	lib *Library
}

// NewCatalog returns the catalog view of lib.
func NewCatalog(lib *Library) *Catalog { return &Catalog{lib: lib} }

// Add inserts an available book and persists it.
func (c *Catalog) Add(ctx context.Context, id, title, author, category string) (Book, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Book{}, fmt.Errorf("book id is required: %w", ErrInvalidArgument)
	}
	if strings.TrimSpace(title) == "" {
		return Book{}, fmt.Errorf("book title is required: %w", ErrInvalidArgument)
	}

	book := Book{
		ID:        id,
		Title:     strings.TrimSpace(title),
		Author:    strings.TrimSpace(author),
		Category:  strings.TrimSpace(category),
		Available: true,
	}
	err := c.lib.commit(ctx, "add book", func(s *Snapshot) error {
		if s.bookIndex(id) >= 0 {
			return fmt.Errorf("book %q: %w", id, ErrDuplicateKey)
		}
		s.Books = append(s.Books, book)
		return nil
	})
	if err != nil {
		return Book{}, err
	}
	c.lib.log.WithFields(logrus.Fields{"book_id": id, "category": book.Category}).Info("book added")
	return book, nil
}

// Remove deletes a book that is not currently borrowed. Closed ledger
// records for it are kept.
func (c *Catalog) Remove(ctx context.Context, id string) error {
	err := c.lib.commit(ctx, "remove book", func(s *Snapshot) error {
		i := s.bookIndex(id)
		if i < 0 {
			return fmt.Errorf("book %q: %w", id, ErrNotFound)
		}
		if !s.Books[i].Available {
			return fmt.Errorf("book %q: %w", id, ErrBookBorrowed)
		}
		s.Books = append(s.Books[:i], s.Books[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	c.lib.log.WithField("book_id", id).Info("book removed")
	return nil
}

// Lookup returns the book with the given id.
func (c *Catalog) Lookup(id string) (Book, error) {
	var (
		book  Book
		found bool
	)
	c.lib.view(func(s *Snapshot) {
		if i := s.bookIndex(id); i >= 0 {
			book, found = s.Books[i], true
		}
	})
	if !found {
		return Book{}, fmt.Errorf("book %q: %w", id, ErrNotFound)
	}
	return book, nil
}

// List returns every book in catalog insertion order.
func (c *Catalog) List() []Book {
	return c.filter(func(Book) bool { return true })
}

// ListAvailable returns the books that can be borrowed, in catalog
// insertion order.
func (c *Catalog) ListAvailable() []Book {
	return c.filter(func(b Book) bool { return b.Available })
}

// Search matches q case-insensitively against title, author and category.
func (c *Catalog) Search(q string) []Book {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []Book{}
	}
	return c.filter(func(b Book) bool {
		return strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) ||
			strings.Contains(strings.ToLower(b.Category), q)
	})
}

func (c *Catalog) filter(keep func(Book) bool) []Book {
	books := []Book{}
	c.lib.view(func(s *Snapshot) {
		for _, b := range s.Books {
			if keep(b) {
				books = append(books, b)
			}
		}
	})
	return books
}
