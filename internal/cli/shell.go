package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"smart-library/library"
)

// shell is the interactive session started when no subcommand is given.
type shell struct {
	opts *RootOptions
	mgr  *library.LibraryManager
	p    *prompter
	out  io.Writer
}

func newShell(opts *RootOptions, in io.Reader, out io.Writer) *shell {
	return &shell{opts: opts, mgr: opts.mgr, p: newPrompter(in, out), out: out}
}

func (s *shell) run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Welcome to the Smart Library!")
	fmt.Fprintln(s.out, "Available commands:")
	fmt.Fprintln(s.out, "  Books: add book, remove book, list books, list available, search book")
	fmt.Fprintln(s.out, "  Members: register, history")
	fmt.Fprintln(s.out, "  Circulation: borrow, return")
	fmt.Fprintln(s.out, "  Insights: recommend, top categories")
	fmt.Fprintln(s.out, "  System: exit")

	for {
		fmt.Fprint(s.out, "\n> ")
		if !s.p.sc.Scan() {
			return s.p.sc.Err()
		}
		cmd := strings.TrimSpace(s.p.sc.Text())

		switch cmd {
		case "":
		case "add book":
			s.handleAddBook(ctx)
		case "remove book":
			s.handleRemoveBook(ctx)
		case "list books":
			printBooks(s.out, s.mgr.Catalog.List(), "No books in library.")
		case "list available":
			printBooks(s.out, s.mgr.Catalog.ListAvailable(), "No books available.")
		case "search book":
			s.handleSearchBooks()
		case "register":
			s.handleRegister(ctx)
		case "borrow":
			s.handleBorrow(ctx)
		case "return":
			s.handleReturn(ctx)
		case "recommend":
			s.handleRecommend()
		case "history":
			s.handleHistory()
		case "top categories":
			printTopCategories(s.out, s.mgr.Circulation.TopCategories(library.MaxRecommendations))
		case "exit":
			fmt.Fprintln(s.out, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(s.out, "Unknown command. Type one of the available commands listed above.")
		}
	}
}

func (s *shell) fail(err error) {
	fmt.Fprintln(s.out, describeError(err))
}

func (s *shell) handleAddBook(ctx context.Context) {
	id, ok := s.p.ask("Book ID: ")
	if !ok {
		return
	}
	title, ok := s.p.ask("Title: ")
	if !ok {
		return
	}
	author, ok := s.p.ask("Author: ")
	if !ok {
		return
	}
	category, ok := s.p.ask("Category: ")
	if !ok {
		return
	}

	ctx, cancel := s.opts.opContext(ctx)
	defer cancel()
	book, err := s.mgr.Catalog.Add(ctx, id, title, author, category)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "Added book %s: '%s' by %s\n", book.ID, book.Title, book.Author)
}

func (s *shell) handleRemoveBook(ctx context.Context) {
	id, ok := s.p.ask("Book ID: ")
	if !ok {
		return
	}
	ctx, cancel := s.opts.opContext(ctx)
	defer cancel()
	if err := s.mgr.Catalog.Remove(ctx, id); err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "Removed book %s\n", id)
}

func (s *shell) handleSearchBooks() {
	query, ok := s.p.ask("Query: ")
	if !ok {
		return
	}
	books := s.mgr.Catalog.Search(query)
	if len(books) > 0 {
		fmt.Fprintf(s.out, "Found %d book(s) matching '%s':\n", len(books), query)
	}
	printBooks(s.out, books, fmt.Sprintf("No books found matching '%s'.", query))
}

func (s *shell) handleRegister(ctx context.Context) {
	id, ok := s.p.ask("Enter a new user ID: ")
	if !ok {
		return
	}
	name, ok := s.p.ask("Enter the user name: ")
	if !ok {
		return
	}
	password, err := s.p.password(fmt.Sprintf("Enter password for %s: ", name))
	if err != nil {
		fmt.Fprintf(s.out, "Error reading password: %v\n", err)
		return
	}
	if password == "" {
		fmt.Fprintln(s.out, "Error: Password cannot be empty")
		return
	}

	ctx, cancel := s.opts.opContext(ctx)
	defer cancel()
	if _, err := s.mgr.Members.Register(ctx, id, name, password); err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "User %s registered successfully!\n", name)
}

// authenticate asks for book, member and password. ok is false when the
// caller should stop.
func (s *shell) authenticate() (bookID, userID string, ok bool) {
	if bookID, ok = s.p.ask("Book ID: "); !ok {
		return "", "", false
	}
	if userID, ok = s.p.ask("Member ID: "); !ok {
		return "", "", false
	}
	password, err := s.p.password("Enter your password: ")
	if err != nil {
		fmt.Fprintf(s.out, "Error reading password: %v\n", err)
		return "", "", false
	}
	if err := s.mgr.AuthenticateMember(userID, password); err != nil {
		s.opts.log.WithField("user_id", userID).Warn("authentication failed")
		s.fail(err)
		return "", "", false
	}
	return bookID, userID, true
}

func (s *shell) handleBorrow(ctx context.Context) {
	bookID, userID, ok := s.authenticate()
	if !ok {
		return
	}
	ctx, cancel := s.opts.opContext(ctx)
	defer cancel()
	rec, err := s.mgr.CheckoutBook(ctx, userID, bookID, s.opts.cfg.LoanPeriod())
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintln(s.out, "Book borrowed successfully!")
	if rec.DueAt != nil {
		fmt.Fprintf(s.out, "Due back by %s\n", rec.DueAt.Format(dateFormat))
	}
}

func (s *shell) handleReturn(ctx context.Context) {
	bookID, userID, ok := s.authenticate()
	if !ok {
		return
	}
	ctx, cancel := s.opts.opContext(ctx)
	defer cancel()
	rec, err := s.mgr.Circulation.Return(ctx, userID, bookID)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintln(s.out, "Book returned successfully!")
	if rec.DueAt != nil && rec.ReturnedAt.After(*rec.DueAt) {
		s.opts.log.WithFields(logrus.Fields{
			"user_id": userID,
			"book_id": bookID,
		}).Info("book returned late")
		fmt.Fprintf(s.out, "Returned %s after the due date.\n", rec.ReturnedAt.Sub(*rec.DueAt).Round(time.Hour))
	}
}

func (s *shell) handleRecommend() {
	userID, ok := s.p.ask("Enter User ID: ")
	if !ok {
		return
	}
	if err := printRecommendations(s.out, s.mgr, userID); err != nil {
		s.fail(err)
	}
}

func (s *shell) handleHistory() {
	userID, ok := s.p.ask("Enter User ID: ")
	if !ok {
		return
	}
	if _, err := s.mgr.Members.Lookup(userID); err != nil {
		s.fail(err)
		return
	}
	printHistory(s.out, s.mgr.Circulation.History(userID), time.Now())
}
