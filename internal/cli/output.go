package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"smart-library/library"
)

const dateFormat = "2006-01-02"

func printBooks(out io.Writer, books []library.Book, empty string) {
	if len(books) == 0 {
		fmt.Fprintln(out, empty)
		return
	}
	fmt.Fprintf(out, "%-8s %-30s %-22s %-15s %-9s\n", "ID", "Title", "Author", "Category", "Available")
	fmt.Fprintln(out, strings.Repeat("-", 88))
	for _, b := range books {
		fmt.Fprintln(out, library.PrettyBook(b))
	}
}

func printRecommendations(out io.Writer, mgr *library.LibraryManager, userID string) error {
	recs, err := mgr.Recommender.Recommend(userID)
	if err != nil {
		return err
	}
	if len(mgr.Circulation.History(userID)) == 0 {
		fmt.Fprintln(out, "No borrowing history found. Here are some popular books:")
		printBooks(out, recs, "No books available in the library.")
		return nil
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, "No specific recommendations. Try exploring new categories!")
		return nil
	}
	fmt.Fprintln(out, "Recommended Books for You:")
	printBooks(out, recs, "")
	return nil
}

func printHistory(out io.Writer, records []library.BorrowRecord, now time.Time) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No borrowing history found.")
		return
	}
	fmt.Fprintf(out, "%-8s %-12s %-12s %s\n", "Book", "Borrowed", "Due", "Status")
	fmt.Fprintln(out, strings.Repeat("-", 50))
	for _, r := range records {
		due := "-"
		if r.DueAt != nil {
			due = r.DueAt.Format(dateFormat)
		}
		status := "On loan"
		switch {
		case !r.Open():
			status = "Returned " + r.ReturnedAt.Format(dateFormat)
		case r.DueAt != nil && r.DueAt.Before(now):
			status = "Overdue"
		}
		fmt.Fprintf(out, "%-8s %-12s %-12s %s\n", r.BookID, r.BorrowedAt.Format(dateFormat), due, status)
	}
}

func printTopCategories(out io.Writer, counts []library.CategoryCount) {
	fmt.Fprintf(out, "Top %d Borrowed Categories:\n", len(counts))
	if len(counts) == 0 {
		fmt.Fprintln(out, "No borrowing history found.")
		return
	}
	for i, c := range counts {
		fmt.Fprintf(out, "%2d. %-20s %d\n", i+1, c.Category, c.Count)
	}
}
