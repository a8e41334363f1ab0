package library

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrettyBook(t *testing.T) {
	line := PrettyBook(Book{
		ID:        "B1",
		Title:     "Harry Potter and the Order of the Phoenix",
		Author:    "J.K. Rowling",
		Category:  "Fantasy",
		Available: false,
	})
	assert.True(t, strings.HasPrefix(line, "B1 "))
	assert.Contains(t, line, "Harry Potter and the Order ...")
	assert.Contains(t, line, "J.K. Rowling")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(line), "No"))
}

func TestManagerComponentsShareState(t *testing.T) {
	mgr := newManager(t)
	mustAddBook(t, mgr, "B1", "Fiction")
	mustRegister(t, mgr, "U1")
	mustBorrow(t, mgr, "U1", "B1")

	assert.Empty(t, mgr.Catalog.ListAvailable())
	set, _ := mgr.Members.BorrowedSet("U1")
	assert.Equal(t, []string{"B1"}, set)
	assert.Len(t, mgr.Circulation.OpenLoans(), 1)
}
