package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-library/library"
)

func TestOneShotCommandsShareStore(t *testing.T) {
	base := jsonStoreArgs(t)
	run := func(stdin string, args ...string) (string, error) {
		return execute(t, stdin, append(append([]string{}, base...), args...)...)
	}

	_, err := run("", "book", "add", "B1", "Dune", "Frank Herbert", "SciFi")
	require.NoError(t, err)
	_, err = run("", "book", "add", "B2", "Emma", "Jane Austen", "Romance")
	require.NoError(t, err)
	_, err = run("secret\n", "member", "register", "U1", "Ada")
	require.NoError(t, err)

	out, err := run("secret\n", "borrow", "U1", "B1")
	require.NoError(t, err)
	assert.Contains(t, out, "Book borrowed successfully!")

	_, err = run("secret\n", "borrow", "U1", "B1")
	require.ErrorIs(t, err, library.ErrBookUnavailable)
	assert.Contains(t, err.Error(), "already borrowed by you")

	out, err = run("", "member", "books", "U1")
	require.NoError(t, err)
	assert.Contains(t, out, "Dune")

	out, err = run("", "book", "list", "--available")
	require.NoError(t, err)
	assert.Contains(t, out, "Emma")
	assert.NotContains(t, out, "Dune")

	out, err = run("", "book", "search", "austen")
	require.NoError(t, err)
	assert.Contains(t, out, "Emma")

	out, err = run("", "recommend", "U1")
	require.NoError(t, err)
	assert.Contains(t, out, "No specific recommendations")

	out, err = run("", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "SciFi")
	assert.Contains(t, out, "Books on loan: 1")

	_, err = run("wrong\n", "return", "U1", "B1")
	require.ErrorIs(t, err, library.ErrInvalidCredentials)

	out, err = run("secret\n", "return", "U1", "B1")
	require.NoError(t, err)
	assert.Contains(t, out, "Book returned successfully!")

	out, err = run("", "history", "U1")
	require.NoError(t, err)
	assert.Contains(t, out, "Returned")

	_, err = run("", "book", "remove", "B9")
	require.ErrorIs(t, err, library.ErrNotFound)

	_, err = run("", "book", "remove", "B1")
	require.NoError(t, err)
}

func TestImportSkipsDuplicates(t *testing.T) {
	base := jsonStoreArgs(t)
	path := filepath.Join(t.TempDir(), "catalog.csv")
	content := "book_id,title,author,category\nB1,Dune,Frank Herbert,SciFi\nB2,Emma,Jane Austen,Romance\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	out, err := execute(t, "", append(base, "import", path)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully imported: 2 books")

	out, err = execute(t, "", append(base, "import", path)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Skipped: 2")

	out, err = execute(t, "", append(base, "book", "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Jane Austen")
}
