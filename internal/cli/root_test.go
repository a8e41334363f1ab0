package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with stdin and returns combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// jsonStoreArgs points the CLI at a fresh JSON store in a temp dir.
func jsonStoreArgs(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return []string{"--store", "json", "--db", filepath.Join(dir, "library.json"), "--log-level", "error"}
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "library", cmd.Use)
	assert.Contains(t, cmd.Long, "recommend")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"book", "add"}, {"book", "remove"}, {"book", "list"}, {"book", "search"},
		{"member", "register"}, {"member", "books"},
		{"borrow"}, {"return"}, {"recommend"}, {"history"}, {"stats"}, {"import"},
	}

	for _, path := range commands {
		name := strings.Join(path, " ")
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %s should exist", name)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	storeFlag := cmd.PersistentFlags().Lookup("store")
	require.NotNil(t, storeFlag)
	assert.Equal(t, "sqlite", storeFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "library.db", dbFlag.DefValue)

	loanFlag := cmd.PersistentFlags().Lookup("loan-days")
	require.NotNil(t, loanFlag)
	assert.Equal(t, "14", loanFlag.DefValue)
}

func TestUnknownStoreDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "", "--store", "postgres", "book", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}
