// Command import_catalog loads a CSV (book_id,title,author,category) or
// YAML catalog into the configured store. It accepts the same global
// flags as the library command, e.g.
//
//	import_catalog --store sqlite --db library.db books.csv
package main

import (
	"os"

	"smart-library/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	root.SetArgs(append([]string{"import"}, os.Args[1:]...))
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
