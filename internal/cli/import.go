package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"smart-library/internal/catalogio"
	"smart-library/library"
)

// NewImportCommand bulk-loads a CSV or YAML catalog. Books whose id is
// already in the catalog are skipped.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv|file.yaml>",
		Short: "Import books from a catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := catalogio.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read catalog: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Importing books from %s...\n", args[0])
			var imported, skipped, failed int
			for _, e := range entries {
				fmt.Fprintf(out, "Importing: %s by %s... ", e.Title, e.Author)
				ctx, cancel := opts.opContext(cmd.Context())
				_, err := opts.mgr.Catalog.Add(ctx, e.ID, e.Title, e.Author, e.Category)
				cancel()
				switch {
				case errors.Is(err, library.ErrDuplicateKey):
					fmt.Fprintf(out, "SKIPPED (ID %s exists)\n", e.ID)
					skipped++
				case err != nil:
					fmt.Fprintf(out, "ERROR - %s\n", describeError(err))
					failed++
				default:
					fmt.Fprintf(out, "SUCCESS (ID: %s)\n", e.ID)
					imported++
				}
			}

			fmt.Fprintf(out, "\nImport complete!\n")
			fmt.Fprintf(out, "Successfully imported: %d books\n", imported)
			fmt.Fprintf(out, "Skipped: %d\n", skipped)
			fmt.Fprintf(out, "Errors: %d\n", failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d books failed to import", failed, len(entries))
			}
			return nil
		},
	}
}
