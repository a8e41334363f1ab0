package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"smart-library/library"
)

func newBookCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage the catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <book-id> <title> <author> <category>",
		Short: "Add a book to the catalog",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.opContext(cmd.Context())
			defer cancel()
			book, err := opts.mgr.Catalog.Add(ctx, args[0], args[1], args[2], args[3])
			if err != nil {
				return wrapUserError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added book %s: '%s' by %s\n", book.ID, book.Title, book.Author)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <book-id>",
		Short: "Remove a book that is not on loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.opContext(cmd.Context())
			defer cancel()
			if err := opts.mgr.Catalog.Remove(ctx, args[0]); err != nil {
				return wrapUserError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed book %s\n", args[0])
			return nil
		},
	})

	var available bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List books in catalog order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if available {
				printBooks(cmd.OutOrStdout(), opts.mgr.Catalog.ListAvailable(), "No books available.")
				return nil
			}
			printBooks(cmd.OutOrStdout(), opts.mgr.Catalog.List(), "No books in library.")
			return nil
		},
	}
	list.Flags().BoolVar(&available, "available", false, "only books that can be borrowed")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Find books by title, author or category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printBooks(cmd.OutOrStdout(), opts.mgr.Catalog.Search(args[0]),
				fmt.Sprintf("No books found matching '%s'.", args[0]))
			return nil
		},
	})

	return cmd
}

func newMemberCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage members",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "register <user-id> <name>",
		Short: "Register a member; the password is read from stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			password, err := p.password(fmt.Sprintf("Enter password for %s: ", args[1]))
			if err != nil {
				return err
			}
			ctx, cancel := opts.opContext(cmd.Context())
			defer cancel()
			if _, err := opts.mgr.Members.Register(ctx, args[0], args[1], password); err != nil {
				return wrapUserError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s registered successfully!\n", args[1])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "books <user-id>",
		Short: "Show the books a member currently holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := opts.mgr.Members.BorrowedSet(args[0])
			if err != nil {
				return wrapUserError(err)
			}
			books := make([]library.Book, 0, len(ids))
			for _, id := range ids {
				b, err := opts.mgr.Catalog.Lookup(id)
				if err != nil {
					return wrapUserError(err)
				}
				books = append(books, b)
			}
			printBooks(cmd.OutOrStdout(), books, "No books on loan.")
			return nil
		},
	})

	return cmd
}

// authenticatedArgs checks the member password read from stdin.
func authenticatedArgs(cmd *cobra.Command, opts *RootOptions, userID string) error {
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	password, err := p.password("Enter your password: ")
	if err != nil {
		return err
	}
	if err := opts.mgr.AuthenticateMember(userID, password); err != nil {
		opts.log.WithField("user_id", userID).Warn("authentication failed")
		return wrapUserError(err)
	}
	return nil
}

func newBorrowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <user-id> <book-id>",
		Short: "Borrow a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := authenticatedArgs(cmd, opts, args[0]); err != nil {
				return err
			}
			ctx, cancel := opts.opContext(cmd.Context())
			defer cancel()
			rec, err := opts.mgr.CheckoutBook(ctx, args[0], args[1], opts.cfg.LoanPeriod())
			if err != nil {
				return wrapUserError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Book borrowed successfully!")
			if rec.DueAt != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Due back by %s\n", rec.DueAt.Format(dateFormat))
			}
			return nil
		},
	}
}

func newReturnCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "return <user-id> <book-id>",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := authenticatedArgs(cmd, opts, args[0]); err != nil {
				return err
			}
			ctx, cancel := opts.opContext(cmd.Context())
			defer cancel()
			if _, err := opts.mgr.Circulation.Return(ctx, args[0], args[1]); err != nil {
				return wrapUserError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Book returned successfully!")
			return nil
		},
	}
}

func newRecommendCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <user-id>",
		Short: "Recommend up to five books for a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wrapUserError(printRecommendations(cmd.OutOrStdout(), opts.mgr, args[0]))
		},
	}
}

func newHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <user-id>",
		Short: "Show a member's borrowing history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.mgr.Members.Lookup(args[0]); err != nil {
				return wrapUserError(err)
			}
			printHistory(cmd.OutOrStdout(), opts.mgr.Circulation.History(args[0]), time.Now())
			return nil
		},
	}
}

func newStatsCommand(opts *RootOptions) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the most borrowed categories and current loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			printTopCategories(out, opts.mgr.Circulation.TopCategories(top))
			fmt.Fprintf(out, "\nBooks on loan: %d\n", len(opts.mgr.Circulation.OpenLoans()))
			fmt.Fprintf(out, "Overdue: %d\n", len(opts.mgr.Circulation.Overdue(time.Now())))
			return nil
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", library.MaxRecommendations, "number of categories, negative for all")
	return cmd
}
