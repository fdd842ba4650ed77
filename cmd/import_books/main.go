package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-tracker/library"
)

func main() {
	if err := newImportCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newImportCmd(out io.Writer) *cobra.Command {
	dbPath := library.DefaultDBPath
	if v := strings.TrimSpace(os.Getenv(library.EnvDBPath)); v != "" {
		dbPath = v
	}

	cmd := &cobra.Command{
		Use:          "import_books CATALOG.csv",
		Short:        "Bulk-load books from a title,author,isbn,copies CSV file",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			manager, err := library.NewLibraryManager(dbPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer manager.Close()

			fmt.Fprintf(out, "Importing books from %s into %s...\n", args[0], dbPath)
			res, err := importCatalog(manager, f, out)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\nImport complete!\n")
			fmt.Fprintf(out, "Successfully imported: %d books\n", res.imported)
			fmt.Fprintf(out, "Errors: %d\n", res.failed)

			if res.imported > 0 {
				books, err := manager.SearchBooks("")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "\nCatalog:")
				printCatalog(out, books)
			}
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.Flags().StringVar(&dbPath, "db", dbPath, "path to the SQLite database file (env "+library.EnvDBPath+")")
	return cmd
}

type importResult struct {
	imported int
	failed   int
}

// importCatalog adds one book per CSV record. A first record starting with
// "title,author" is taken as a header. Rejected records are reported and
// skipped; only unreadable input or a store failure stops the import.
func importCatalog(manager *library.LibraryManager, r io.Reader, out io.Writer) (importResult, error) {
	var res importResult

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("reading catalog: %w", err)
		}
		if first && isHeader(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)

		title, author, isbn, copies, err := parseRecord(rec)
		if err != nil {
			fmt.Fprintf(out, "line %d: ERROR - %v\n", line, err)
			res.failed++
			continue
		}

		fmt.Fprintf(out, "Importing: %s by %s... ", title, author)
		bookID, err := manager.AddBook(title, author, isbn, copies)
		if errors.Is(err, library.ErrStore) {
			fmt.Fprintln(out, "FAILED")
			return res, err
		}
		if err != nil {
			fmt.Fprintf(out, "ERROR - %v\n", err)
			res.failed++
			continue
		}
		fmt.Fprintf(out, "SUCCESS (ID: %d)\n", bookID)
		res.imported++
	}
}

func isHeader(rec []string) bool {
	return len(rec) >= 2 &&
		strings.EqualFold(strings.TrimSpace(rec[0]), "title") &&
		strings.EqualFold(strings.TrimSpace(rec[1]), "author")
}

// parseRecord reads title,author[,isbn[,copies]]. Missing copies means one.
func parseRecord(rec []string) (title, author, isbn string, copies int, err error) {
	if len(rec) < 2 || len(rec) > 4 {
		return "", "", "", 0, fmt.Errorf("expected title,author,isbn,copies but got %d fields", len(rec))
	}
	title, author = rec[0], rec[1]
	if len(rec) > 2 {
		isbn = rec[2]
	}
	copies = 1
	if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
		copies, err = strconv.Atoi(strings.TrimSpace(rec[3]))
		if err != nil {
			return "", "", "", 0, fmt.Errorf("copies %q is not a number", rec[3])
		}
	}
	return title, author, isbn, copies, nil
}

func printCatalog(out io.Writer, books []library.Book) {
	fmt.Fprintf(out, "%-4s %-40s %-25s %s\n", "ID", "Title", "Author", "Copies")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, b := range books {
		fmt.Fprintf(out, "%-4d %-40s %-25s %d/%d\n", b.ID, truncate(b.Title, 40), truncate(b.Author, 25), b.CopiesAvailable, b.CopiesTotal)
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
