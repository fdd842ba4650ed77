package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"library-tracker/library"
)

// app is the state shared by every command: the resolved configuration and
// the manager opened for the duration of one command.
type app struct {
	cfg    library.Config
	asJSON bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	mgr *library.LibraryManager
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes one command line. The database is opened before the command
// runs and closed on every exit path.
func run(args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{in: in, out: out, errOut: errOut}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd(a *app) *cobra.Command {
	envCfg, envErr := library.ConfigFromEnv()
	a.cfg = envCfg

	root := &cobra.Command{
		Use:          "library",
		Short:        "Track a small library's books, members and loans",
		Long:         "Track a small library's books, members and loans in a local SQLite file.\nRun without a command to start the interactive menu.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !needsStore(cmd) {
				return nil
			}
			if envErr != nil {
				return envErr
			}
			return a.open()
		},
		RunE: func(*cobra.Command, []string) error {
			return a.runShell()
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.DBPath, "db", envCfg.DBPath, "path to the SQLite database file (env "+library.EnvDBPath+")")
	flags.IntVar(&a.cfg.LoanDays, "loan-days", envCfg.LoanDays, "default loan duration in days (env "+library.EnvLoanDays+")")
	flags.StringVar(&a.cfg.LogLevel, "log-level", envCfg.LogLevel, "debug, info, warn or error (env "+library.EnvLogLevel+")")
	flags.BoolVar(&a.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		newBookCmd(a),
		newMemberCmd(a),
		newLoanCmd(a),
		newStatsCmd(a),
		newSampleCmd(a),
		&cobra.Command{
			Use:   "shell",
			Short: "Start the interactive menu",
			Args:  cobra.NoArgs,
			RunE:  func(*cobra.Command, []string) error { return a.runShell() },
		},
	)

	return root
}

// needsStore reports whether cmd works on the library. cobra's own help and
// completion commands never touch the database file.
func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return cmd.Runnable()
}

func (a *app) open() error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	level, _ := a.cfg.Level()
	logger := slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	mgr, err := library.NewLibraryManager(a.cfg.DBPath,
		library.WithLogger(logger),
		library.WithLoanDays(a.cfg.LoanDays),
	)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.mgr = mgr
	return nil
}

func (a *app) close() error {
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}

func (a *app) printer() printer { return printer{w: a.out, json: a.asJSON} }

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s ID: %s", what, arg)
	}
	return id, nil
}

// ------------------ Books ------------------

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Add, search and delete books"}

	var title, author, isbn string
	var copies int
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.addBook(title, author, isbn, copies)
		},
	}
	add.Flags().StringVar(&title, "title", "", "book title")
	add.Flags().StringVar(&author, "author", "", "book author")
	add.Flags().StringVar(&isbn, "isbn", "", "ISBN (optional, unique)")
	add.Flags().IntVar(&copies, "copies", 1, "total copies")
	_ = add.MarkFlagRequired("title")
	_ = add.MarkFlagRequired("author")

	search := &cobra.Command{
		Use:     "search [keyword]",
		Aliases: []string{"list"},
		Short:   "List books, optionally filtered by title, author or ISBN",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.searchBooks(firstArg(args))
		},
	}

	del := &cobra.Command{
		Use:   "delete BOOK_ID",
		Short: "Delete a book with no outstanding loans",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			return a.deleteBook(id)
		},
	}

	cmd.AddCommand(add, search, del)
	return cmd
}

func (a *app) addBook(title, author, isbn string, copies int) error {
	id, err := a.mgr.AddBook(title, author, isbn, copies)
	if err != nil {
		return err
	}
	return a.printer().message(map[string]int64{"id": id}, "Added book with ID %d.", id)
}

func (a *app) searchBooks(keyword string) error {
	books, err := a.mgr.SearchBooks(keyword)
	if err != nil {
		return err
	}
	return a.printer().books(books)
}

func (a *app) deleteBook(id int64) error {
	deleted, err := a.mgr.DeleteBook(id)
	if err != nil {
		return err
	}
	out := map[string]interface{}{"id": id, "deleted": deleted}
	if !deleted {
		return a.printer().message(out, "No book with ID %d; nothing deleted.", id)
	}
	return a.printer().message(out, "Book %d deleted.", id)
}

// ------------------ Members ------------------

func newMemberCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "member", Short: "Add, search and delete members"}

	var name, email, phone string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a member",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.addMember(name, email, phone)
		},
	}
	add.Flags().StringVar(&name, "name", "", "member name")
	add.Flags().StringVar(&email, "email", "", "email (optional, unique)")
	add.Flags().StringVar(&phone, "phone", "", "phone (optional)")
	_ = add.MarkFlagRequired("name")

	search := &cobra.Command{
		Use:     "search [keyword]",
		Aliases: []string{"list"},
		Short:   "List members, optionally filtered by name, email or phone",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.searchMembers(firstArg(args))
		},
	}

	del := &cobra.Command{
		Use:   "delete MEMBER_ID",
		Short: "Delete a member with no outstanding loans",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseID(args[0], "member")
			if err != nil {
				return err
			}
			return a.deleteMember(id)
		},
	}

	cmd.AddCommand(add, search, del)
	return cmd
}

func (a *app) addMember(name, email, phone string) error {
	id, err := a.mgr.AddMember(name, email, phone)
	if err != nil {
		return err
	}
	return a.printer().message(map[string]int64{"id": id}, "Added member with ID %d.", id)
}

func (a *app) searchMembers(keyword string) error {
	members, err := a.mgr.SearchMembers(keyword)
	if err != nil {
		return err
	}
	return a.printer().members(members)
}

func (a *app) deleteMember(id int64) error {
	deleted, err := a.mgr.DeleteMember(id)
	if err != nil {
		return err
	}
	out := map[string]interface{}{"id": id, "deleted": deleted}
	if !deleted {
		return a.printer().message(out, "No member with ID %d; nothing deleted.", id)
	}
	return a.printer().message(out, "Member %d deleted.", id)
}

// ------------------ Loans ------------------

func newLoanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "loan", Short: "Borrow, return and list loans"}

	var days int
	borrow := &cobra.Command{
		Use:   "borrow BOOK_ID MEMBER_ID",
		Short: "Lend one copy of a book to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			bookID, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			memberID, err := parseID(args[1], "member")
			if err != nil {
				return err
			}
			return a.borrow(bookID, memberID, days)
		},
	}
	borrow.Flags().IntVar(&days, "days", 0, "loan duration in days (default --loan-days)")

	ret := &cobra.Command{
		Use:   "return LOAN_ID",
		Short: "Return a borrowed copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseID(args[0], "loan")
			if err != nil {
				return err
			}
			return a.returnLoan(id)
		},
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List outstanding loans (--all includes returned ones)",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.listLoans(!all)
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include returned loans")

	overdue := &cobra.Command{
		Use:   "overdue",
		Short: "List outstanding loans past their due date",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.listOverdue()
		},
	}

	cmd.AddCommand(borrow, ret, list, overdue)
	return cmd
}

func (a *app) borrow(bookID, memberID int64, days int) error {
	loan, err := a.mgr.BorrowBook(bookID, memberID, days)
	if err != nil {
		return err
	}
	return a.printer().message(loan, "Loan %d created. Due on %s.", loan.ID, loan.DueDate)
}

func (a *app) returnLoan(id int64) error {
	res, err := a.mgr.ReturnBook(id)
	if err != nil {
		return err
	}
	out := map[string]interface{}{
		"loan":      res.Loan,
		"days_late": res.DaysLate,
		"status":    res.Status(),
	}
	if res.Late() {
		return a.printer().message(out, "Returned %s.", res.Status())
	}
	return a.printer().message(out, "Returned on time. Thank you!")
}

func (a *app) listLoans(activeOnly bool) error {
	loans, err := a.mgr.ListLoans(activeOnly)
	if err != nil {
		return err
	}
	return a.printer().loans(loans, true)
}

func (a *app) listOverdue() error {
	loans, err := a.mgr.ListOverdue()
	if err != nil {
		return err
	}
	return a.printer().loans(loans, false)
}

// ------------------ Reports ------------------

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show book, member, active and overdue loan counts",
		Args:  cobra.NoArgs,
		RunE:  func(*cobra.Command, []string) error { return a.stats() },
	}
}

func (a *app) stats() error {
	s, err := a.mgr.Stats()
	if err != nil {
		return err
	}
	return a.printer().stats(s)
}

func newSampleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Load demonstration data into an empty library",
		Args:  cobra.NoArgs,
		RunE:  func(*cobra.Command, []string) error { return a.loadSample() },
	}
}

func (a *app) loadSample() error {
	loaded, err := a.mgr.LoadSampleData()
	if err != nil {
		return err
	}
	out := map[string]bool{"loaded": loaded}
	if !loaded {
		return a.printer().message(out, "Database already has data; skipping samples.")
	}
	return a.printer().message(out, "Sample data loaded.")
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
