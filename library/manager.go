package library

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// LibraryManager implements the library's operations on top of the Database,
// keeping CLI code simple. Every call reads the clock at most once.
type LibraryManager struct {
	db       *Database
	loanDays int
	now      func() time.Time
	log      *slog.Logger
}

// Option customises a LibraryManager.
type Option func(*LibraryManager)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(lm *LibraryManager) { lm.now = now }
}

// WithLogger sets the structured logger; the default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(lm *LibraryManager) { lm.log = l }
}

// WithLoanDays sets the loan duration used when BorrowBook gets days == 0.
func WithLoanDays(days int) Option {
	return func(lm *LibraryManager) { lm.loanDays = days }
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath.
func NewLibraryManager(dbPath string, opts ...Option) (*LibraryManager, error) {
	lm := &LibraryManager{
		loanDays: DefaultLoanDays,
		now:      time.Now,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(lm)
	}
	if lm.loanDays < 1 {
		return nil, validationError(fmt.Sprintf("loan duration must be at least 1 day, got %d", lm.loanDays))
	}

	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	lm.db = db
	lm.log.Debug("database opened", "path", dbPath)
	return lm, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

func (lm *LibraryManager) today() string { return formatDate(lm.now()) }

// fail logs a failed operation at a level matching its kind and returns err
// unchanged.
func (lm *LibraryManager) fail(op string, err error, attrs ...any) error {
	attrs = append(attrs, "error", err)
	if errors.Is(err, ErrStore) {
		lm.log.Error(op+" failed", attrs...)
	} else {
		lm.log.Warn(op+" rejected", attrs...)
	}
	return err
}

// optional trims s and maps an empty result to NULL.
func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

// ------------------ Books ------------------

// AddBook adds a title with copies copies, all available. isbn may be empty.
func (lm *LibraryManager) AddBook(title, author, isbn string, copies int) (int64, error) {
	b := Book{
		Title:       strings.TrimSpace(title),
		Author:      strings.TrimSpace(author),
		ISBN:        optional(isbn),
		CopiesTotal: copies,
		CreatedAt:   lm.today(),
	}
	switch {
	case b.Title == "":
		return 0, lm.fail("add book", validationError("title is required"))
	case b.Author == "":
		return 0, lm.fail("add book", validationError("author is required"))
	case b.CopiesTotal < 1:
		return 0, lm.fail("add book", validationError("total copies must be at least 1"))
	}

	id, err := lm.db.AddBook(b)
	if err != nil {
		return 0, lm.fail("add book", err, "title", b.Title)
	}
	lm.log.Info("book added", "book_id", id, "title", b.Title, "copies", b.CopiesTotal)
	return id, nil
}

func (lm *LibraryManager) GetBook(id int64) (*Book, error) { return lm.db.GetBook(id) }

// SearchBooks lists books matching keyword; a blank keyword lists them all.
func (lm *LibraryManager) SearchBooks(keyword string) ([]Book, error) {
	return lm.db.SearchBooks(keyword)
}

// DeleteBook removes a book with no outstanding loans. deleted is false when
// no book had that id.
func (lm *LibraryManager) DeleteBook(id int64) (deleted bool, err error) {
	deleted, err = lm.db.DeleteBook(id)
	if err != nil {
		return false, lm.fail("delete book", err, "book_id", id)
	}
	lm.log.Info("book delete", "book_id", id, "deleted", deleted)
	return deleted, nil
}

// ------------------ Members ------------------

// AddMember registers a member. email and phone may be empty.
func (lm *LibraryManager) AddMember(name, email, phone string) (int64, error) {
	m := Member{
		Name:     strings.TrimSpace(name),
		Email:    optional(email),
		Phone:    optional(phone),
		JoinedAt: lm.today(),
	}
	if m.Name == "" {
		return 0, lm.fail("add member", validationError("name is required"))
	}

	id, err := lm.db.AddMember(m)
	if err != nil {
		return 0, lm.fail("add member", err, "name", m.Name)
	}
	lm.log.Info("member added", "member_id", id, "name", m.Name)
	return id, nil
}

func (lm *LibraryManager) GetMember(id int64) (*Member, error) { return lm.db.GetMember(id) }

func (lm *LibraryManager) SearchMembers(keyword string) ([]Member, error) {
	return lm.db.SearchMembers(keyword)
}

// DeleteMember removes a member with no outstanding loans. deleted is false
// when no member had that id.
func (lm *LibraryManager) DeleteMember(id int64) (deleted bool, err error) {
	deleted, err = lm.db.DeleteMember(id)
	if err != nil {
		return false, lm.fail("delete member", err, "member_id", id)
	}
	lm.log.Info("member delete", "member_id", id, "deleted", deleted)
	return deleted, nil
}

// ------------------ Circulation ------------------

// BorrowBook lends one copy of the book to the member for days days, or for
// the configured default when days is 0.
func (lm *LibraryManager) BorrowBook(bookID, memberID int64, days int) (*Loan, error) {
	if days == 0 {
		days = lm.loanDays
	}
	if days < 1 {
		return nil, lm.fail("borrow", validationError("loan duration must be at least 1 day"))
	}

	loanDate := lm.today()
	dueDate, err := addDays(loanDate, days)
	if err != nil {
		return nil, lm.fail("borrow", validationError(err.Error()))
	}

	id, err := lm.db.BorrowBook(bookID, memberID, loanDate, dueDate)
	if err != nil {
		return nil, lm.fail("borrow", err, "book_id", bookID, "member_id", memberID)
	}
	lm.log.Info("book borrowed", "loan_id", id, "book_id", bookID, "member_id", memberID, "due", dueDate)
	return &Loan{
		ID:       id,
		BookID:   bookID,
		MemberID: memberID,
		LoanDate: loanDate,
		DueDate:  dueDate,
	}, nil
}

func (lm *LibraryManager) GetLoan(id int64) (*Loan, error) { return lm.db.GetLoan(id) }

// ReturnResult describes a completed return.
type ReturnResult struct {
	Loan     Loan
	DaysLate int
}

// Late reports whether the book came back after its due date.
func (r ReturnResult) Late() bool { return r.DaysLate > 0 }

// Status is "late by N day(s)" or "on time".
func (r ReturnResult) Status() string {
	if r.Late() {
		return fmt.Sprintf("late by %d day(s)", r.DaysLate)
	}
	return "on time"
}

// ReturnBook closes an outstanding loan. Returning a loan twice fails with
// ErrAlreadyReturned and changes nothing.
func (lm *LibraryManager) ReturnBook(loanID int64) (*ReturnResult, error) {
	// One clock read: the stored return date and the lateness must agree.
	today := lm.today()

	loan, err := lm.db.ReturnBook(loanID, today)
	if err != nil {
		return nil, lm.fail("return", err, "loan_id", loanID)
	}
	loan.ReturnDate = &today

	late, err := daysBetween(loan.DueDate, today)
	if err != nil {
		// The return is committed; only the lateness report is lost.
		lm.log.Error("compute lateness", "loan_id", loanID, "error", err)
		late = 0
	}
	if late < 0 {
		late = 0
	}

	res := &ReturnResult{Loan: *loan, DaysLate: late}
	lm.log.Info("book returned", "loan_id", loanID, "book_id", loan.BookID, "status", res.Status())
	return res, nil
}

// ------------------ Reports ------------------

// ListLoans lists outstanding loans by due date, or every loan with the
// outstanding ones first when activeOnly is false.
func (lm *LibraryManager) ListLoans(activeOnly bool) ([]LoanView, error) {
	return lm.db.ListLoans(activeOnly)
}

// ListOverdue lists outstanding loans whose due date is before today.
func (lm *LibraryManager) ListOverdue() ([]LoanView, error) {
	return lm.db.ListOverdue(lm.today())
}

// Stats counts books, members, active loans and overdue loans right now.
func (lm *LibraryManager) Stats() (Stats, error) {
	return lm.db.Stats(lm.today())
}

// LoadSampleData fills an empty library with a few books, members and
// loans. It reports false and changes nothing when books or members exist.
func (lm *LibraryManager) LoadSampleData() (bool, error) {
	loaded, err := lm.db.seedSample(lm.today())
	if err != nil {
		return false, lm.fail("load sample data", err)
	}
	lm.log.Info("sample data", "loaded", loaded)
	return loaded, nil
}
