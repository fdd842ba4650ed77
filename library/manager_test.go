package library

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock is a settable "now".
type testClock struct{ t time.Time }

func (c *testClock) now() time.Time       { return c.t }
func (c *testClock) advance(days int)     { c.t = c.t.AddDate(0, 0, days) }
func (c *testClock) date() string         { return formatDate(c.t) }
func (c *testClock) plus(days int) string { return formatDate(c.t.AddDate(0, 0, days)) }

func newManager(t *testing.T, opts ...Option) (*LibraryManager, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)}
	dir := t.TempDir()
	mgr, err := NewLibraryManager(filepath.Join(dir, "lib.db"), append([]Option{WithClock(clock.now)}, opts...)...)
	require.NoError(t, err, "mgr")
	t.Cleanup(func() { mgr.Close() })
	return mgr, clock
}

func copiesAvailable(t *testing.T, mgr *LibraryManager, bookID int64) int {
	t.Helper()
	b, err := mgr.GetBook(bookID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, b.CopiesAvailable, 0)
	require.LessOrEqual(t, b.CopiesAvailable, b.CopiesTotal)
	return b.CopiesAvailable
}

func TestAddBookValidation(t *testing.T) {
	mgr, _ := newManager(t)

	tests := []struct {
		name   string
		title  string
		author string
		copies int
	}{
		{name: "empty title", title: "  ", author: "Anon", copies: 1},
		{name: "empty author", title: "Dune", author: "", copies: 1},
		{name: "zero copies", title: "Dune", author: "Frank Herbert", copies: 0},
		{name: "negative copies", title: "Dune", author: "Frank Herbert", copies: -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.AddBook(tt.title, tt.author, "", tt.copies)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	books, err := mgr.SearchBooks("")
	require.NoError(t, err)
	assert.Empty(t, books, "rejected books leave no rows")
}

func TestDuneScenario(t *testing.T) {
	mgr, clock := newManager(t)

	bookID, err := mgr.AddBook("Dune", "Frank Herbert", "", 2)
	require.NoError(t, err)
	book, err := mgr.GetBook(bookID)
	require.NoError(t, err)
	assert.Equal(t, 2, book.CopiesTotal)
	assert.Equal(t, 2, book.CopiesAvailable)
	assert.Nil(t, book.ISBN, "blank ISBN is stored as NULL")
	assert.Equal(t, clock.date(), book.CreatedAt)

	memberID, err := mgr.AddMember("Paul", "", "")
	require.NoError(t, err)

	loan, err := mgr.BorrowBook(bookID, memberID, 7)
	require.NoError(t, err)
	assert.Equal(t, clock.date(), loan.LoanDate)
	assert.Equal(t, clock.plus(7), loan.DueDate)
	assert.Equal(t, 1, copiesAvailable(t, mgr, bookID))

	_, err = mgr.BorrowBook(bookID, memberID, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, copiesAvailable(t, mgr, bookID))

	_, err = mgr.BorrowBook(bookID, memberID, 7)
	assert.ErrorIs(t, err, ErrNoAvailableCopies)
	assert.EqualError(t, err, "no available copies")
	assert.Equal(t, 0, copiesAvailable(t, mgr, bookID))

	loans, err := mgr.ListLoans(false)
	require.NoError(t, err)
	assert.Len(t, loans, 2)
}

func TestBorrowDefaultsAndValidation(t *testing.T) {
	mgr, clock := newManager(t, WithLoanDays(21))
	bookID, _ := mgr.AddBook("Book", "Author", "", 3)
	memberID, _ := mgr.AddMember("Alice", "", "")

	loan, err := mgr.BorrowBook(bookID, memberID, 0)
	require.NoError(t, err)
	assert.Equal(t, clock.plus(21), loan.DueDate, "days 0 uses the configured duration")

	_, err = mgr.BorrowBook(bookID, memberID, -1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = mgr.BorrowBook(999, memberID, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "book not found")

	_, err = mgr.BorrowBook(bookID, 999, 0)
	assert.ErrorIs(t, err, ErrMemberNotFound)
	assert.Equal(t, 2, copiesAvailable(t, mgr, bookID), "failed borrow leaves copies untouched")
}

func TestDefaultLoanIsFourteenDays(t *testing.T) {
	mgr, clock := newManager(t)
	bookID, _ := mgr.AddBook("Book", "Author", "", 1)
	memberID, _ := mgr.AddMember("Alice", "", "")

	loan, err := mgr.BorrowBook(bookID, memberID, 0)
	require.NoError(t, err)
	assert.Equal(t, clock.plus(14), loan.DueDate)
}

func TestBorrowReturnRoundTrip(t *testing.T) {
	mgr, _ := newManager(t)
	bookID, _ := mgr.AddBook("Book", "Author", "", 3)
	memberID, _ := mgr.AddMember("Alice", "", "")

	before := copiesAvailable(t, mgr, bookID)
	loan, err := mgr.BorrowBook(bookID, memberID, 0)
	require.NoError(t, err)
	res, err := mgr.ReturnBook(loan.ID)
	require.NoError(t, err)
	assert.False(t, res.Late())
	assert.Equal(t, "on time", res.Status())
	assert.Equal(t, before, copiesAvailable(t, mgr, bookID))
}

func TestReturnTwice(t *testing.T) {
	mgr, clock := newManager(t)
	bookID, _ := mgr.AddBook("Book", "Author", "", 1)
	memberID, _ := mgr.AddMember("Alice", "", "")
	loan, err := mgr.BorrowBook(bookID, memberID, 5)
	require.NoError(t, err)

	first, err := mgr.ReturnBook(loan.ID)
	require.NoError(t, err)
	require.NotNil(t, first.Loan.ReturnDate)
	assert.Equal(t, clock.date(), *first.Loan.ReturnDate)

	clock.advance(3)
	_, err = mgr.ReturnBook(loan.ID)
	assert.ErrorIs(t, err, ErrAlreadyReturned)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, copiesAvailable(t, mgr, bookID), "second return must not add a copy")

	stored, err := mgr.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.Loan.ReturnDate, *stored.ReturnDate)

	_, err = mgr.ReturnBook(4242)
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestReturnLateness(t *testing.T) {
	tests := []struct {
		name     string
		after    int
		daysLate int
		status   string
	}{
		{name: "before due", after: 3, daysLate: 0, status: "on time"},
		{name: "on due date", after: 7, daysLate: 0, status: "on time"},
		{name: "one day late", after: 8, daysLate: 1, status: "late by 1 day(s)"},
		{name: "a month late", after: 37, daysLate: 30, status: "late by 30 day(s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, clock := newManager(t)
			bookID, _ := mgr.AddBook("Book", "Author", "", 1)
			memberID, _ := mgr.AddMember("Alice", "", "")
			loan, err := mgr.BorrowBook(bookID, memberID, 7)
			require.NoError(t, err)

			clock.advance(tt.after)
			res, err := mgr.ReturnBook(loan.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.daysLate, res.DaysLate)
			assert.Equal(t, tt.status, res.Status())
			assert.Equal(t, clock.date(), *res.Loan.ReturnDate)
		})
	}
}

func TestDuplicateEmailLeavesCountUnchanged(t *testing.T) {
	mgr, _ := newManager(t)
	_, err := mgr.AddMember("Alice", "a@x.com", "")
	require.NoError(t, err)

	_, err = mgr.AddMember("Bob", " a@x.com ", "")
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	stats, err := mgr.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Members)

	_, err = mgr.AddMember("", "c@x.com", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDuplicateISBN(t *testing.T) {
	mgr, _ := newManager(t)
	_, err := mgr.AddBook("Dune", "Frank Herbert", "9780441013593", 1)
	require.NoError(t, err)
	_, err = mgr.AddBook("Dune Messiah", "Frank Herbert", "9780441013593", 1)
	assert.ErrorIs(t, err, ErrDuplicateISBN)
}

func TestSearch(t *testing.T) {
	mgr, _ := newManager(t)
	dune, _ := mgr.AddBook("Dune", "Frank Herbert", "9780441013593", 1)
	hobbit, _ := mgr.AddBook("The Hobbit", "J.R.R. Tolkien", "", 1)
	messiah, _ := mgr.AddBook("Dune Messiah", "Frank Herbert", "", 1)

	tests := []struct {
		keyword string
		want    []int64
	}{
		{keyword: "", want: []int64{dune, hobbit, messiah}},
		{keyword: "   ", want: []int64{dune, hobbit, messiah}},
		{keyword: "dUNE", want: []int64{dune, messiah}},
		{keyword: "tolk", want: []int64{hobbit}},
		{keyword: "0441", want: []int64{dune}},
		{keyword: "nothing", want: nil},
	}
	for _, tt := range tests {
		t.Run("books/"+tt.keyword, func(t *testing.T) {
			books, err := mgr.SearchBooks(tt.keyword)
			require.NoError(t, err)
			var got []int64
			for _, b := range books {
				got = append(got, b.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	alice, _ := mgr.AddMember("Alice", "alice@example.com", "555-0101")
	bob, _ := mgr.AddMember("Bob", "", "555-0199")

	members, err := mgr.SearchMembers("EXAMPLE")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, alice, members[0].ID)

	members, err = mgr.SearchMembers("555-01")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, alice, members[0].ID)
	assert.Equal(t, bob, members[1].ID)
	assert.Nil(t, members[1].Email)
}

func TestDeleteBlockedUntilReturned(t *testing.T) {
	mgr, _ := newManager(t)
	bookID, _ := mgr.AddBook("Book", "Author", "", 2)
	memberID, _ := mgr.AddMember("Alice", "", "")
	first, _ := mgr.BorrowBook(bookID, memberID, 0)
	second, _ := mgr.BorrowBook(bookID, memberID, 0)

	_, err := mgr.DeleteBook(bookID)
	assert.ErrorIs(t, err, ErrBookHasActiveLoans)
	_, err = mgr.DeleteMember(memberID)
	assert.ErrorIs(t, err, ErrMemberHasActiveLoans)

	_, err = mgr.ReturnBook(first.ID)
	require.NoError(t, err)
	_, err = mgr.DeleteBook(bookID)
	assert.ErrorIs(t, err, ErrConflict, "one loan still out")

	_, err = mgr.ReturnBook(second.ID)
	require.NoError(t, err)

	deleted, err := mgr.DeleteBook(bookID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = mgr.DeleteMember(memberID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = mgr.DeleteMember(memberID)
	require.NoError(t, err)
	assert.False(t, deleted, "missing member is a reported no-op")

	_, err = mgr.GetBook(bookID)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestOverdueTracksClock(t *testing.T) {
	mgr, clock := newManager(t)
	bookID, _ := mgr.AddBook("Book", "Author", "", 2)
	memberID, _ := mgr.AddMember("Alice", "", "")
	short, _ := mgr.BorrowBook(bookID, memberID, 1)
	long, _ := mgr.BorrowBook(bookID, memberID, 10)

	overdue, err := mgr.ListOverdue()
	require.NoError(t, err)
	assert.Empty(t, overdue)

	clock.advance(1)
	overdue, err = mgr.ListOverdue()
	require.NoError(t, err)
	assert.Empty(t, overdue, "due today is not overdue")

	clock.advance(1)
	overdue, err = mgr.ListOverdue()
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, short.ID, overdue[0].ID)
	assert.Equal(t, "Book", overdue[0].BookTitle)
	assert.Equal(t, "Alice", overdue[0].MemberName)

	stats, err := mgr.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Books: 1, Members: 1, ActiveLoans: 2, OverdueLoans: 1}, stats)

	_, err = mgr.ReturnBook(short.ID)
	require.NoError(t, err)
	clock.advance(20)
	overdue, err = mgr.ListOverdue()
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, long.ID, overdue[0].ID)
}

func TestLoadSampleData(t *testing.T) {
	mgr, _ := newManager(t)

	loaded, err := mgr.LoadSampleData()
	require.NoError(t, err)
	assert.True(t, loaded)

	stats, err := mgr.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Books: 3, Members: 2, ActiveLoans: 2, OverdueLoans: 0}, stats)

	loaded, err = mgr.LoadSampleData()
	require.NoError(t, err)
	assert.False(t, loaded, "second load is a no-op")

	stats, err = mgr.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Books)
}

func TestLoadSampleDataSkipsWhenMembersExist(t *testing.T) {
	mgr, _ := newManager(t)
	_, err := mgr.AddMember("Existing", "", "")
	require.NoError(t, err)

	loaded, err := mgr.LoadSampleData()
	require.NoError(t, err)
	assert.False(t, loaded)

	books, err := mgr.SearchBooks("")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestRejectionsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	mgr, _ := newManager(t, WithLogger(logger))

	_, err := mgr.BorrowBook(1, 1, 0)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "borrow rejected")
	assert.Contains(t, buf.String(), "book not found")
}

func TestNewLibraryManagerRejectsBadLoanDays(t *testing.T) {
	_, err := NewLibraryManager(filepath.Join(t.TempDir(), "lib.db"), WithLoanDays(0))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBorrowRejectsDueDatePastYear9999(t *testing.T) {
	mgr, _ := newManager(t)
	bookID, _ := mgr.AddBook("Book", "Author", "", 1)
	memberID, _ := mgr.AddMember("Alice", "", "")

	_, err := mgr.BorrowBook(bookID, memberID, 3_000_000)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 1, copiesAvailable(t, mgr, bookID), "rejected borrow keeps the copy")

	overdue, err := mgr.ListOverdue()
	require.NoError(t, err)
	assert.Empty(t, overdue)

	loans, err := mgr.ListLoans(false)
	require.NoError(t, err)
	assert.Empty(t, loans)
}
