package library

import (
	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

var loanColumns = []interface{}{"id", "book_id", "member_id", "loan_date", "due_date", "return_date"}

// BorrowBook records a loan and takes one copy off the shelf in one
// transaction. Preconditions are checked in order: the book exists, it has a
// copy available, the member exists.
func (d *Database) BorrowBook(bookID, memberID int64, loanDate, dueDate string) (int64, error) {
	var id int64
	err := d.withTx(func(tx *sqlx.Tx) error {
		var err error
		id, err = borrow(tx, bookID, memberID, loanDate, dueDate)
		return err
	})
	return id, err
}

func borrow(tx *sqlx.Tx, bookID, memberID int64, loanDate, dueDate string) (int64, error) {
	var avail int
	found, err := get(tx, "get book", &avail,
		dialect.From(tableBooks).Select("copies_available").Where(goqu.C("id").Eq(bookID)))
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrBookNotFound
	}
	if avail <= 0 {
		return 0, ErrNoAvailableCopies
	}

	found, err = get(tx, "get member", new(int64),
		dialect.From(tableMembers).Select("id").Where(goqu.C("id").Eq(memberID)))
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrMemberNotFound
	}

	res, err := exec(tx, dialect.Insert(tableLoans).Prepared(true).Rows(goqu.Record{
		"book_id":   bookID,
		"member_id": memberID,
		"loan_date": loanDate,
		"due_date":  dueDate,
	}))
	if err != nil {
		return 0, storeError("insert loan", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeError("insert loan", err)
	}

	if _, err := exec(tx, dialect.Update(tableBooks).Prepared(true).
		Set(goqu.Record{"copies_available": goqu.L("copies_available - 1")}).
		Where(goqu.C("id").Eq(bookID))); err != nil {
		if constraintOf(err) == constraintCheck {
			return 0, ErrNoAvailableCopies
		}
		return 0, storeError("take copy", err)
	}
	return id, nil
}

// GetLoan fetches a single loan.
func (d *Database) GetLoan(id int64) (*Loan, error) {
	var l Loan
	found, err := get(d.db, "get loan", &l,
		dialect.From(tableLoans).Select(loanColumns...).Where(goqu.C("id").Eq(id)))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrLoanNotFound
	}
	return &l, nil
}

// ReturnBook stamps the loan's return date and puts the copy back on the
// shelf in one transaction. It returns the loan as it was before the return.
func (d *Database) ReturnBook(loanID int64, returnDate string) (*Loan, error) {
	var loan Loan
	err := d.withTx(func(tx *sqlx.Tx) error {
		found, err := get(tx, "get loan", &loan,
			dialect.From(tableLoans).Select(loanColumns...).Where(goqu.C("id").Eq(loanID)))
		if err != nil {
			return err
		}
		if !found {
			return ErrLoanNotFound
		}
		if !loan.Outstanding() {
			return ErrAlreadyReturned
		}

		if _, err := exec(tx, dialect.Update(tableLoans).Prepared(true).
			Set(goqu.Record{"return_date": returnDate}).
			Where(goqu.C("id").Eq(loanID), goqu.C("return_date").IsNull())); err != nil {
			return storeError("stamp return", err)
		}
		if _, err := exec(tx, dialect.Update(tableBooks).Prepared(true).
			Set(goqu.Record{"copies_available": goqu.L("copies_available + 1")}).
			Where(goqu.C("id").Eq(loan.BookID))); err != nil {
			return storeError("restore copy", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// loanViews selects loans joined with their book title and member name.
func loanViews() *goqu.SelectDataset {
	return dialect.From(goqu.T(tableLoans).As("l")).
		Join(goqu.T(tableBooks).As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("l.book_id")))).
		Join(goqu.T(tableMembers).As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("l.member_id")))).
		Select(
			goqu.I("l.id"),
			goqu.I("l.book_id"),
			goqu.I("l.member_id"),
			goqu.I("l.loan_date"),
			goqu.I("l.due_date"),
			goqu.I("l.return_date"),
			goqu.I("b.title").As("book_title"),
			goqu.I("m.name").As("member_name"),
		)
}

// ListLoans returns unreturned loans by due date when activeOnly is set.
// Otherwise every loan, outstanding ones first, each group by due date.
func (d *Database) ListLoans(activeOnly bool) ([]LoanView, error) {
	ds := loanViews()
	if activeOnly {
		ds = ds.Where(goqu.I("l.return_date").IsNull()).
			Order(goqu.I("l.due_date").Asc(), goqu.I("l.id").Asc())
	} else {
		ds = ds.Order(
			goqu.L("CASE WHEN l.return_date IS NULL THEN 0 ELSE 1 END").Asc(),
			goqu.I("l.due_date").Asc(),
			goqu.I("l.id").Asc(),
		)
	}

	loans := []LoanView{}
	if err := selectAll(d.db, "list loans", &loans, ds); err != nil {
		return nil, err
	}
	return loans, nil
}

// ListOverdue returns unreturned loans due strictly before today.
func (d *Database) ListOverdue(today string) ([]LoanView, error) {
	ds := loanViews().
		Where(goqu.I("l.return_date").IsNull(), goqu.I("l.due_date").Lt(today)).
		Order(goqu.I("l.due_date").Asc(), goqu.I("l.id").Asc())

	loans := []LoanView{}
	if err := selectAll(d.db, "list overdue loans", &loans, ds); err != nil {
		return nil, err
	}
	return loans, nil
}

// Stats counts books, members, active and overdue loans in one read
// transaction so the four numbers agree with each other.
func (d *Database) Stats(today string) (Stats, error) {
	var s Stats
	err := d.withTx(func(tx *sqlx.Tx) error {
		var err error
		if s.Books, err = countBooks(tx); err != nil {
			return err
		}
		if s.Members, err = countMembers(tx); err != nil {
			return err
		}
		if s.ActiveLoans, err = count(tx, "count active loans",
			dialect.From(tableLoans).Where(goqu.C("return_date").IsNull())); err != nil {
			return err
		}
		s.OverdueLoans, err = count(tx, "count overdue loans",
			dialect.From(tableLoans).Where(goqu.C("return_date").IsNull(), goqu.C("due_date").Lt(today)))
		return err
	})
	return s, err
}
