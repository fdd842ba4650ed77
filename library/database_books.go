package library

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

var bookColumns = []interface{}{
	"id", "title", "author", "isbn", "copies_total", "copies_available", "created_at",
}

// AddBook inserts b with every copy on the shelf and returns its new id.
func (d *Database) AddBook(b Book) (int64, error) {
	var id int64
	err := d.withTx(func(tx *sqlx.Tx) error {
		var err error
		id, err = insertBook(tx, b)
		return err
	})
	return id, err
}

func insertBook(tx *sqlx.Tx, b Book) (int64, error) {
	if b.ISBN != nil {
		taken, err := get(tx, "check isbn", new(int64),
			dialect.From(tableBooks).Select("id").Where(goqu.C("isbn").Eq(*b.ISBN)))
		if err != nil {
			return 0, err
		}
		if taken {
			return 0, ErrDuplicateISBN
		}
	}

	res, err := exec(tx, dialect.Insert(tableBooks).Prepared(true).Rows(goqu.Record{
		"title":            b.Title,
		"author":           b.Author,
		"isbn":             b.ISBN,
		"copies_total":     b.CopiesTotal,
		"copies_available": b.CopiesTotal,
		"created_at":       b.CreatedAt,
	}))
	if err != nil {
		switch constraintOf(err) {
		case constraintUnique:
			return 0, ErrDuplicateISBN
		case constraintCheck:
			return 0, validationError("copies must be at least 1")
		}
		return 0, storeError("insert book", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeError("insert book", err)
	}
	return id, nil
}

// GetBook fetches a single book.
func (d *Database) GetBook(id int64) (*Book, error) {
	var b Book
	found, err := get(d.db, "get book", &b,
		dialect.From(tableBooks).Select(bookColumns...).Where(goqu.C("id").Eq(id)))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrBookNotFound
	}
	return &b, nil
}

// SearchBooks returns books ordered by id whose title, author or ISBN contains
// keyword, ignoring case. A blank keyword lists every book.
func (d *Database) SearchBooks(keyword string) ([]Book, error) {
	ds := dialect.From(tableBooks).Select(bookColumns...).Order(goqu.C("id").Asc())
	if kw := strings.ToLower(strings.TrimSpace(keyword)); kw != "" {
		ds = ds.Where(goqu.Or(
			containsFold("title", kw),
			containsFold("author", kw),
			containsFold("isbn", kw),
		))
	}

	books := []Book{}
	if err := selectAll(d.db, "search books", &books, ds); err != nil {
		return nil, err
	}
	return books, nil
}

// DeleteBook removes the book unless a loan for it is still out. It reports
// whether a row was actually removed; an unknown id is not an error.
func (d *Database) DeleteBook(id int64) (bool, error) {
	var deleted bool
	err := d.withTx(func(tx *sqlx.Tx) error {
		active, err := count(tx, "count active loans", dialect.From(tableLoans).Where(
			goqu.C("book_id").Eq(id),
			goqu.C("return_date").IsNull(),
		))
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrBookHasActiveLoans
		}

		res, err := exec(tx, dialect.Delete(tableBooks).Prepared(true).Where(goqu.C("id").Eq(id)))
		if err != nil {
			return storeError("delete book", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storeError("delete book", err)
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

func countBooks(q sqlx.Queryer) (int, error) {
	return count(q, "count books", dialect.From(tableBooks))
}
