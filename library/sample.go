package library

import "github.com/jmoiron/sqlx"

func strPtr(s string) *string { return &s }

var sampleBooks = []Book{
	{Title: "Clean Code", Author: "Robert C. Martin", ISBN: strPtr("9780132350884"), CopiesTotal: 3},
	{Title: "Fluent Python", Author: "Luciano Ramalho", ISBN: strPtr("9781491946008"), CopiesTotal: 2},
	{Title: "Automate the Boring Stuff with Python", Author: "Al Sweigart", ISBN: strPtr("9781593275990"), CopiesTotal: 4},
}

var sampleMembers = []Member{
	{Name: "Alice", Email: strPtr("alice@example.com"), Phone: strPtr("9000000001")},
	{Name: "Bob", Email: strPtr("bob@example.com"), Phone: strPtr("9000000002")},
}

// sampleLoans index into sampleBooks and sampleMembers.
var sampleLoans = []struct{ book, member, days int }{
	{book: 0, member: 0, days: 7},
	{book: 1, member: 1, days: 14},
}

// seedSample loads the demonstration catalog in one transaction. It does
// nothing and reports false when either books or members already has rows.
func (d *Database) seedSample(today string) (bool, error) {
	var seeded bool
	err := d.withTx(func(tx *sqlx.Tx) error {
		books, err := countBooks(tx)
		if err != nil {
			return err
		}
		members, err := countMembers(tx)
		if err != nil {
			return err
		}
		if books > 0 || members > 0 {
			return nil
		}

		bookIDs := make([]int64, len(sampleBooks))
		for i, b := range sampleBooks {
			b.CreatedAt = today
			if bookIDs[i], err = insertBook(tx, b); err != nil {
				return err
			}
		}
		memberIDs := make([]int64, len(sampleMembers))
		for i, m := range sampleMembers {
			m.JoinedAt = today
			if memberIDs[i], err = insertMember(tx, m); err != nil {
				return err
			}
		}
		for _, l := range sampleLoans {
			due, err := addDays(today, l.days)
			if err != nil {
				return validationError(err.Error())
			}
			if _, err := borrow(tx, bookIDs[l.book], memberIDs[l.member], today, due); err != nil {
				return err
			}
		}
		seeded = true
		return nil
	})
	return seeded, err
}
