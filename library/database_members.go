package library

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

var memberColumns = []interface{}{"id", "name", "email", "phone", "joined_at"}

// AddMember inserts m and returns its new id.
func (d *Database) AddMember(m Member) (int64, error) {
	var id int64
	err := d.withTx(func(tx *sqlx.Tx) error {
		var err error
		id, err = insertMember(tx, m)
		return err
	})
	return id, err
}

func insertMember(tx *sqlx.Tx, m Member) (int64, error) {
	if m.Email != nil {
		taken, err := get(tx, "check email", new(int64),
			dialect.From(tableMembers).Select("id").Where(goqu.C("email").Eq(*m.Email)))
		if err != nil {
			return 0, err
		}
		if taken {
			return 0, ErrDuplicateEmail
		}
	}

	res, err := exec(tx, dialect.Insert(tableMembers).Prepared(true).Rows(goqu.Record{
		"name":      m.Name,
		"email":     m.Email,
		"phone":     m.Phone,
		"joined_at": m.JoinedAt,
	}))
	if err != nil {
		if constraintOf(err) == constraintUnique {
			return 0, ErrDuplicateEmail
		}
		return 0, storeError("insert member", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeError("insert member", err)
	}
	return id, nil
}

// GetMember fetches a single member.
func (d *Database) GetMember(id int64) (*Member, error) {
	var m Member
	found, err := get(d.db, "get member", &m,
		dialect.From(tableMembers).Select(memberColumns...).Where(goqu.C("id").Eq(id)))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrMemberNotFound
	}
	return &m, nil
}

// SearchMembers returns members ordered by id whose name, email or phone
// contains keyword, ignoring case. A blank keyword lists every member.
func (d *Database) SearchMembers(keyword string) ([]Member, error) {
	ds := dialect.From(tableMembers).Select(memberColumns...).Order(goqu.C("id").Asc())
	if kw := strings.ToLower(strings.TrimSpace(keyword)); kw != "" {
		ds = ds.Where(goqu.Or(
			containsFold("name", kw),
			containsFold("email", kw),
			containsFold("phone", kw),
		))
	}

	members := []Member{}
	if err := selectAll(d.db, "search members", &members, ds); err != nil {
		return nil, err
	}
	return members, nil
}

// DeleteMember removes the member unless they still hold a loan. Same
// reporting as DeleteBook.
func (d *Database) DeleteMember(id int64) (bool, error) {
	var deleted bool
	err := d.withTx(func(tx *sqlx.Tx) error {
		active, err := count(tx, "count active loans", dialect.From(tableLoans).Where(
			goqu.C("member_id").Eq(id),
			goqu.C("return_date").IsNull(),
		))
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrMemberHasActiveLoans
		}

		res, err := exec(tx, dialect.Delete(tableMembers).Prepared(true).Where(goqu.C("id").Eq(id)))
		if err != nil {
			return storeError("delete member", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storeError("delete member", err)
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

func countMembers(q sqlx.Queryer) (int, error) {
	return count(q, "count members", dialect.From(tableMembers))
}
