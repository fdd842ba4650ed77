package library

// Book represents a catalog entry and how many of its copies are on the shelf.
// CopiesAvailable only moves through BorrowBook and ReturnBook.
type Book struct {
	ID              int64   `db:"id" json:"id"`
	Title           string  `db:"title" json:"title"`
	Author          string  `db:"author" json:"author"`
	ISBN            *string `db:"isbn" json:"isbn"`
	CopiesTotal     int     `db:"copies_total" json:"copies_total"`
	CopiesAvailable int     `db:"copies_available" json:"copies_available"`
	CreatedAt       string  `db:"created_at" json:"created_at"`
}

// Member represents a registered library member.
type Member struct {
	ID       int64   `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	Email    *string `db:"email" json:"email"`
	Phone    *string `db:"phone" json:"phone"`
	JoinedAt string  `db:"joined_at" json:"joined_at"`
}

// Loan is one copy of a book lent to a member. ReturnDate stays nil while the
// loan is outstanding and is written exactly once.
type Loan struct {
	ID         int64   `db:"id" json:"id"`
	BookID     int64   `db:"book_id" json:"book_id"`
	MemberID   int64   `db:"member_id" json:"member_id"`
	LoanDate   string  `db:"loan_date" json:"loan_date"`
	DueDate    string  `db:"due_date" json:"due_date"`
	ReturnDate *string `db:"return_date" json:"return_date"`
}

// Outstanding reports whether the loan has not been returned yet.
func (l Loan) Outstanding() bool { return l.ReturnDate == nil }

// LoanView is a Loan joined with the title and borrower name used by reports.
type LoanView struct {
	Loan
	BookTitle  string `db:"book_title" json:"book_title"`
	MemberName string `db:"member_name" json:"member_name"`
}

// Stats summarises the library at the moment it was computed.
type Stats struct {
	Books        int `db:"books" json:"books"`
	Members      int `db:"members" json:"members"`
	ActiveLoans  int `db:"active_loans" json:"active_loans"`
	OverdueLoans int `db:"overdue_loans" json:"overdue_loans"`
}
