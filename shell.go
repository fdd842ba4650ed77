package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const menu = `
===== Library Management =====
1) Add Book
2) List/Search Books
3) Delete Book
4) Add Member
5) List/Search Members
6) Delete Member
7) Borrow Book
8) Return Book
9) Load Sample Data
10) View Active Loans
11) View All Loans
12) View Overdue Loans
13) Stats Summary
0) Exit`

// shell reads menu choices line by line. The menu itself is only printed when
// input comes from a terminal, so piped scripts produce just the results.
type shell struct {
	a           *app
	sc          *bufio.Scanner
	interactive bool
}

func (a *app) runShell() error {
	sh := &shell{a: a, sc: bufio.NewScanner(a.in)}
	if f, ok := a.in.(*os.File); ok {
		sh.interactive = term.IsTerminal(int(f.Fd()))
	}

	for {
		if sh.interactive {
			fmt.Fprintln(a.out, menu)
		}
		choice, ok := sh.readInt("Choose an option: ", 0, 13)
		if !ok {
			break
		}
		if choice == 0 {
			fmt.Fprintln(a.out, "Goodbye!")
			return nil
		}
		if err := sh.dispatch(choice); err != nil {
			if errors.Is(err, errInputClosed) {
				break
			}
			fmt.Fprintf(a.out, "Error: %v\n", err)
		}
	}
	return sh.sc.Err()
}

var errInputClosed = errors.New("input closed")

func (sh *shell) dispatch(choice int) error {
	a := sh.a
	switch choice {
	case 1:
		title, err := sh.line("Title: ")
		if err != nil {
			return err
		}
		author, err := sh.line("Author: ")
		if err != nil {
			return err
		}
		isbn, err := sh.line("ISBN (optional): ")
		if err != nil {
			return err
		}
		copies, ok := sh.readInt("Total copies: ", 1, -1)
		if !ok {
			return errInputClosed
		}
		return a.addBook(title, author, isbn, copies)
	case 2:
		kw, err := sh.line("Keyword (title/author/isbn, blank for all): ")
		if err != nil {
			return err
		}
		return a.searchBooks(kw)
	case 3:
		id, ok := sh.readInt("Book ID to delete: ", 1, -1)
		if !ok {
			return errInputClosed
		}
		return a.deleteBook(int64(id))
	case 4:
		name, err := sh.line("Name: ")
		if err != nil {
			return err
		}
		email, err := sh.line("Email (optional): ")
		if err != nil {
			return err
		}
		phone, err := sh.line("Phone (optional): ")
		if err != nil {
			return err
		}
		return a.addMember(name, email, phone)
	case 5:
		kw, err := sh.line("Keyword (name/email/phone, blank for all): ")
		if err != nil {
			return err
		}
		return a.searchMembers(kw)
	case 6:
		id, ok := sh.readInt("Member ID to delete: ", 1, -1)
		if !ok {
			return errInputClosed
		}
		return a.deleteMember(int64(id))
	case 7:
		bookID, ok := sh.readInt("Book ID: ", 1, -1)
		if !ok {
			return errInputClosed
		}
		memberID, ok := sh.readInt("Member ID: ", 1, -1)
		if !ok {
			return errInputClosed
		}
		days, ok := sh.readOptionalInt(fmt.Sprintf("Loan duration (days, default %d): ", a.cfg.LoanDays), 1)
		if !ok {
			return errInputClosed
		}
		return a.borrow(int64(bookID), int64(memberID), days)
	case 8:
		id, ok := sh.readInt("Loan ID to return: ", 1, -1)
		if !ok {
			return errInputClosed
		}
		return a.returnLoan(int64(id))
	case 9:
		return a.loadSample()
	case 10:
		return a.listLoans(true)
	case 11:
		return a.listLoans(false)
	case 12:
		return a.listOverdue()
	case 13:
		return a.stats()
	}
	return nil
}

func (sh *shell) line(prompt string) (string, error) {
	fmt.Fprint(sh.a.out, prompt)
	if !sh.sc.Scan() {
		return "", errInputClosed
	}
	return strings.TrimSpace(sh.sc.Text()), nil
}

// readInt prompts until it gets an integer in [lo, hi]. A negative hi means
// no upper bound. ok is false once input runs out.
func (sh *shell) readInt(prompt string, lo, hi int) (int, bool) {
	for {
		s, err := sh.line(prompt)
		if err != nil {
			return 0, false
		}
		if n, ok := sh.parseInt(s, lo, hi); ok {
			return n, true
		}
	}
}

// readOptionalInt is readInt with blank input accepted as 0.
func (sh *shell) readOptionalInt(prompt string, lo int) (int, bool) {
	for {
		s, err := sh.line(prompt)
		if err != nil {
			return 0, false
		}
		if s == "" {
			return 0, true
		}
		if n, ok := sh.parseInt(s, lo, -1); ok {
			return n, true
		}
	}
}

func (sh *shell) parseInt(s string, lo, hi int) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintln(sh.a.out, "Please enter a valid integer.")
		return 0, false
	}
	if n < lo || (hi >= 0 && n > hi) {
		if hi >= 0 {
			fmt.Fprintf(sh.a.out, "Enter a number between %d and %d.\n", lo, hi)
		} else {
			fmt.Fprintf(sh.a.out, "Enter a number of at least %d.\n", lo)
		}
		return 0, false
	}
	return n, true
}
