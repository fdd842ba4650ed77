package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"library-tracker/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// printer renders operation results either as aligned text or as JSON.
type printer struct {
	w    io.Writer
	json bool
}

func (p printer) encode(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(p.w, string(b))
	return err
}

// message prints text, or v as JSON.
func (p printer) message(v interface{}, format string, args ...interface{}) error {
	if p.json {
		return p.encode(v)
	}
	_, err := fmt.Fprintf(p.w, format+"\n", args...)
	return err
}

func (p printer) books(books []library.Book) error {
	if p.json {
		return p.encode(books)
	}
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		rows = append(rows, []string{
			strconv.FormatInt(b.ID, 10),
			b.Title,
			b.Author,
			deref(b.ISBN),
			strconv.Itoa(b.CopiesTotal),
			strconv.Itoa(b.CopiesAvailable),
			b.CreatedAt,
		})
	}
	return writeTable(p.w, []string{"id", "title", "author", "isbn", "copies_total", "copies_available", "created_at"}, rows)
}

func (p printer) members(members []library.Member) error {
	if p.json {
		return p.encode(members)
	}
	rows := make([][]string, 0, len(members))
	for _, m := range members {
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			m.Name,
			deref(m.Email),
			deref(m.Phone),
			m.JoinedAt,
		})
	}
	return writeTable(p.w, []string{"id", "name", "email", "phone", "joined_at"}, rows)
}

// loans prints loan reports. Overdue listings omit the return_date column.
func (p printer) loans(loans []library.LoanView, withReturn bool) error {
	if p.json {
		return p.encode(loans)
	}
	headers := []string{"id", "book_title", "member_name", "loan_date", "due_date"}
	if withReturn {
		headers = append(headers, "return_date")
	}
	rows := make([][]string, 0, len(loans))
	for _, l := range loans {
		row := []string{strconv.FormatInt(l.ID, 10), l.BookTitle, l.MemberName, l.LoanDate, l.DueDate}
		if withReturn {
			row = append(row, deref(l.ReturnDate))
		}
		rows = append(rows, row)
	}
	return writeTable(p.w, headers, rows)
}

func (p printer) stats(s library.Stats) error {
	return p.message(s, "Books: %d | Members: %d | Active loans: %d | Overdue: %d",
		s.Books, s.Members, s.ActiveLoans, s.OverdueLoans)
}

// writeTable prints a header row, a rule and one line per row, columns padded
// to their widest cell and separated by " | ".
func writeTable(w io.Writer, headers []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(no results)")
		return err
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i, cell := range r {
			if n := len([]rune(cell)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sb strings.Builder
	line := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(cell)
			if i < len(cells)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-len([]rune(cell))))
			}
		}
		sb.WriteString("\n")
	}

	line(headers)
	for i, wd := range widths {
		if i > 0 {
			sb.WriteString("-+-")
		}
		sb.WriteString(strings.Repeat("-", wd))
	}
	sb.WriteString("\n")
	for _, r := range rows {
		line(r)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
