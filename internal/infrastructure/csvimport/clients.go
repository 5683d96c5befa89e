package csvimport

import (
	"errors"
	"io"
)

// ClientRecord is one client line of an import file. Values are raw; the
// billing domain validates them when the client is built.
type ClientRecord struct {
	Line    int
	Name    string
	Email   string
	Company string
}

// ReadClients reads a client export with columns name, email and an optional
// company. Rows with every field blank are skipped.
func ReadClients(r io.Reader, opts ...Option) ([]ClientRecord, error) {
	p, err := NewParser(r, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Require("name", "email"); err != nil {
		return nil, err
	}

	var records []ClientRecord
	for {
		row, err := p.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		if row.IsEmpty() {
			continue
		}
		records = append(records, ClientRecord{
			Line:    row.Line,
			Name:    row.Get("name"),
			Email:   row.Get("email"),
			Company: row.Get("company"),
		})
	}
}
