// Package csvimport reads spreadsheet exports into ledger records
package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmptyFile is returned when the input has no bytes at all
	ErrEmptyFile = errors.New("CSV file is empty")
	// ErrInvalidEncoding is returned when the input is not UTF-8
	ErrInvalidEncoding = errors.New("CSV file is not valid UTF-8")
	// ErrMissingHeader is returned when the first row is missing or blank
	ErrMissingHeader = errors.New("CSV file missing header row")
	// ErrMissingColumns is returned when required headers are absent
	ErrMissingColumns = errors.New("CSV file missing required columns")
)

const utf8BOM = "\xEF\xBB\xBF"

// encodingProbeSize is how much of the input is checked for UTF-8 up front
const encodingProbeSize = 4096

// Parser reads a CSV with a header row. Header names are matched
// case-insensitively and surrounding whitespace is dropped everywhere.
type Parser struct {
	reader  *csv.Reader
	columns map[string]int
	headers []string
}

// Option configures a Parser
type Option func(*csv.Reader)

// WithDelimiter sets the field delimiter (default comma)
func WithDelimiter(d rune) Option {
	return func(r *csv.Reader) {
		r.Comma = d
	}
}

// NewParser strips a UTF-8 byte order mark, checks the encoding and reads
// the header row.
func NewParser(r io.Reader, opts ...Option) (*Parser, error) {
	buf := bufio.NewReader(r)

	probe, err := buf.Peek(encodingProbeSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read CSV: %w", err)
	}
	if len(probe) == 0 {
		return nil, ErrEmptyFile
	}
	if strings.HasPrefix(string(probe), utf8BOM) {
		_, _ = buf.Discard(3)
		probe = probe[3:]
	}
	if len(probe) == encodingProbeSize-len(utf8BOM) || len(probe) == encodingProbeSize {
		// a full probe may end inside a multi-byte rune
		probe = trimPartialRune(probe)
	}
	if !utf8.Valid(probe) {
		return nil, ErrInvalidEncoding
	}

	reader := csv.NewReader(buf)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	for _, opt := range opts {
		opt(reader)
	}

	p := &Parser{reader: reader, columns: make(map[string]int)}
	if err := p.readHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) readHeader() error {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	p.headers = make([]string, len(record))
	blank := true
	for i, h := range record {
		name := strings.ToLower(strings.TrimSpace(h))
		p.headers[i] = name
		if name != "" {
			blank = false
			if _, dup := p.columns[name]; !dup {
				p.columns[name] = i
			}
		}
	}
	if blank {
		return ErrMissingHeader
	}
	return nil
}

// Headers returns the normalized header names in file order
func (p *Parser) Headers() []string {
	return p.headers
}

// Require reports every missing column in one error
func (p *Parser) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if _, ok := p.columns[strings.ToLower(c)]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// Row is one data line keyed by normalized header name
type Row struct {
	Line   int
	Fields map[string]string
}

// Get returns the value of column, or "" when the row is short
func (r *Row) Get(column string) string {
	return r.Fields[strings.ToLower(column)]
}

// IsEmpty reports whether every field is blank
func (r *Row) IsEmpty() bool {
	for _, v := range r.Fields {
		if v != "" {
			return false
		}
	}
	return true
}

// Next returns the next data row, or io.EOF after the last one
func (p *Parser) Next() (*Row, error) {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		// csv.ParseError already names the line
		return nil, fmt.Errorf("read row: %w", err)
	}
	// blank lines are skipped by the reader, so ask it where the record began
	line, _ := p.reader.FieldPos(0)

	row := &Row{Line: line, Fields: make(map[string]string, len(p.columns))}
	for name, i := range p.columns {
		if i < len(record) {
			row.Fields[name] = strings.TrimSpace(record[i])
		} else {
			row.Fields[name] = ""
		}
	}
	return row, nil
}

func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}
