// Package csvtable reads the spreadsheet exports the room and student tables
// ship as: one header line, ',' or ';' separated, optional UTF-8 BOM.
package csvtable

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoHeader is returned for an empty file or a blank header line.
var ErrNoHeader = errors.New("table has no header")

// DetectSeparator picks ';' when it outnumbers ',' in the header.
func DetectSeparator(header string) rune {
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

// SafeInt parses a count, degrading to 0.
func SafeInt(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

// Reader yields the data rows after the header.
type Reader struct {
	Header    []string
	Separator rune

	csv  *csv.Reader
	line int
}

// NewReader consumes the header line and prepares to read rows.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))

	header, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header = strings.TrimRight(header, "\r\n")
	if strings.TrimSpace(header) == "" {
		return nil, ErrNoHeader
	}

	sep := DetectSeparator(header)
	cr := csv.NewReader(br)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	names := strings.Split(header, string(sep))
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}

	return &Reader{Header: names, Separator: sep, csv: cr, line: 1}, nil
}

// Next returns the next row with every field trimmed, and its line number.
// It returns io.EOF after the last row. A malformed row returns its error and
// reading may continue.
func (r *Reader) Next() ([]string, int, error) {
	fields, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return nil, r.line, io.EOF
	}
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			r.line = perr.StartLine + 1
		}
		return nil, r.line, err
	}
	if len(fields) > 0 {
		line, _ := r.csv.FieldPos(0)
		r.line = line + 1
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, r.line, nil
}
