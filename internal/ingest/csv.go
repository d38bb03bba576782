// Package ingest turns raw timing system exports into the tabular
// structure the analysis engine consumes. Exports arrive as
// semicolon-delimited CSV, frequently with byte order marks, legacy
// encodings and assorted NA tokens, so the reader here is deliberately
// forgiving: it normalises what it can and leaves cell-level parsing to
// the engine.
package ingest

import (
	"bufio"
	"encoding/csv"
	"io"
	"io/ioutil"
	"strings"
	"unicode/utf8"

	"github.com/dimchansky/utfbom"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/apexsignal/pitwall/internal/analysis"
)

// naTokens are treated as missing values and replaced with empty cells.
var naTokens = map[string]bool{
	"NA":   true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"-":    true,
}

// ReadTable reads a delimited export into a Table. The byte order mark is
// stripped if present, non-UTF-8 input falls back to a Latin-1 decode, and
// the delimiter is sniffed from the header line (semicolon preferred, with
// comma as fallback for hand-edited files).
func ReadTable(r io.Reader) (*analysis.Table, error) {
	raw, err := ioutil.ReadAll(utfbom.SkipOnly(r))

	if err != nil {
		return nil, errors.Wrap(err, "could not read table data")
	}

	text := string(raw)

	if !utf8.ValidString(text) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)

		if err != nil {
			return nil, errors.Wrap(err, "could not decode table data")
		}

		text = string(decoded)
	}

	headerLine, err := bufio.NewReader(strings.NewReader(text)).ReadString('\n')

	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "could not read table header")
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(headerLine)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()

	if err != nil {
		return nil, errors.Wrap(err, "could not parse table data")
	}

	if len(records) == 0 {
		return nil, errors.New("table data is empty")
	}

	header := records[0]

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := make([][]string, 0, len(records)-1)

	for _, record := range records[1:] {
		empty := true

		for i, cell := range record {
			cell = strings.TrimSpace(cell)

			if naTokens[cell] {
				cell = ""
			}

			if cell != "" {
				empty = false
			}

			record[i] = cell
		}

		if empty {
			continue
		}

		rows = append(rows, record)
	}

	table := &analysis.Table{
		Columns: header,
		Rows:    rows,
	}

	dropEmptyColumns(table)

	return table, nil
}

func sniffDelimiter(headerLine string) rune {
	if strings.ContainsRune(headerLine, ';') {
		return ';'
	}

	return ','
}

// dropEmptyColumns removes columns with no value in any row, mirroring the
// exports that pad trailing semicolons onto every line.
func dropEmptyColumns(t *analysis.Table) {
	keep := make([]bool, len(t.Columns))

	for i := range t.Columns {
		for row := range t.Rows {
			if t.Cell(row, i) != "" {
				keep[i] = true
				break
			}
		}
	}

	var columns []string

	for i, name := range t.Columns {
		if keep[i] {
			columns = append(columns, name)
		}
	}

	if len(columns) == len(t.Columns) {
		return
	}

	rows := make([][]string, len(t.Rows))

	for rowIndex := range t.Rows {
		var cells []string

		for i := range t.Columns {
			if keep[i] {
				cells = append(cells, t.Cell(rowIndex, i))
			}
		}

		rows[rowIndex] = cells
	}

	t.Columns = columns
	t.Rows = rows
}
