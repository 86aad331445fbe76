package importer

// parser.go turns raw tabular text into CandidateRecords.
//
// The input is the messy kind of CSV people export from mail clients
// and spreadsheets: unknown column names, quoted fields with embedded
// commas, Excel formula artifacts, stray BOMs. Column headers are
// resolved against a FieldAliases table; rows that fail extraction
// are reported per row without aborting the batch.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Input-format failures. Anything else the parser reports is
// row-scoped and lands in ParseDiagnostics instead.
var (
	ErrEmptyInput   = errors.New("file is empty")
	ErrTooFewLines  = errors.New("file must contain a header row and at least one data row")
	ErrHeaderUnread = errors.New("could not read header row")
)

// Parser extracts candidate records from tabular text using an
// injected alias table. Parsers are stateless and safe for concurrent
// use.
type Parser struct {
	aliases FieldAliases
}

// NewParser returns a Parser that resolves column headers with the
// given alias table.
func NewParser(aliases FieldAliases) *Parser {
	return &Parser{aliases: aliases}
}

// column is one header slot: the cleaned original name plus the
// semantic field it resolved to ("" when unmapped).
type column struct {
	name  string
	field string
}

// Parse reads the whole input and returns the retained candidates
// plus diagnostics. A non-nil error means the input itself was
// unusable (empty, header-only, or an unreadable header row) and no
// candidates exist; row-scoped problems never produce an error.
func (p *Parser) Parse(rawText string) ([]CandidateRecord, ParseDiagnostics, error) {
	var diags ParseDiagnostics

	raw := sanitizeText(rawText)
	if strings.TrimSpace(raw) == "" {
		return nil, diags, ErrEmptyInput
	}
	if countNonBlankLines(raw) < 2 {
		return nil, diags, ErrTooFewLines
	}

	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := readHeader(r)
	if err != nil {
		return nil, diags, fmt.Errorf("%w: %v", ErrHeaderUnread, err)
	}
	columns := p.resolveColumns(header, &diags)

	var candidates []CandidateRecord
	rowNum := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rowNum++
				diags.Errors = append(diags.Errors, fmt.Sprintf("row %d: %v", rowNum, parseErr.Err))
				continue
			}
			return candidates, diags, fmt.Errorf("read input: %w", err)
		}

		rowNum++
		if isEmptyRow(record) {
			continue
		}

		rec := p.extractRow(rowNum, record, columns)
		reconcileName(&rec)
		if rec.FullName == "" && rec.Email == "" && rec.Phone == "" {
			diags.Warnings = append(diags.Warnings, fmt.Sprintf("row %d: no identifying information", rowNum))
			continue
		}
		candidates = append(candidates, rec)
	}

	return candidates, diags, nil
}

// readHeader returns the first non-blank record.
func readHeader(r *csv.Reader) ([]string, error) {
	for {
		record, err := r.Read()
		if err != nil {
			return nil, err
		}
		if !isEmptyRow(record) {
			return record, nil
		}
	}
}

// resolveColumns maps each header cell to a semantic field. The first
// column to claim a field keeps it; later columns resolving to the
// same field are demoted to raw-only with a warning, as are columns
// matching no alias at all.
func (p *Parser) resolveColumns(header []string, diags *ParseDiagnostics) []column {
	columns := make([]column, len(header))
	claimed := make(map[string]string, len(header))

	for i, cell := range header {
		name := cleanCell(cell)
		columns[i] = column{name: name}
		if name == "" {
			continue
		}

		field, ok := p.aliases.Resolve(name)
		if !ok {
			diags.Warnings = append(diags.Warnings, fmt.Sprintf("unmapped column %q", name))
			continue
		}
		if prev, taken := claimed[field]; taken {
			diags.Warnings = append(diags.Warnings,
				fmt.Sprintf("column %q ignored: %s already mapped from %q", name, field, prev))
			continue
		}
		claimed[field] = name
		columns[i].field = field
	}

	return columns
}

// extractRow builds a candidate from one data record. Cells beyond
// the header width are dropped; short records leave trailing fields
// empty.
func (p *Parser) extractRow(rowNum int, record []string, columns []column) CandidateRecord {
	rec := CandidateRecord{RowNumber: rowNum}

	n := len(record)
	if n > len(columns) {
		n = len(columns)
	}
	for i := 0; i < n; i++ {
		value := cleanCell(record[i])
		rec.RawFields = append(rec.RawFields, RawField{Column: columns[i].name, Value: value})
		if columns[i].field == "" || value == "" {
			continue
		}
		setField(&rec, columns[i].field, value)
	}

	return rec
}

func setField(rec *CandidateRecord, field, value string) {
	switch field {
	case FieldFullName:
		rec.FullName = value
	case FieldFirstName:
		rec.FirstName = value
	case FieldLastName:
		rec.LastName = value
	case FieldEmail:
		rec.Email = value
	case FieldPhone:
		rec.Phone = value
	case FieldOrganization:
		rec.Organization = value
	case FieldJobTitle:
		rec.JobTitle = value
	case FieldAddress:
		rec.Address = value
	case FieldNotes:
		rec.Notes = value
	}
}

// reconcileName fills whichever side of the name is missing. An empty
// FullName is synthesized from the parts; a FullName with no parts is
// split on whitespace with the last token as LastName. A single-token
// name populates FirstName only.
func reconcileName(rec *CandidateRecord) {
	switch {
	case rec.FullName == "" && (rec.FirstName != "" || rec.LastName != ""):
		parts := make([]string, 0, 2)
		if rec.FirstName != "" {
			parts = append(parts, rec.FirstName)
		}
		if rec.LastName != "" {
			parts = append(parts, rec.LastName)
		}
		rec.FullName = strings.Join(parts, " ")

	case rec.FullName != "" && rec.FirstName == "" && rec.LastName == "":
		tokens := strings.Fields(rec.FullName)
		if len(tokens) == 1 {
			rec.FirstName = tokens[0]
			return
		}
		rec.FirstName = strings.Join(tokens[:len(tokens)-1], " ")
		rec.LastName = tokens[len(tokens)-1]
	}
}

// cleanCell trims a cell and strips spreadsheet export artifacts:
// Excel formula wrappers (="value") and stray surrounding quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// sanitizeText strips a UTF-8 BOM and replaces invalid byte sequences
// so the csv reader never sees broken encoding.
func sanitizeText(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

func countNonBlankLines(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
