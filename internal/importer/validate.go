package importer

// validate.go performs lenient content checks on parsed candidates.
// Every check degrades to a warning; nothing here blocks an import.
// The operator sees the findings next to the preview and decides.

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxAddressLen = 500
	maxNotesLen   = 2000
)

// Validate inspects each candidate and returns advisory findings in
// candidate order. An empty slice means nothing looked off.
func Validate(candidates []CandidateRecord) []ValidationFinding {
	var findings []ValidationFinding

	add := func(row int, field, message string) {
		findings = append(findings, ValidationFinding{Row: row, Field: field, Message: message})
	}

	for _, c := range candidates {
		if c.Email != "" && !emailLooksValid(c.Email) {
			add(c.RowNumber, FieldEmail, fmt.Sprintf("email %q does not look like a valid address", c.Email))
		}

		if c.Phone != "" {
			if digits := phoneDigits(c.Phone); len(digits) < 10 {
				add(c.RowNumber, FieldPhone, fmt.Sprintf("phone number %q appears incomplete", c.Phone))
			}
		}

		// The parser drops rows with no identity; re-checked here so a
		// caller feeding hand-built candidates gets the same warning.
		if c.FullName == "" && c.FirstName == "" && c.LastName == "" && c.Email == "" && c.Phone == "" {
			add(c.RowNumber, "record", "record has no name, email, or phone")
		}

		if c.Organization != "" && utf8.RuneCountInString(c.Organization) < 2 {
			add(c.RowNumber, FieldOrganization, "organization name is too short")
		}
		if utf8.RuneCountInString(c.Address) > maxAddressLen {
			add(c.RowNumber, FieldAddress, fmt.Sprintf("address exceeds %d characters", maxAddressLen))
		}
		if utf8.RuneCountInString(c.Notes) > maxNotesLen {
			add(c.RowNumber, FieldNotes, fmt.Sprintf("notes exceed %d characters", maxNotesLen))
		}
	}

	return findings
}

// emailLooksValid applies a minimal local@domain.tld shape check:
// exactly one @, a non-empty local part, no whitespace anywhere, and
// a dot inside the domain with characters on both sides.
func emailLooksValid(s string) bool {
	if strings.ContainsAny(s, " \t") {
		return false
	}
	if strings.Count(s, "@") != 1 {
		return false
	}

	at := strings.Index(s, "@")
	local, domain := s[:at], s[at+1:]
	if local == "" || domain == "" {
		return false
	}

	dot := strings.Index(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	return true
}

// phoneDigits normalizes a phone value for the completeness check:
// common separators are stripped, then a leading "+1" country code,
// then a bare leading "1". The remaining digits are returned.
func phoneDigits(s string) string {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, s)

	normalized = strings.TrimPrefix(normalized, "+1")
	normalized = strings.TrimPrefix(normalized, "1")

	var digits strings.Builder
	for _, r := range normalized {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}
