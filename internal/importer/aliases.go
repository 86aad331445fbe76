package importer

// aliases.go maps free-form column headers to semantic contact fields.
//
// The table is an explicit immutable value handed to the Parser, not a
// package-level global, so tests and deployments can swap it without
// hidden state. Matching is case/space/punctuation-insensitive and
// accepts substring containment in either direction, so "Email
// Address" and "email" both resolve to the email field.

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Semantic field names assignable from an import file. These double
// as the JSON keys of CandidateRecord and the valid keys of an alias
// override file.
const (
	FieldFullName     = "fullName"
	FieldFirstName    = "firstName"
	FieldLastName     = "lastName"
	FieldEmail        = "email"
	FieldPhone        = "phone"
	FieldOrganization = "organization"
	FieldJobTitle     = "jobTitle"
	FieldAddress      = "address"
	FieldNotes        = "notes"
)

type aliasEntry struct {
	field   string
	aliases []string // normalized forms, table order preserved
}

// FieldAliases is an immutable header-to-field lookup table. Build
// one with DefaultFieldAliases or LoadFieldAliases and share it
// freely; it is safe for concurrent use.
type FieldAliases struct {
	entries []aliasEntry
}

// DefaultFieldAliases returns the built-in alias table covering the
// header spellings commonly seen in exported contact lists.
func DefaultFieldAliases() FieldAliases {
	return newFieldAliases(map[string][]string{
		FieldFullName:     {"name", "full name", "contact name", "display name", "contact"},
		FieldFirstName:    {"first name", "first", "given name", "given", "forename"},
		FieldLastName:     {"last name", "last", "surname", "family name", "family"},
		FieldEmail:        {"email", "e-mail", "email address", "mail"},
		FieldPhone:        {"phone", "phone number", "telephone", "tel", "mobile", "cell", "cell phone", "mobile phone"},
		FieldOrganization: {"organization", "organisation", "company", "org", "employer", "business"},
		FieldJobTitle:     {"job title", "title", "position", "role"},
		FieldAddress:      {"address", "street address", "street", "mailing address", "location", "home address"},
		FieldNotes:        {"notes", "note", "comments", "comment", "description", "remarks"},
	})
}

// fieldOrder fixes the order entries are consulted in. Ties between
// equally good alias matches resolve to the earlier field.
var fieldOrder = []string{
	FieldFullName,
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhone,
	FieldOrganization,
	FieldJobTitle,
	FieldAddress,
	FieldNotes,
}

func newFieldAliases(byField map[string][]string) FieldAliases {
	var fa FieldAliases
	for _, field := range fieldOrder {
		raw, ok := byField[field]
		if !ok {
			continue
		}
		entry := aliasEntry{field: field}
		for _, a := range raw {
			if n := normalizeHeader(a); n != "" {
				entry.aliases = append(entry.aliases, n)
			}
		}
		fa.entries = append(fa.entries, entry)
	}
	return fa
}

// LoadFieldAliases reads a YAML override file mapping field names to
// alias lists. Fields named in the file replace the default entry for
// that field; unnamed fields keep their defaults. An empty path
// returns the default table unchanged.
func LoadFieldAliases(path string) (FieldAliases, error) {
	if path == "" {
		return DefaultFieldAliases(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return FieldAliases{}, fmt.Errorf("read alias file: %w", err)
	}

	var overrides map[string][]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return FieldAliases{}, fmt.Errorf("parse alias file %s: %w", path, err)
	}

	known := make(map[string]bool, len(fieldOrder))
	for _, f := range fieldOrder {
		known[f] = true
	}

	merged := make(map[string][]string, len(fieldOrder))
	for _, entry := range DefaultFieldAliases().entries {
		merged[entry.field] = entry.aliases
	}
	for field, aliases := range overrides {
		if !known[field] {
			return FieldAliases{}, fmt.Errorf("alias file %s: unknown field %q", path, field)
		}
		if len(aliases) == 0 {
			return FieldAliases{}, fmt.Errorf("alias file %s: field %q has no aliases", path, field)
		}
		merged[field] = aliases
	}

	return newFieldAliases(merged), nil
}

// Resolve maps a column header to a semantic field name. A header
// matches an alias when their normalized forms are equal or one
// contains the other. When several aliases match, the one sharing the
// longest overlap with the header wins ("Company Name" prefers
// organization's "company" over fullName's "name"); remaining ties
// keep the earlier field in table order.
func (fa FieldAliases) Resolve(header string) (string, bool) {
	h := normalizeHeader(header)
	if h == "" {
		return "", false
	}

	bestField := ""
	bestScore := 0
	for _, entry := range fa.entries {
		for _, alias := range entry.aliases {
			score := overlap(h, alias)
			if score > bestScore {
				bestScore = score
				bestField = entry.field
			}
		}
	}
	if bestField == "" {
		return "", false
	}
	return bestField, true
}

// overlap returns the length of the shorter string when one contains
// the other (equality included), else 0.
func overlap(a, b string) int {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if strings.Contains(long, short) {
		return len(short)
	}
	return 0
}

// normalizeHeader lowercases and strips everything that is not a
// letter or digit, making comparison insensitive to case, spacing,
// and punctuation.
func normalizeHeader(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
