// Package importer implements the contact bulk-import pipeline:
// parsing loosely-structured tabular files into candidate records,
// lenient field validation, duplicate detection against existing
// contacts, and the transactional apply step. The package has no HTTP
// dependencies and is driven by the web and CLI layers.
package importer

// RawField preserves one original header/value pair from the input
// file, in column order. Kept for audit and debugging; never used for
// matching.
type RawField struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// CandidateRecord is one row extracted from an import file, not yet
// committed to the store. RowNumber is 1-indexed over data rows
// (header excluded) and is the row's stable identity for the life of
// one import session. A candidate surfaced by the parser always has
// at least one of FullName, Email, Phone non-empty.
type CandidateRecord struct {
	RowNumber    int        `json:"rowNumber"`
	FullName     string     `json:"fullName,omitempty"`
	FirstName    string     `json:"firstName,omitempty"`
	LastName     string     `json:"lastName,omitempty"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Organization string     `json:"organization,omitempty"`
	JobTitle     string     `json:"jobTitle,omitempty"`
	Address      string     `json:"address,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	RawFields    []RawField `json:"rawFields,omitempty"`
}

// ParseDiagnostics collects row-scoped parse errors and informational
// warnings (unmapped columns, dropped rows). Read-only after parse.
type ParseDiagnostics struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidationFinding is one lenient field check result. Every defined
// check degrades to a warning; there is no blocking severity.
type ValidationFinding struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// MatchType identifies which detection pass produced a duplicate
// match.
type MatchType string

const (
	MatchEmail     MatchType = "email"
	MatchName      MatchType = "name"
	MatchFuzzyName MatchType = "fuzzyName"
)

// Confidence grades how much trust to place in a duplicate match.
// Exact-field passes report ConfidenceExact; fuzzy name matches
// report ConfidenceHigh at similarity >= 0.9 and ConfidenceMedium
// below that.
type Confidence string

const (
	ConfidenceExact  Confidence = "exact"
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// ExistingRecord is the matcher's read model of a stored contact:
// just enough to run the email and name passes.
type ExistingRecord struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// DuplicateMatch pairs a candidate with the existing record it most
// likely duplicates. At most one match exists per RowNumber; the
// first successful pass wins.
type DuplicateMatch struct {
	Candidate  CandidateRecord `json:"candidate"`
	ExistingID string          `json:"existingId"`
	MatchType  MatchType       `json:"matchType"`
	Confidence Confidence      `json:"confidence"`
}

// ImportAction is the user's resolution for one candidate row.
type ImportAction string

const (
	ActionSkip   ImportAction = "skip"
	ActionUpdate ImportAction = "update"
	ActionCreate ImportAction = "create"
)

// ImportDecision is one per-row resolution supplied by the caller.
// ExistingID is required when Action is ActionUpdate and ignored
// otherwise. Rows without a decision default to skip.
type ImportDecision struct {
	RowNumber  int          `json:"rowNumber"`
	Action     ImportAction `json:"action"`
	ExistingID string       `json:"existingId,omitempty"`
}

// RowFailure records one row whose create/update failed during
// execution. Failures are collected in row-processing order.
type RowFailure struct {
	RowNumber int    `json:"rowNumber"`
	Message   string `json:"message"`
}

// ImportOutcome is the final accounting of one execute call. When
// Success is false the whole transaction was rolled back and the
// counters report only what had succeeded before the rollback;
// nothing was persisted.
type ImportOutcome struct {
	Created  int          `json:"created"`
	Updated  int          `json:"updated"`
	Skipped  int          `json:"skipped"`
	Failures []RowFailure `json:"failures"`
	Success  bool         `json:"success"`
}
