// Package service wires the import pipeline components together for
// the HTTP handlers and the CLI. It owns the ordering contract of an
// import: parse, then validate and detect duplicates against a store
// snapshot, then execute decisions transactionally.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cardfile/cardfile/internal/contact"
	"github.com/cardfile/cardfile/internal/importer"
)

// ImportService runs contact imports end to end against a store. The
// serializer is the same one used for direct contact saves, so a
// contact written by an import is indistinguishable from one written
// through the CRUD API.
type ImportService struct {
	store     contact.Store
	parser    *importer.Parser
	serialize importer.Serializer
	logger    *slog.Logger
}

// NewImportService builds a service. A nil logger falls back to the
// process default.
func NewImportService(store contact.Store, aliases importer.FieldAliases, serialize importer.Serializer, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		store:     store,
		parser:    importer.NewParser(aliases),
		serialize: serialize,
		logger:    logger,
	}
}

// PreviewResult is everything the operator needs to decide what to do
// with each row before anything is written.
type PreviewResult struct {
	Candidates  []importer.CandidateRecord
	Duplicates  []importer.DuplicateMatch
	Findings    []importer.ValidationFinding
	Diagnostics importer.ParseDiagnostics
}

// Preview parses the raw input and reports candidates, duplicate
// matches against the current store contents, and validation findings.
// Nothing is written. Validation and duplicate detection run
// concurrently; both see the full candidate list.
func (s *ImportService) Preview(ctx context.Context, rawText string) (PreviewResult, error) {
	candidates, diags, err := s.parser.Parse(rawText)
	if err != nil {
		return PreviewResult{}, err
	}

	result := PreviewResult{Candidates: candidates, Diagnostics: diags}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		contacts, err := s.store.ListAll(gctx)
		if err != nil {
			return fmt.Errorf("list contacts: %w", err)
		}
		existing := make([]importer.ExistingRecord, len(contacts))
		for i, c := range contacts {
			existing[i] = importer.ExistingRecord{ID: c.ID, FullName: c.FullName, Email: c.Email}
		}
		result.Duplicates = importer.Detect(candidates, existing)
		return nil
	})
	g.Go(func() error {
		result.Findings = importer.Validate(candidates)
		return nil
	})
	if err := g.Wait(); err != nil {
		return PreviewResult{}, err
	}

	s.logger.Debug("import preview built",
		"rows", len(result.Candidates),
		"duplicates", len(result.Duplicates),
		"findings", len(result.Findings))
	return result, nil
}

// Execute applies the decisions to their candidate rows in one
// transaction. See importer.Executor for the failure semantics.
func (s *ImportService) Execute(ctx context.Context, candidates []importer.CandidateRecord, decisions []importer.ImportDecision) (importer.ImportOutcome, error) {
	exec := importer.NewExecutor(s.store, s.serialize, s.logger)
	return exec.Execute(ctx, candidates, decisions)
}

// CreateContact saves a single new contact outside the import flow,
// running the same serializer the executor uses.
func (s *ImportService) CreateContact(ctx context.Context, fields contact.Fields) (contact.Contact, error) {
	uid, card, err := s.serialize("", fields)
	if err != nil {
		return contact.Contact{}, fmt.Errorf("serialize contact: %w", err)
	}
	fields.UID = uid
	fields.CardData = card
	return s.store.Create(ctx, fields)
}

// UpdateContact saves changes to an existing contact, keeping its UID
// stable in the reserialized card.
func (s *ImportService) UpdateContact(ctx context.Context, id string, fields contact.Fields) (contact.Contact, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return contact.Contact{}, err
	}

	uid, card, err := s.serialize(existing.UID, fields)
	if err != nil {
		return contact.Contact{}, fmt.Errorf("serialize contact: %w", err)
	}
	fields.UID = uid
	fields.CardData = card
	return s.store.Update(ctx, id, fields)
}
