package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cardfile/cardfile/internal/contact"
)

// Serializer produces the canonical external representation stored
// alongside a contact's structured fields. existingUID is empty when
// creating; updates pass the stored UID so the serialized form keeps
// a stable identifier across writes.
type Serializer func(existingUID string, fields contact.Fields) (uid string, serialized string, err error)

// Executor applies import decisions against the contact store inside
// a single transaction. Each acted-on row runs under its own savepoint
// so a failing row cannot poison the transaction for the rows after
// it. If any row fails, the whole transaction rolls back: either every
// decision takes effect or none do. The returned outcome still carries
// the per-row counters observed before the rollback so callers can
// report which rows would have succeeded.
type Executor struct {
	store     contact.Store
	serialize Serializer
	logger    *slog.Logger
}

// NewExecutor builds an executor. A nil logger falls back to the
// process default.
func NewExecutor(store contact.Store, serialize Serializer, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, serialize: serialize, logger: logger}
}

// Execute runs the decisions against their candidate rows. Candidates
// without a decision are skipped. A batch with nothing to write
// returns immediately without opening a transaction. Failures opening
// or committing the transaction surface as the returned error; row
// failures are reported in the outcome instead.
func (e *Executor) Execute(ctx context.Context, candidates []CandidateRecord, decisions []ImportDecision) (ImportOutcome, error) {
	byRow := make(map[int]ImportDecision, len(decisions))
	for _, d := range decisions {
		byRow[d.RowNumber] = d
	}

	outcome := ImportOutcome{Success: true}

	pending := 0
	for _, cand := range candidates {
		if d, ok := byRow[cand.RowNumber]; ok && d.Action != ActionSkip {
			pending++
		}
	}
	if pending == 0 {
		outcome.Skipped = len(candidates)
		return outcome, nil
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return ImportOutcome{}, fmt.Errorf("begin import transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, cand := range candidates {
		if err := ctx.Err(); err != nil {
			outcome.Failures = append(outcome.Failures, RowFailure{
				RowNumber: cand.RowNumber,
				Message:   "import cancelled: " + err.Error(),
			})
			break
		}

		decision, ok := byRow[cand.RowNumber]
		if !ok || decision.Action == ActionSkip {
			outcome.Skipped++
			continue
		}

		name := fmt.Sprintf("sp_%d", i)
		if err := tx.Savepoint(ctx, name); err != nil {
			return ImportOutcome{}, fmt.Errorf("savepoint for row %d: %w", cand.RowNumber, err)
		}

		if err := e.applyRow(ctx, tx, cand, decision); err != nil {
			if rbErr := tx.RollbackTo(ctx, name); rbErr != nil {
				return ImportOutcome{}, fmt.Errorf("recover after row %d: %w", cand.RowNumber, rbErr)
			}
			outcome.Failures = append(outcome.Failures, RowFailure{
				RowNumber: cand.RowNumber,
				Message:   err.Error(),
			})
			e.logger.Warn("import row failed",
				"row", cand.RowNumber,
				"action", string(decision.Action),
				"error", err)
			continue
		}

		if err := tx.Release(ctx, name); err != nil {
			return ImportOutcome{}, fmt.Errorf("release savepoint for row %d: %w", cand.RowNumber, err)
		}

		switch decision.Action {
		case ActionCreate:
			outcome.Created++
		case ActionUpdate:
			outcome.Updated++
		}
	}

	if len(outcome.Failures) > 0 {
		outcome.Success = false
		if err := tx.Rollback(ctx); err != nil {
			e.logger.Error("rollback after row failures", "error", err)
		}
		e.logger.Info("import rolled back",
			"failures", len(outcome.Failures),
			"wouldCreate", outcome.Created,
			"wouldUpdate", outcome.Updated)
		return outcome, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return ImportOutcome{}, fmt.Errorf("commit import transaction: %w", err)
	}

	e.logger.Info("import committed",
		"created", outcome.Created,
		"updated", outcome.Updated,
		"skipped", outcome.Skipped)
	return outcome, nil
}

// applyRow performs one decision inside the current savepoint. Any
// returned error is recorded as that row's failure.
func (e *Executor) applyRow(ctx context.Context, tx contact.Tx, cand CandidateRecord, decision ImportDecision) error {
	fields := candidateFields(cand)

	switch decision.Action {
	case ActionCreate:
		uid, card, err := e.serialize("", fields)
		if err != nil {
			return fmt.Errorf("serialize contact: %w", err)
		}
		fields.UID = uid
		fields.CardData = card

		_, err = tx.Create(ctx, fields)
		return err

	case ActionUpdate:
		if decision.ExistingID == "" {
			return errors.New("update requires an existing contact id")
		}
		existing, err := tx.GetByID(ctx, decision.ExistingID)
		if err != nil {
			return fmt.Errorf("load contact %s: %w", decision.ExistingID, err)
		}

		uid, card, err := e.serialize(existing.UID, fields)
		if err != nil {
			return fmt.Errorf("serialize contact: %w", err)
		}
		fields.UID = uid
		fields.CardData = card

		_, err = tx.Update(ctx, decision.ExistingID, fields)
		return err

	default:
		return fmt.Errorf("unknown action %q", decision.Action)
	}
}

// candidateFields maps a parsed candidate onto the store's writable
// field set.
func candidateFields(c CandidateRecord) contact.Fields {
	return contact.Fields{
		FullName:     c.FullName,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Email:        c.Email,
		Phone:        c.Phone,
		Organization: c.Organization,
		JobTitle:     c.JobTitle,
		Address:      c.Address,
		Notes:        c.Notes,
	}
}
