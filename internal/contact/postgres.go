package contact

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes for constraint violations.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const contactColumns = `id, uid, full_name, first_name, last_name, email, phone, organization, job_title, address, notes, card_data, etag, created_at, updated_at`

// PostgresStore persists contacts in PostgreSQL through a pgx
// connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool. The caller owns
// the pool's lifecycle.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the contacts table and indexes if they do not exist.
// Safe to run on every startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS contacts (
			id           uuid PRIMARY KEY,
			uid          text NOT NULL UNIQUE,
			full_name    text NOT NULL DEFAULT '',
			first_name   text NOT NULL DEFAULT '',
			last_name    text NOT NULL DEFAULT '',
			email        text NOT NULL DEFAULT '',
			phone        text NOT NULL DEFAULT '',
			organization text NOT NULL DEFAULT '',
			job_title    text NOT NULL DEFAULT '',
			address      text NOT NULL DEFAULT '',
			notes        text NOT NULL DEFAULT '',
			card_data    text NOT NULL DEFAULT '',
			etag         text NOT NULL DEFAULT '',
			created_at   timestamptz NOT NULL DEFAULT now(),
			updated_at   timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS contacts_email_idx ON contacts (lower(email))`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate contacts: %w", err)
		}
	}
	return nil
}

// Ping verifies database connectivity. Used by the health endpoint.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]Contact, error) {
	return listAllContacts(ctx, s.pool)
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Contact, error) {
	return getContactByID(ctx, s.pool, id)
}

func (s *PostgresStore) Create(ctx context.Context, fields Fields) (Contact, error) {
	return createContact(ctx, s.pool, fields)
}

func (s *PostgresStore) Update(ctx context.Context, id string, fields Fields) (Contact, error) {
	return updateContact(ctx, s.pool, id, fields)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	return deleteContact(ctx, s.pool, id)
}

func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &pgxTx{tx: tx}, nil
}

// pgxTx adapts a pgx transaction to the Tx interface. Savepoint names
// are quoted through pgx.Identifier so callers can use arbitrary names.
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) GetByID(ctx context.Context, id string) (Contact, error) {
	return getContactByID(ctx, t.tx, id)
}

func (t *pgxTx) Create(ctx context.Context, fields Fields) (Contact, error) {
	return createContact(ctx, t.tx, fields)
}

func (t *pgxTx) Update(ctx context.Context, id string, fields Fields) (Contact, error) {
	return updateContact(ctx, t.tx, id, fields)
}

func (t *pgxTx) Savepoint(ctx context.Context, name string) error {
	if _, err := t.tx.Exec(ctx, "SAVEPOINT "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	return nil
}

func (t *pgxTx) RollbackTo(ctx context.Context, name string) error {
	if _, err := t.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("rollback to savepoint %s: %w", name, err)
	}
	return nil
}

func (t *pgxTx) Release(ctx context.Context, name string) error {
	if _, err := t.tx.Exec(ctx, "RELEASE SAVEPOINT "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	return nil
}

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so
// the same query functions serve the store and its transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func listAllContacts(ctx context.Context, q querier) ([]Contact, error) {
	rows, err := q.Query(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

func getContactByID(ctx context.Context, q querier, id string) (Contact, error) {
	pgID := toPgUUID(id)
	if !pgID.Valid {
		return Contact{}, ErrNotFound
	}

	c, err := scanContact(q.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`, pgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

func createContact(ctx context.Context, q querier, fields Fields) (Contact, error) {
	uid := fields.UID
	if uid == "" {
		uid = uuid.NewString()
	}

	row := q.QueryRow(ctx, `
		INSERT INTO contacts (id, uid, full_name, first_name, last_name, email, phone, organization, job_title, address, notes, card_data, etag)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+contactColumns,
		toPgUUID(uuid.NewString()), uid,
		fields.FullName, fields.FirstName, fields.LastName,
		fields.Email, fields.Phone, fields.Organization, fields.JobTitle,
		fields.Address, fields.Notes, fields.CardData, uuid.NewString())

	c, err := scanContact(row)
	if err != nil {
		return Contact{}, storeError("create contact", err)
	}
	return c, nil
}

func updateContact(ctx context.Context, q querier, id string, fields Fields) (Contact, error) {
	pgID := toPgUUID(id)
	if !pgID.Valid {
		return Contact{}, ErrNotFound
	}

	// An empty UID keeps the stored one; the UID is stable across updates.
	row := q.QueryRow(ctx, `
		UPDATE contacts
		SET uid = COALESCE(NULLIF($2, ''), uid),
		    full_name = $3, first_name = $4, last_name = $5,
		    email = $6, phone = $7, organization = $8, job_title = $9,
		    address = $10, notes = $11, card_data = $12,
		    etag = $13, updated_at = now()
		WHERE id = $1
		RETURNING `+contactColumns,
		pgID, fields.UID,
		fields.FullName, fields.FirstName, fields.LastName,
		fields.Email, fields.Phone, fields.Organization, fields.JobTitle,
		fields.Address, fields.Notes, fields.CardData, uuid.NewString())

	c, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, storeError("update contact", err)
	}
	return c, nil
}

func deleteContact(ctx context.Context, q querier, id string) error {
	pgID := toPgUUID(id)
	if !pgID.Valid {
		return ErrNotFound
	}

	tag, err := q.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, pgID)
	if err != nil {
		return storeError("delete contact", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanContact(row pgx.Row) (Contact, error) {
	var (
		c                    Contact
		id                   pgtype.UUID
		createdAt, updatedAt pgtype.Timestamptz
	)
	err := row.Scan(&id, &c.UID,
		&c.FullName, &c.FirstName, &c.LastName,
		&c.Email, &c.Phone, &c.Organization, &c.JobTitle,
		&c.Address, &c.Notes, &c.CardData, &c.Etag,
		&createdAt, &updatedAt)
	if err != nil {
		return Contact{}, err
	}
	c.ID = uuidToString(id)
	c.CreatedAt = createdAt.Time
	c.UpdatedAt = updatedAt.Time
	return c, nil
}

// storeError converts technical database errors into messages safe to
// surface in API responses and row failure lists.
func storeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: a contact with this identifier already exists", op)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: referenced record does not exist", op)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Helper functions for pgtype conversion.

func toPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
