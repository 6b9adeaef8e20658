// Package docstore provides a schemaless document repository backed by a
// Postgres JSONB table. Documents are keyed by UUID and can additionally be
// looked up by any nested field path; the patient-identifier path carries a
// unique expression index so duplicate detection is enforced by the store
// itself rather than by a check-then-insert sequence.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Document is a stored document: top-level field names to JSON values.
type Document = map[string]interface{}

// ErrUniqueViolation is returned by Insert and MergeUpdate when a stored
// unique constraint rejects the document.
var ErrUniqueViolation = errors.New("docstore: unique constraint violated")

const uniqueViolationCode = "23505"

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Bootstrap creates the document table and its indexes if they do not exist.
func (s *Store) Bootstrap(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS patient_document (
			id         uuid PRIMARY KEY,
			doc        jsonb NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create patient_document: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS patient_document_patient_id_key
		ON patient_document ((doc->'identity'->>'patientId'))`)
	if err != nil {
		return fmt.Errorf("create patient id index: %w", err)
	}
	return nil
}

// Insert stores a new document under the given id and returns it as stored.
func (s *Store) Insert(ctx context.Context, id uuid.UUID, doc Document) (Document, error) {
	var stored Document
	err := s.pool.QueryRow(ctx,
		`INSERT INTO patient_document (id, doc) VALUES ($1, $2) RETURNING doc`,
		id, doc,
	).Scan(&stored)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, ErrUniqueViolation
		}
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return stored, nil
}

// FindByID returns the document with the given id, or nil when absent.
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (Document, error) {
	var doc Document
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM patient_document WHERE id = $1`, id,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find document by id: %w", err)
	}
	return doc, nil
}

// FindByField returns the first document whose value at the given field path
// equals value, or nil when absent. The path addresses nested fields, e.g.
// ["identity", "patientId"].
func (s *Store) FindByField(ctx context.Context, path []string, value string) (Document, error) {
	var doc Document
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM patient_document WHERE doc #>> $1 = $2 LIMIT 1`,
		path, value,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find document by field: %w", err)
	}
	return doc, nil
}

// FindPage returns up to limit documents after skipping skip, in insertion
// order. The ordering is stable across repeated reads absent concurrent
// writes; no other ordering guarantee is made.
func (s *Store) FindPage(ctx context.Context, skip, limit int) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM patient_document ORDER BY created_at, id OFFSET $1 LIMIT $2`,
		skip, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("page documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("page documents: %w", err)
	}
	return docs, nil
}

// MergeUpdate replaces the supplied top-level fields of the stored document
// and returns the result, or nil when no document has the given id. Fields
// not present in the update are left untouched.
func (s *Store) MergeUpdate(ctx context.Context, id uuid.UUID, fields Document) (Document, error) {
	var doc Document
	err := s.pool.QueryRow(ctx,
		`UPDATE patient_document SET doc = doc || $2 WHERE id = $1 RETURNING doc`,
		id, fields,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, ErrUniqueViolation
		}
		return nil, fmt.Errorf("merge document: %w", err)
	}
	return doc, nil
}

// Remove deletes the document with the given id and reports whether a
// document was actually deleted.
func (s *Store) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM patient_document WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("remove document: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
