package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/lib/pq"
)

// Repository provides PostgreSQL-backed identity storage.
type Repository struct {
	pool *Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	return r.pool.Close()
}

const personColumns = "id, display_name, attributes, embedding_count, created_at, updated_at"

// CreatePerson stores a new person record.
func (r *Repository) CreatePerson(ctx context.Context, p *database.Person) error {
	attrs, err := marshalAttributes(p.Attributes)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO people (id, display_name, attributes)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, p.ID, p.DisplayName, attrs).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

// GetPerson retrieves a person by id. Returns nil without error when
// no such person exists.
func (r *Repository) GetPerson(ctx context.Context, id string) (*database.Person, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+personColumns+" FROM people WHERE id = $1", id)

	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPeopleBatch retrieves multiple people in a single query. Missing
// ids are omitted from the result.
func (r *Repository) GetPeopleBatch(ctx context.Context, ids []string) ([]database.Person, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		"SELECT "+personColumns+" FROM people WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query people batch: %w", err)
	}
	defer rows.Close()

	return scanPeople(rows)
}

// ListPeople returns all enrolled people ordered by creation time.
func (r *Repository) ListPeople(ctx context.Context) ([]database.Person, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+personColumns+" FROM people ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()

	return scanPeople(rows)
}

// SearchPeople returns people whose display name contains the query
// substring. Names are normalized before comparison (lowercase, no
// diacritics, dashes to spaces), so "novak" matches "Jan Novák".
func (r *Repository) SearchPeople(ctx context.Context, query string) ([]database.Person, error) {
	normalized := database.NormalizePersonName(query)

	rows, err := r.pool.Query(ctx, `
		SELECT `+personColumns+` FROM people
		WHERE LOWER(REPLACE(unaccent(display_name), '-', ' ')) LIKE '%' || $1 || '%'
		ORDER BY display_name, id
	`, normalized)
	if err != nil {
		return nil, fmt.Errorf("search people: %w", err)
	}
	defer rows.Close()

	return scanPeople(rows)
}

// CountPeople returns the number of enrolled people.
func (r *Repository) CountPeople(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM people").Scan(&count); err != nil {
		return 0, fmt.Errorf("count people: %w", err)
	}
	return count, nil
}

// UpdatePerson updates the display name and attributes of a person.
func (r *Repository) UpdatePerson(ctx context.Context, p *database.Person) error {
	attrs, err := marshalAttributes(p.Attributes)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx, `
		UPDATE people SET
			display_name = $1,
			attributes = $2,
			updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`, p.DisplayName, attrs, p.ID).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("person %s not found", p.ID)
	}
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	return nil
}

// DeletePerson removes a person. Face records cascade via the foreign
// key constraint.
func (r *Repository) DeletePerson(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM people WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return nil
}

// Health checks store connectivity.
func (r *Repository) Health(ctx context.Context) error {
	if err := r.pool.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func marshalAttributes(attrs map[string]string) ([]byte, error) {
	if attrs == nil {
		attrs = map[string]string{}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}
	return data, nil
}

// scanPerson scans a single row into a Person.
func scanPerson(scanner interface{ Scan(...any) error }) (database.Person, error) {
	var p database.Person
	var attrs []byte

	err := scanner.Scan(&p.ID, &p.DisplayName, &attrs, &p.EmbeddingCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, fmt.Errorf("scan person: %w", err)
	}

	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &p.Attributes); err != nil {
			return p, fmt.Errorf("unmarshal attributes: %w", err)
		}
	}
	if p.Attributes == nil {
		p.Attributes = map[string]string{}
	}
	return p, nil
}

func scanPeople(rows *sql.Rows) ([]database.Person, error) {
	var people []database.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}
	return people, nil
}

// Verify interface compliance.
var _ database.Repository = (*Repository)(nil)
