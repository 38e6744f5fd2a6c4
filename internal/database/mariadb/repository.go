package mariadb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kozaktomas/face-registry/internal/database"
)

// Repository provides MariaDB-backed identity storage. It mirrors the
// PostgreSQL backend but stores attributes as JSON text and embeddings
// as raw little-endian float32 blobs.
type Repository struct {
	pool *Pool
}

// NewRepository creates a new MariaDB repository.
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

	_, err = r.pool.db.ExecContext(ctx, `
		INSERT INTO people (id, display_name, attributes)
		VALUES (?, ?, ?)
	`, p.ID, p.DisplayName, attrs)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}

	err = r.pool.db.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM people WHERE id = ?", p.ID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("read person timestamps: %w", err)
	}
	return nil
}

// GetPerson retrieves a person by id. Returns nil without error when
// no such person exists.
func (r *Repository) GetPerson(ctx context.Context, id string) (*database.Person, error) {
	row := r.pool.db.QueryRowContext(ctx,
		"SELECT "+personColumns+" FROM people WHERE id = ?", id)

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

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT "+personColumns+" FROM people WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("query people batch: %w", err)
	}
	defer rows.Close()

	return scanPeople(rows)
}

// ListPeople returns all enrolled people ordered by creation time.
func (r *Repository) ListPeople(ctx context.Context) ([]database.Person, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT "+personColumns+" FROM people ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()

	return scanPeople(rows)
}

// SearchPeople returns people whose display name contains the query
// substring. MariaDB has no unaccent function, so normalization
// happens in Go over the full list.
func (r *Repository) SearchPeople(ctx context.Context, query string) ([]database.Person, error) {
	people, err := r.ListPeople(ctx)
	if err != nil {
		return nil, err
	}

	normalized := database.NormalizePersonName(query)
	var matched []database.Person
	for _, p := range people {
		if strings.Contains(database.NormalizePersonName(p.DisplayName), normalized) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// CountPeople returns the number of enrolled people.
func (r *Repository) CountPeople(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM people").Scan(&count); err != nil {
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

	_, err = r.pool.db.ExecContext(ctx, `
		UPDATE people SET
			display_name = ?,
			attributes = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, p.DisplayName, attrs, p.ID)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	return nil
}

// DeletePerson removes a person. Face records cascade via the foreign
// key constraint.
func (r *Repository) DeletePerson(ctx context.Context, id string) error {
	if _, err := r.pool.db.ExecContext(ctx, "DELETE FROM people WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return nil
}

// AddFaceRecord inserts a face record and bumps the owner's embedding
// count in a single transaction.
func (r *Repository) AddFaceRecord(ctx context.Context, rec *database.FaceRecord) error {
	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO face_records (person_id, engine_face_id, blob_key, quality_score, embedding)
		VALUES (?, ?, ?, ?, ?)
	`, rec.PersonID, rec.EngineFaceID, rec.BlobKey, rec.QualityScore, encodeEmbedding(rec.Embedding))
	if err != nil {
		return fmt.Errorf("insert face record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id

	_, err = tx.ExecContext(ctx, `
		UPDATE people SET
			embedding_count = embedding_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, rec.PersonID)
	if err != nil {
		return fmt.Errorf("bump embedding count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetFaceRecords returns all face records for a person ordered by id.
func (r *Repository) GetFaceRecords(ctx context.Context, personID string) ([]database.FaceRecord, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, person_id, engine_face_id, blob_key, quality_score, embedding, created_at
		FROM face_records
		WHERE person_id = ?
		ORDER BY id
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("query face records: %w", err)
	}
	defer rows.Close()

	var records []database.FaceRecord
	for rows.Next() {
		var rec database.FaceRecord
		var blob []byte
		err := rows.Scan(&rec.ID, &rec.PersonID, &rec.EngineFaceID, &rec.BlobKey,
			&rec.QualityScore, &blob, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan face record: %w", err)
		}
		rec.Embedding = decodeEmbedding(blob)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face records: %w", err)
	}
	return records, nil
}

// CountFaceRecords returns the total number of face records stored.
func (r *Repository) CountFaceRecords(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM face_records").Scan(&count); err != nil {
		return 0, fmt.Errorf("count face records: %w", err)
	}
	return count, nil
}

// AppendMatchRecord appends an audit entry for one resolved candidate.
func (r *Repository) AppendMatchRecord(ctx context.Context, rec *database.MatchRecord) error {
	result, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO match_records (person_id, engine_face_id, similarity, confidence)
		VALUES (?, ?, ?, ?)
	`, rec.PersonID, rec.EngineFaceID, rec.Similarity, rec.Confidence)
	if err != nil {
		return fmt.Errorf("insert match record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id
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

// encodeEmbedding packs a vector as little-endian float32 bytes.
func encodeEmbedding(embedding []float32) []byte {
	if len(embedding) == 0 {
		return nil
	}
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding unpacks a little-endian float32 blob.
func decodeEmbedding(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	embedding := make([]float32, len(blob)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return embedding
}

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
