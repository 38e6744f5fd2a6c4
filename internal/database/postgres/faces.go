package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/pgvector/pgvector-go"
)

// AddFaceRecord inserts a face record and bumps the owner's embedding
// count in a single transaction.
func (r *Repository) AddFaceRecord(ctx context.Context, rec *database.FaceRecord) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var embedding any
	if len(rec.Embedding) > 0 {
		embedding = pgvector.NewVector(rec.Embedding)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO face_records (person_id, engine_face_id, blob_key, quality_score, embedding)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, rec.PersonID, rec.EngineFaceID, rec.BlobKey, rec.QualityScore, embedding).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert face record: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE people SET
			embedding_count = embedding_count + 1,
			updated_at = NOW()
		WHERE id = $1
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
	rows, err := r.pool.Query(ctx, `
		SELECT id, person_id, engine_face_id, blob_key, quality_score, embedding, created_at
		FROM face_records
		WHERE person_id = $1
		ORDER BY id
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("query face records: %w", err)
	}
	defer rows.Close()

	var records []database.FaceRecord
	for rows.Next() {
		var rec database.FaceRecord
		var vec sql.Null[pgvector.Vector]
		err := rows.Scan(&rec.ID, &rec.PersonID, &rec.EngineFaceID, &rec.BlobKey,
			&rec.QualityScore, &vec, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan face record: %w", err)
		}
		if vec.Valid {
			rec.Embedding = vec.V.Slice()
		}
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
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_records").Scan(&count); err != nil {
		return 0, fmt.Errorf("count face records: %w", err)
	}
	return count, nil
}

// AppendMatchRecord appends an audit entry for one resolved candidate.
func (r *Repository) AppendMatchRecord(ctx context.Context, rec *database.MatchRecord) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO match_records (person_id, engine_face_id, similarity, confidence)
		VALUES ($1, $2, $3, $4)
		RETURNING id, resolved_at
	`, rec.PersonID, rec.EngineFaceID, rec.Similarity, rec.Confidence).Scan(&rec.ID, &rec.ResolvedAt)
	if err != nil {
		return fmt.Errorf("insert match record: %w", err)
	}
	return nil
}
