package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// createSchema creates the tables if they do not exist yet.
func (p *Pool) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS people (
			id              VARCHAR(64) PRIMARY KEY,
			display_name    VARCHAR(255) NOT NULL,
			attributes      TEXT NOT NULL,
			embedding_count INT NOT NULL DEFAULT 0,
			created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS face_records (
			id             BIGINT AUTO_INCREMENT PRIMARY KEY,
			person_id      VARCHAR(64) NOT NULL,
			engine_face_id VARCHAR(255) NOT NULL,
			blob_key       VARCHAR(512) NOT NULL,
			quality_score  DOUBLE NOT NULL DEFAULT 0,
			embedding      MEDIUMBLOB,
			created_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX face_records_person_id_idx (person_id),
			CONSTRAINT face_records_person_fk FOREIGN KEY (person_id)
				REFERENCES people(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS match_records (
			id             BIGINT AUTO_INCREMENT PRIMARY KEY,
			person_id      VARCHAR(64) NOT NULL,
			engine_face_id VARCHAR(255) NOT NULL,
			similarity     DOUBLE NOT NULL,
			confidence     DOUBLE NOT NULL,
			resolved_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX match_records_person_id_idx (person_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Open creates a connection pool, ensures the schema exists and
// returns a ready Repository.
func Open(dsn string) (*Repository, error) {
	pool, err := NewPool(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create MariaDB pool: %w", err)
	}

	if err := pool.createSchema(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	return NewRepository(pool), nil
}
