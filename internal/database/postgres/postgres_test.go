//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	// Run migrations
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestRepositoryPeople(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewRepository(pool)

	t.Run("CreateAndGet", func(t *testing.T) {
		p := &database.Person{
			ID:          "person-1",
			DisplayName: "Jan Novák",
			Attributes:  map[string]string{"department": "engineering"},
		}
		if err := repo.CreatePerson(ctx, p); err != nil {
			t.Fatalf("Failed to create person: %v", err)
		}
		if p.CreatedAt.IsZero() {
			t.Error("Expected CreatedAt to be set")
		}

		got, err := repo.GetPerson(ctx, "person-1")
		if err != nil {
			t.Fatalf("Failed to get person: %v", err)
		}
		if got == nil {
			t.Fatal("Expected person, got nil")
		}
		if got.DisplayName != "Jan Novák" {
			t.Errorf("Expected DisplayName 'Jan Novák', got '%s'", got.DisplayName)
		}
		if got.Attributes["department"] != "engineering" {
			t.Errorf("Expected attribute department=engineering, got %v", got.Attributes)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := repo.GetPerson(ctx, "nonexistent")
		if err != nil {
			t.Fatalf("Failed to get missing person: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil for missing person, got %+v", got)
		}
	})

	t.Run("GetBatch", func(t *testing.T) {
		p2 := &database.Person{ID: "person-2", DisplayName: "Marie Dvořáková"}
		if err := repo.CreatePerson(ctx, p2); err != nil {
			t.Fatalf("Failed to create person: %v", err)
		}

		people, err := repo.GetPeopleBatch(ctx, []string{"person-1", "person-2", "missing"})
		if err != nil {
			t.Fatalf("Failed to get batch: %v", err)
		}
		if len(people) != 2 {
			t.Errorf("Expected 2 people, got %d", len(people))
		}
	})

	t.Run("SearchNormalized", func(t *testing.T) {
		people, err := repo.SearchPeople(ctx, "novak")
		if err != nil {
			t.Fatalf("Failed to search: %v", err)
		}
		if len(people) != 1 {
			t.Fatalf("Expected 1 result for 'novak', got %d", len(people))
		}
		if people[0].ID != "person-1" {
			t.Errorf("Expected person-1, got %s", people[0].ID)
		}
	})

	t.Run("Update", func(t *testing.T) {
		p, _ := repo.GetPerson(ctx, "person-1")
		p.DisplayName = "Jan Novák Jr."
		if err := repo.UpdatePerson(ctx, p); err != nil {
			t.Fatalf("Failed to update person: %v", err)
		}

		got, _ := repo.GetPerson(ctx, "person-1")
		if got.DisplayName != "Jan Novák Jr." {
			t.Errorf("Update not reflected, got '%s'", got.DisplayName)
		}
	})

	t.Run("Count", func(t *testing.T) {
		count, err := repo.CountPeople(ctx)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected 2, got %d", count)
		}
	})
}

func TestRepositoryFaceRecords(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewRepository(pool)

	p := &database.Person{ID: "person-1", DisplayName: "Jan Novák"}
	if err := repo.CreatePerson(ctx, p); err != nil {
		t.Fatalf("Failed to create person: %v", err)
	}

	t.Run("AddBumpsEmbeddingCount", func(t *testing.T) {
		embedding := make([]float32, 128)
		for i := range embedding {
			embedding[i] = float32(i) / 128.0
		}

		rec := &database.FaceRecord{
			PersonID:     "person-1",
			EngineFaceID: "face-abc",
			BlobKey:      "jan_novak_abc.jpg",
			QualityScore: 0.92,
			Embedding:    embedding,
		}
		if err := repo.AddFaceRecord(ctx, rec); err != nil {
			t.Fatalf("Failed to add face record: %v", err)
		}
		if rec.ID == 0 {
			t.Error("Expected assigned record id")
		}

		got, err := repo.GetPerson(ctx, "person-1")
		if err != nil {
			t.Fatalf("Failed to get person: %v", err)
		}
		if got.EmbeddingCount != 1 {
			t.Errorf("Expected embedding count 1, got %d", got.EmbeddingCount)
		}
	})

	t.Run("GetRecords", func(t *testing.T) {
		records, err := repo.GetFaceRecords(ctx, "person-1")
		if err != nil {
			t.Fatalf("Failed to get face records: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(records))
		}
		if records[0].EngineFaceID != "face-abc" {
			t.Errorf("Expected EngineFaceID 'face-abc', got '%s'", records[0].EngineFaceID)
		}
		if len(records[0].Embedding) != 128 {
			t.Errorf("Expected 128 dimensions, got %d", len(records[0].Embedding))
		}
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		if err := repo.DeletePerson(ctx, "person-1"); err != nil {
			t.Fatalf("Failed to delete person: %v", err)
		}

		count, err := repo.CountFaceRecords(ctx)
		if err != nil {
			t.Fatalf("Failed to count face records: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected face records to cascade, got %d remaining", count)
		}
	})
}

func TestMigrations(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	applied, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("Failed to get applied migrations: %v", err)
	}

	expectedMigrations := []string{
		"0001_init.sql",
	}

	if len(applied) != len(expectedMigrations) {
		t.Errorf("Expected %d migrations, got %d", len(expectedMigrations), len(applied))
	}

	for i, expected := range expectedMigrations {
		if i < len(applied) && applied[i] != expected {
			t.Errorf("Migration %d: expected '%s', got '%s'", i, expected, applied[i])
		}
	}
}
