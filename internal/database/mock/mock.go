// Package mock provides an in-memory implementation of the database
// interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-registry/internal/database"
)

// MockRepository is an in-memory implementation of database.Repository.
// It records call counts so tests can assert batching behavior.
type MockRepository struct {
	mu      sync.RWMutex
	people  map[string]*database.Person
	faces   map[string][]database.FaceRecord
	matches []database.MatchRecord
	nextID  int64

	// Call counters.
	GetPersonCalls      int
	GetPeopleBatchCalls int
	CreatePersonCalls   int
	DeletePersonCalls   int
	AddFaceRecordCalls  int
	MatchRecordCalls    int

	// Error injection.
	CreateError      error
	DeleteError      error
	BatchError       error
	AddFaceError     error
	MatchRecordError error
	HealthError      error
}

// NewMockRepository creates a new empty mock repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		people: make(map[string]*database.Person),
		faces:  make(map[string][]database.FaceRecord),
	}
}

// CreatePerson stores a new person record.
func (m *MockRepository) CreatePerson(ctx context.Context, p *database.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatePersonCalls++
	if m.CreateError != nil {
		return m.CreateError
	}
	if _, exists := m.people[p.ID]; exists {
		return fmt.Errorf("person %s already exists", p.ID)
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Attributes == nil {
		p.Attributes = map[string]string{}
	}
	stored := *p
	m.people[p.ID] = &stored
	return nil
}

// GetPerson retrieves a person by id, returns nil if not found.
func (m *MockRepository) GetPerson(ctx context.Context, id string) (*database.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetPersonCalls++
	p, ok := m.people[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// GetPeopleBatch retrieves multiple people in a single call. Missing
// ids are omitted from the result.
func (m *MockRepository) GetPeopleBatch(ctx context.Context, ids []string) ([]database.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetPeopleBatchCalls++
	if m.BatchError != nil {
		return nil, m.BatchError
	}

	var people []database.Person
	for _, id := range ids {
		if p, ok := m.people[id]; ok {
			people = append(people, *p)
		}
	}
	return people, nil
}

// ListPeople returns all people ordered by creation time.
func (m *MockRepository) ListPeople(ctx context.Context) ([]database.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var people []database.Person
	for _, p := range m.people {
		people = append(people, *p)
	}
	sort.Slice(people, func(i, j int) bool {
		if people[i].CreatedAt.Equal(people[j].CreatedAt) {
			return people[i].ID < people[j].ID
		}
		return people[i].CreatedAt.Before(people[j].CreatedAt)
	})
	return people, nil
}

// SearchPeople returns people whose normalized display name contains
// the normalized query substring.
func (m *MockRepository) SearchPeople(ctx context.Context, query string) ([]database.Person, error) {
	people, err := m.ListPeople(ctx)
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
func (m *MockRepository) CountPeople(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.people), nil
}

// UpdatePerson updates display name and attributes.
func (m *MockRepository) UpdatePerson(ctx context.Context, p *database.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.people[p.ID]
	if !ok {
		return fmt.Errorf("person %s not found", p.ID)
	}
	stored.DisplayName = p.DisplayName
	stored.Attributes = p.Attributes
	stored.UpdatedAt = time.Now()
	p.UpdatedAt = stored.UpdatedAt
	return nil
}

// DeletePerson removes a person and cascades to its face records.
func (m *MockRepository) DeletePerson(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeletePersonCalls++
	if m.DeleteError != nil {
		return m.DeleteError
	}
	delete(m.people, id)
	delete(m.faces, id)
	return nil
}

// AddFaceRecord appends a face record and bumps the owner's embedding
// count.
func (m *MockRepository) AddFaceRecord(ctx context.Context, rec *database.FaceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddFaceRecordCalls++
	if m.AddFaceError != nil {
		return m.AddFaceError
	}
	p, ok := m.people[rec.PersonID]
	if !ok {
		return fmt.Errorf("person %s not found", rec.PersonID)
	}
	m.nextID++
	rec.ID = m.nextID
	rec.CreatedAt = time.Now()
	m.faces[rec.PersonID] = append(m.faces[rec.PersonID], *rec)
	p.EmbeddingCount++
	return nil
}

// GetFaceRecords returns all face records for a person.
func (m *MockRepository) GetFaceRecords(ctx context.Context, personID string) ([]database.FaceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]database.FaceRecord, len(m.faces[personID]))
	copy(records, m.faces[personID])
	return records, nil
}

// CountFaceRecords returns the total number of face records.
func (m *MockRepository) CountFaceRecords(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, records := range m.faces {
		count += len(records)
	}
	return count, nil
}

// AppendMatchRecord appends an audit entry.
func (m *MockRepository) AppendMatchRecord(ctx context.Context, rec *database.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MatchRecordCalls++
	if m.MatchRecordError != nil {
		return m.MatchRecordError
	}
	m.nextID++
	rec.ID = m.nextID
	rec.ResolvedAt = time.Now()
	m.matches = append(m.matches, *rec)
	return nil
}

// MatchRecords returns a copy of the recorded audit entries.
func (m *MockRepository) MatchRecords() []database.MatchRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]database.MatchRecord, len(m.matches))
	copy(records, m.matches)
	return records
}

// Health checks store connectivity.
func (m *MockRepository) Health(ctx context.Context) error {
	return m.HealthError
}

// Verify interface compliance.
var _ database.Repository = (*MockRepository)(nil)
