package recognition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-registry/internal/blob"
	"github.com/kozaktomas/face-registry/internal/constants"
	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/kozaktomas/face-registry/internal/engine"
	"github.com/kozaktomas/face-registry/internal/quality"
)

// EnrollmentService creates identities across the engine, blob store
// and identity store, preventing near-duplicate registration. All
// dependencies are injected; the service holds no mutable state and is
// safe for concurrent use.
type EnrollmentService struct {
	engine engine.Engine
	blobs  blob.Store
	repo   database.Repository
	gate   *quality.Gate
	opts   Options
}

// NewEnrollmentService creates an enrollment orchestrator.
func NewEnrollmentService(
	eng engine.Engine,
	blobs blob.Store,
	repo database.Repository,
	gate *quality.Gate,
	opts Options,
) *EnrollmentService {
	return &EnrollmentService{
		engine: eng,
		blobs:  blobs,
		repo:   repo,
		gate:   gate,
		opts:   opts.withDefaults(),
	}
}

// Enroll registers a new person from one face image.
//
// The write sequence is ordered so that no store is mutated before the
// duplicate decision, and the only rollback point is the engine index
// step: if indexing fails after the identity record was created, the
// identity is deleted again before the error surfaces. The compensating
// delete runs on every exit path, including caller cancellation, so an
// indexed-but-orphaned identity can never be observed. A face record
// persistence failure after successful indexing is logged but does not
// roll anything back.
//
// Quality rejection and duplicate detection return a structured result
// with Success=false and a nil error; infrastructure failures return an
// error. duplicateThreshold overrides the configured similarity cutoff
// for this call; zero keeps the default.
func (s *EnrollmentService) Enroll(
	ctx context.Context,
	image []byte,
	displayName string,
	attributes map[string]string,
	checkDuplicate bool,
	duplicateThreshold float64,
) (result *EnrollmentResult, err error) {
	if len(image) == 0 {
		return nil, errors.New("image is required")
	}
	if strings.TrimSpace(displayName) == "" {
		return nil, errors.New("display name is required")
	}

	faces, err := s.engine.Detect(ctx, image)
	if err != nil && !errors.Is(err, engine.ErrNoFaceDetected) {
		return nil, fmt.Errorf("%w: detect: %v", ErrEngineUnavailable, err)
	}
	if len(faces) == 0 {
		return &EnrollmentResult{Success: false, Message: "no face detected in image"}, nil
	}

	report := s.gate.Evaluate(image, &faces[0])
	if !report.Valid {
		return &EnrollmentResult{
			Success: false,
			Quality: &report,
			Message: "image rejected by quality gate: " + strings.Join(report.Reasons, "; "),
		}, nil
	}
	if s.opts.RequireLiveness && !report.Live {
		return &EnrollmentResult{
			Success: false,
			Quality: &report,
			Message: fmt.Sprintf("liveness check failed (score %.3f)", report.LivenessScore),
		}, nil
	}

	if checkDuplicate {
		if duplicateThreshold <= 0 {
			duplicateThreshold = s.opts.DuplicateThreshold
		}
		matches, err := s.engine.Search(ctx, image, constants.DefaultMaxMatches, duplicateThreshold)
		if err != nil {
			return nil, fmt.Errorf("%w: duplicate check: %v", ErrEngineUnavailable, err)
		}
		if len(matches) > 0 {
			return &EnrollmentResult{
				Success: false,
				Duplicate: &DuplicateInfo{
					PersonID:   matches[0].ExternalID,
					Similarity: matches[0].Similarity,
				},
				Message: fmt.Sprintf("face already enrolled as %s (similarity %.1f)",
					matches[0].ExternalID, matches[0].Similarity),
			}, nil
		}
	}

	blobKey, err := s.blobs.Put(ctx, image, displayName)
	if err != nil {
		return nil, fmt.Errorf("%w: store image: %v", ErrStoreUnavailable, err)
	}

	person := &database.Person{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		Attributes:  attributes,
	}
	if err := s.repo.CreatePerson(ctx, person); err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), blobKey); derr != nil {
			log.Printf("warning: failed to remove blob %s after create failure: %v", blobKey, derr)
		}
		return nil, fmt.Errorf("%w: create person: %v", ErrStoreUnavailable, err)
	}

	// The identity record now exists without its engine vector. Undo
	// it on every exit path, including cancellation, until enrollment
	// is known to have completed. The compensation uses a fresh
	// context so it still runs when the request context is gone.
	enrolled := false
	defer func() {
		if enrolled {
			return
		}
		cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if derr := s.repo.DeletePerson(cctx, person.ID); derr != nil {
			log.Printf("warning: compensation failed, orphaned person %s: %v", person.ID, derr)
		}
		if derr := s.blobs.Delete(cctx, blobKey); derr != nil {
			log.Printf("warning: failed to remove blob %s during compensation: %v", blobKey, derr)
		}
	}()

	indexed, err := s.engine.Index(ctx, image, person.ID, constants.MaxEnrollFaces)
	if err != nil {
		if errors.Is(err, engine.ErrNoFaceDetected) {
			return &EnrollmentResult{Success: false, Message: "no face detected in image"}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrIndexingFailed, err)
	}
	enrolled = true

	rec := &database.FaceRecord{
		PersonID:     person.ID,
		EngineFaceID: indexed.FaceID,
		BlobKey:      blobKey,
		QualityScore: indexed.QualityScore,
		Embedding:    indexed.Embedding,
	}
	// Best-effort: the face is already indexed and owned, so a missing
	// metadata record is preferable to undoing the enrollment.
	if err := s.repo.AddFaceRecord(ctx, rec); err != nil {
		log.Printf("warning: failed to persist face record for %s: %v", person.ID, err)
	}

	return &EnrollmentResult{
		Success:      true,
		PersonID:     person.ID,
		FaceID:       indexed.FaceID,
		QualityScore: indexed.QualityScore,
		Message:      fmt.Sprintf("enrolled %s", displayName),
	}, nil
}

// AddFace indexes an additional face image for an existing person.
// More stored vectors per person improve recall on pose and lighting
// variation.
func (s *EnrollmentService) AddFace(ctx context.Context, personID string, image []byte) (*FaceResult, error) {
	if len(image) == 0 {
		return nil, errors.New("image is required")
	}

	person, err := s.repo.GetPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("%w: get person: %v", ErrStoreUnavailable, err)
	}
	if person == nil {
		return nil, fmt.Errorf("%w: %s", ErrPersonNotFound, personID)
	}

	faces, err := s.engine.Detect(ctx, image)
	if err != nil && !errors.Is(err, engine.ErrNoFaceDetected) {
		return nil, fmt.Errorf("%w: detect: %v", ErrEngineUnavailable, err)
	}
	if len(faces) == 0 {
		return &FaceResult{Success: false, PersonID: personID, Message: "no face detected in image"}, nil
	}

	report := s.gate.Evaluate(image, &faces[0])
	if !report.Valid {
		return &FaceResult{
			Success:  false,
			PersonID: personID,
			Quality:  &report,
			Message:  "image rejected by quality gate: " + strings.Join(report.Reasons, "; "),
		}, nil
	}

	blobKey, err := s.blobs.Put(ctx, image, person.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("%w: store image: %v", ErrStoreUnavailable, err)
	}

	indexed, err := s.engine.Index(ctx, image, personID, constants.MaxEnrollFaces)
	if err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), blobKey); derr != nil {
			log.Printf("warning: failed to remove blob %s after index failure: %v", blobKey, derr)
		}
		if errors.Is(err, engine.ErrNoFaceDetected) {
			return &FaceResult{Success: false, PersonID: personID, Message: "no face detected in image"}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrIndexingFailed, err)
	}

	rec := &database.FaceRecord{
		PersonID:     personID,
		EngineFaceID: indexed.FaceID,
		BlobKey:      blobKey,
		QualityScore: indexed.QualityScore,
		Embedding:    indexed.Embedding,
	}
	if err := s.repo.AddFaceRecord(ctx, rec); err != nil {
		log.Printf("warning: failed to persist face record for %s: %v", personID, err)
	}

	return &FaceResult{
		Success:      true,
		PersonID:     personID,
		FaceID:       indexed.FaceID,
		QualityScore: indexed.QualityScore,
		Message:      fmt.Sprintf("added face for %s", person.DisplayName),
	}, nil
}

// RemovePerson deletes a person everywhere: engine vectors first, then
// stored images, then the identity record with its face records.
func (s *EnrollmentService) RemovePerson(ctx context.Context, personID string) error {
	person, err := s.repo.GetPerson(ctx, personID)
	if err != nil {
		return fmt.Errorf("%w: get person: %v", ErrStoreUnavailable, err)
	}
	if person == nil {
		return fmt.Errorf("%w: %s", ErrPersonNotFound, personID)
	}

	records, err := s.repo.GetFaceRecords(ctx, personID)
	if err != nil {
		return fmt.Errorf("%w: get face records: %v", ErrStoreUnavailable, err)
	}

	faceIDs := make([]string, 0, len(records))
	for _, rec := range records {
		faceIDs = append(faceIDs, rec.EngineFaceID)
	}
	if len(faceIDs) > 0 {
		if err := s.engine.Delete(ctx, faceIDs); err != nil {
			return fmt.Errorf("%w: delete vectors: %v", ErrEngineUnavailable, err)
		}
	}

	for _, rec := range records {
		if err := s.blobs.Delete(ctx, rec.BlobKey); err != nil {
			log.Printf("warning: failed to remove blob %s for %s: %v", rec.BlobKey, personID, err)
		}
	}

	if err := s.repo.DeletePerson(ctx, personID); err != nil {
		return fmt.Errorf("%w: delete person: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Stats summarizes the enrolled gallery.
func (s *EnrollmentService) Stats(ctx context.Context) (*database.Stats, error) {
	people, err := s.repo.CountPeople(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count people: %v", ErrStoreUnavailable, err)
	}
	records, err := s.repo.CountFaceRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count face records: %v", ErrStoreUnavailable, err)
	}

	stats := &database.Stats{People: people, FaceRecords: records}
	if people > 0 {
		stats.AvgFaces = float64(records) / float64(people)
	}
	return stats, nil
}
