package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/kozaktomas/face-registry/internal/cache"
	"github.com/kozaktomas/face-registry/internal/constants"
	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/kozaktomas/face-registry/internal/engine"
)

// IdentificationService resolves a probe image to ranked candidate
// identities. Safe for concurrent use; the only shared state is the
// result cache, which is independent per digest key.
type IdentificationService struct {
	engine engine.Engine
	repo   database.Repository
	cache  cache.ResultCache
	opts   Options
}

// NewIdentificationService creates an identification engine. The cache
// may be nil, in which case every probe hits the matching engine.
func NewIdentificationService(
	eng engine.Engine,
	repo database.Repository,
	resultCache cache.ResultCache,
	opts Options,
) *IdentificationService {
	return &IdentificationService{
		engine: eng,
		repo:   repo,
		cache:  resultCache,
		opts:   opts.withDefaults(),
	}
}

// Identify resolves a probe image. maxResults and threshold fall back
// to the configured defaults when zero. Zero matches is a success with
// an empty candidate list. Byte-identical probes within the cache TTL
// are served from cache without touching the engine.
func (s *IdentificationService) Identify(
	ctx context.Context,
	image []byte,
	maxResults int,
	threshold float64,
	useCache bool,
) (*IdentificationResult, error) {
	if len(image) == 0 {
		return nil, errors.New("image is required")
	}
	if maxResults <= 0 {
		maxResults = s.opts.MaxMatches
	}
	if threshold <= 0 {
		threshold = s.opts.MatchThreshold
	}

	digest := cache.Digest(image)

	if useCache && s.cache != nil {
		if cached := s.cacheLookup(ctx, digest); cached != nil {
			return cached, nil
		}
	}

	faces, err := s.engine.Detect(ctx, image)
	if err != nil && !errors.Is(err, engine.ErrNoFaceDetected) {
		return nil, fmt.Errorf("%w: detect: %v", ErrEngineUnavailable, err)
	}
	if len(faces) == 0 {
		return &IdentificationResult{
			Success:    true,
			Candidates: []CandidateMatch{},
			Message:    "no face detected in image",
		}, nil
	}

	matches, err := s.engine.Search(ctx, image, maxResults, threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrEngineUnavailable, err)
	}

	candidates, err := s.resolveMatches(ctx, matches)
	if err != nil {
		return nil, err
	}

	// Stable sort keeps the engine's return order for equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	result := &IdentificationResult{
		Success:       true,
		FacesDetected: len(faces),
		Candidates:    candidates,
		Message:       fmt.Sprintf("%d candidate(s) found", len(candidates)),
	}

	if len(candidates) > 0 {
		if s.cache != nil {
			s.cacheStore(ctx, digest, result)
		}
		s.appendAuditRecords(candidates)
	}

	return result, nil
}

// resolveMatches joins engine matches with identity records using a
// single batch lookup. A match whose external id resolves to nothing
// is an inconsistency between the engine collection and the identity
// store; it is logged and dropped, never surfaced as an error.
func (s *IdentificationService) resolveMatches(
	ctx context.Context, matches []engine.Match,
) ([]CandidateMatch, error) {
	if len(matches) == 0 {
		return []CandidateMatch{}, nil
	}

	seen := make(map[string]bool, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m.ExternalID] {
			seen[m.ExternalID] = true
			ids = append(ids, m.ExternalID)
		}
	}

	people, err := s.repo.GetPeopleBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve identities: %v", ErrStoreUnavailable, err)
	}

	byID := make(map[string]*database.Person, len(people))
	for i := range people {
		byID[people[i].ID] = &people[i]
	}

	now := time.Now()
	candidates := make([]CandidateMatch, 0, len(matches))
	for _, m := range matches {
		person, ok := byID[m.ExternalID]
		if !ok {
			log.Printf("warning: engine match %s references unknown person %s, skipping",
				m.FaceID, m.ExternalID)
			continue
		}
		candidates = append(candidates, CandidateMatch{
			PersonID:     person.ID,
			DisplayName:  person.DisplayName,
			EngineFaceID: m.FaceID,
			Similarity:   m.Similarity,
			Confidence:   m.Similarity / 100.0,
			Attributes:   person.Attributes,
			ResolvedAt:   now,
		})
	}
	return candidates, nil
}

// cacheLookup returns a cached result for the digest, or nil on miss.
// Cache failures degrade to a miss.
func (s *IdentificationService) cacheLookup(ctx context.Context, digest string) *IdentificationResult {
	payload, ok, err := s.cache.Get(ctx, digest)
	if err != nil {
		log.Printf("warning: cache lookup failed for %s: %v", digest, err)
		return nil
	}
	if !ok {
		return nil
	}

	var result IdentificationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		log.Printf("warning: dropping malformed cache entry %s: %v", digest, err)
		if derr := s.cache.Delete(ctx, digest); derr != nil {
			log.Printf("warning: failed to drop cache entry %s: %v", digest, derr)
		}
		return nil
	}

	result.CacheHit = true
	return &result
}

// cacheStore writes a result to the cache, best-effort.
func (s *IdentificationService) cacheStore(ctx context.Context, digest string, result *IdentificationResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		log.Printf("warning: failed to serialize result for cache: %v", err)
		return
	}
	if err := s.cache.Set(ctx, digest, payload, s.opts.CacheTTL); err != nil {
		log.Printf("warning: failed to cache result %s: %v", digest, err)
	}
}

// appendAuditRecords writes match audit entries in the background so
// the response never waits on the audit trail.
func (s *IdentificationService) appendAuditRecords(candidates []CandidateMatch) {
	records := make([]database.MatchRecord, 0, len(candidates))
	for _, c := range candidates {
		records = append(records, database.MatchRecord{
			PersonID:     c.PersonID,
			EngineFaceID: c.EngineFaceID,
			Similarity:   c.Similarity,
			Confidence:   c.Confidence,
			ResolvedAt:   c.ResolvedAt,
		})
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(),
			constants.AuditWriteTimeout*time.Second)
		defer cancel()
		for i := range records {
			if err := s.repo.AppendMatchRecord(ctx, &records[i]); err != nil {
				log.Printf("warning: failed to append match record for %s: %v",
					records[i].PersonID, err)
				return
			}
		}
	}()
}
