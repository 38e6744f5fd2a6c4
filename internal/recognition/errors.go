package recognition

import "errors"

var (
	// ErrIndexingFailed signals that the engine rejected the face
	// vector after the identity record was created. The compensating
	// identity delete has already run by the time callers see it.
	ErrIndexingFailed = errors.New("face indexing failed")

	// ErrStoreUnavailable marks blob or identity store failures.
	ErrStoreUnavailable = errors.New("identity store unavailable")

	// ErrEngineUnavailable marks matching engine failures.
	ErrEngineUnavailable = errors.New("matching engine unavailable")

	// ErrPersonNotFound is returned for operations on unknown ids.
	ErrPersonNotFound = errors.New("person not found")
)
