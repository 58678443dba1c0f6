package engine

import "errors"

// The error taxonomy callers switch on (spec.md §7): CLI and API layers
// map these to distinct exit codes / HTTP statuses rather than treating
// every failure as opaque.
var (
	// ErrConfigError marks a problem with how the engine itself was
	// configured (missing store or cache, max ratio outside (0,1]), not
	// with any one request.
	ErrConfigError = errors.New("engine: configuration error")

	// ErrObjectNotFound marks a request against a logical key that
	// does not exist, in either direct or delta form.
	ErrObjectNotFound = errors.New("engine: object not found")

	// ErrStorageInconsistency marks a state the engine cannot explain
	// from its own invariants: a delta object exists with no
	// reference, or a reference's declared size contradicts its
	// metadata.
	ErrStorageInconsistency = errors.New("engine: storage inconsistency")

	// ErrIntegrityFailure marks a reconstructed object whose SHA-256
	// does not match the digest recorded at upload time, or a reference
	// whose bytes still fail their digest check after one cache
	// eviction and re-read.
	ErrIntegrityFailure = errors.New("engine: integrity check failed")

	// ErrReferenceCorrupt marks a reference object that fails to act
	// as a valid patch base: its cached bytes cannot be read back, or
	// they do not match the reference digest a delta recorded.
	ErrReferenceCorrupt = errors.New("engine: reference object is corrupt")

	// ErrReferencedByDeltas marks a reference deletion refused because
	// deltas still depend on it.
	ErrReferencedByDeltas = errors.New("engine: reference is still referenced by deltas")

	// ErrTransientStore marks a store-layer failure worth retrying
	// (timeouts, throttling, 5xx).
	ErrTransientStore = errors.New("engine: transient store error")

	// ErrPermanentStore marks a store-layer failure not worth retrying
	// (permission denied, bucket missing).
	ErrPermanentStore = errors.New("engine: permanent store error")
)
