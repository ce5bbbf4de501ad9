package util

// PetroError is the module's error type: a short message plus an optional
// wrapped cause, so callers can errors.Is against the sentinels below while
// still getting a human-readable message.
type PetroError struct {
	Message string
	Err     error
}

func (e *PetroError) Error() string {
	return e.Message
}

func (e *PetroError) Unwrap() error {
	return e.Err
}

// Sentinel error kinds. errors.Is(err, util.ErrCapacityExhausted) works
// against these regardless of what message or wrapped cause a given
// PetroError carries, since errors.Is falls back to == on the chain.
//
// NotResident, StillPinned, DuplicateKey and KeyAbsent aren't sentinels
// here: UnpinPage/FlushPage/DeletePage/Insert/GetValue/Remove signal them
// as plain bool/no-op returns, not errors — there's nothing for a caller
// to errors.Is against. InvariantViolation is a condition the design
// expects never to be reachable, so nothing constructs it either.
var (
	// ErrCapacityExhausted: every frame is pinned; FetchPage/NewPage had
	// no frame to give.
	ErrCapacityExhausted = &PetroError{Message: "buffer pool: capacity exhausted"}
	// ErrPageOverflow: a msgpack-encoded header page record exceeded
	// disk.PageSize.
	ErrPageOverflow = &PetroError{Message: "header page: encoded record exceeds page size"}
)
