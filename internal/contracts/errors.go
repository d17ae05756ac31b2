package contracts

import (
	"errors"
	"fmt"
	"time"
)

// ⭐ SSOT: 파이프라인 에러 분류는 여기서만

var (
	// ErrAuthExpired means the access token was rejected. Fatal to the run, never retried.
	ErrAuthExpired = errors.New("auth expired")

	// ErrTransient matches any TransientFailure via errors.Is
	ErrTransient = errors.New("transient failure")

	// ErrUnknownSymbol means the upstream instrument master has no such symbol
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrNotFound is returned by store lookups with no row
	ErrNotFound = errors.New("not found")
)

// TransientFailure is a network, rate-limit or 5xx failure that survived local retries
type TransientFailure struct {
	Symbol   string
	Attempts int
	Err      error
}

func (e *TransientFailure) Error() string {
	return fmt.Sprintf("%s: transient failure after %d attempts: %v", e.Symbol, e.Attempts, e.Err)
}

func (e *TransientFailure) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrTransient) match
func (e *TransientFailure) Is(target error) bool {
	return target == ErrTransient
}

// DataIntegrityError describes a bar that violates the bar invariants.
// The bar is rejected and logged, never written.
type DataIntegrityError struct {
	Symbol string
	Date   time.Time
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("%s %s: invalid bar: %s", e.Symbol, e.Date.Format(DateLayout), e.Reason)
}

// IsAuthExpired reports whether err aborts the run
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}
