package quickhire

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error taxonomy for the Quick-Hire core. Validation and authorization
// failures never mutate state; a state conflict means the caller should
// refetch the job and decide whether to retry.
var (
	ErrValidation    = errors.New("validation failed")
	ErrStateConflict = errors.New("state conflict")
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("actor is not a party to this job")
)

// EscrowError reports a payment-collaborator failure. Internal state is
// rolled back before it is returned, but money may be in an ambiguous
// external state, so it carries the job and operation for reconciliation.
type EscrowError struct {
	JobID uuid.UUID
	Op    string
	Err   error
}

func (e *EscrowError) Error() string {
	return fmt.Sprintf("escrow %s failed for job %s: %v", e.Op, e.JobID, e.Err)
}

func (e *EscrowError) Unwrap() error { return e.Err }

func escrowErr(jobID uuid.UUID, op string, err error) error {
	return &EscrowError{JobID: jobID, Op: op, Err: err}
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrStateConflict}, args...)...)
}
