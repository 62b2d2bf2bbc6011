package record

import "fmt"

// ValidationError reports malformed or out-of-range input. Recoverable;
// reported per row during imports.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DuplicateError reports a (patient, gene) pair that already exists in the
// target store. The caller decides whether to reject or replace.
type DuplicateError struct {
	PatientID string
	GeneID    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("gene record already exists for patient %s gene %s", e.PatientID, e.GeneID)
}

// NotFoundError reports a get or delete against a missing identifier.
type NotFoundError struct {
	Kind Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConstraintViolation reports a broken ownership chain (gene record without
// its patient, mutation record without its gene record). Indicates a caller
// bug; never retried.
type ConstraintViolation struct {
	Msg string
}

func (e *ConstraintViolation) Error() string {
	return "constraint violation: " + e.Msg
}

// StorageUnavailable reports an unreachable backend: a failed relational
// connection or an unwritable file. Surfaced immediately; the caller decides
// whether to retry.
type StorageUnavailable struct {
	Err error
}

func (e *StorageUnavailable) Error() string {
	return "storage unavailable: " + e.Err.Error()
}

func (e *StorageUnavailable) Unwrap() error { return e.Err }

// TransactionAborted reports that an atomic batch failed. The entire batch
// has no effect; durable state is unchanged.
type TransactionAborted struct {
	Err error
}

func (e *TransactionAborted) Error() string {
	return "transaction aborted: " + e.Err.Error()
}

func (e *TransactionAborted) Unwrap() error { return e.Err }
