// Package store defines the persistence gateway: one contract implemented by
// interchangeable backends. Backend choice is a deployment detail and is
// never observable in query semantics.
package store

import (
	"context"

	"github.com/genovault/genovault/internal/record"
)

// Record is any persistable genomic record. The concrete types are
// record.Patient, record.GeneRecord and record.MutationRecord.
type Record interface {
	RecordID() string
	RecordKind() record.Kind
}

// Predicate filters records during a query scan.
type Predicate func(Record) bool

// PutOptions controls single-record put behavior.
type PutOptions struct {
	// Replace allows an existing (patient, gene) record to be superseded
	// instead of reported as a DuplicateError.
	Replace bool
}

// Tx exposes the record operations available inside an atomic scope. All
// mutations to durable state go through a transaction; a failed transaction
// leaves the store exactly as it was.
type Tx interface {
	// PutPatient creates or updates a patient.
	PutPatient(record.Patient) (record.Patient, error)
	// PutGene stores a gene record, assigning an ID when empty. A second
	// record for the same (patient, gene) pair is a DuplicateError unless
	// replace is set, in which case the prior record is superseded in
	// place (same ID).
	PutGene(g record.GeneRecord, replace bool) (record.GeneRecord, error)
	// PutMutation stores a derived mutation record, superseding any prior
	// mutation record for the same gene record.
	PutMutation(record.MutationRecord) (record.MutationRecord, error)

	// Deletes cascade: a patient takes its gene records and their
	// mutation records with it.
	DeletePatient(id string) error
	DeleteGene(id string) error
	DeleteMutation(id string) error

	FindPatient(id string) (record.Patient, bool)
	FindGene(id string) (record.GeneRecord, bool)
	FindGeneByKey(key record.GeneKey) (record.GeneRecord, bool)
	FindMutation(id string) (record.MutationRecord, bool)

	ListPatients() []record.Patient
	ListGenes() []record.GeneRecord
	ListMutations() []record.MutationRecord
}

// Store is the persistence gateway contract. Reads never block other reads
// and observe the state as of the last committed transaction.
type Store interface {
	// Put stores a single record in its own transaction.
	Put(ctx context.Context, rec Record, opts PutOptions) (Record, error)
	// Get returns the record of the given kind, or a NotFoundError.
	Get(ctx context.Context, kind record.Kind, id string) (Record, error)
	// Delete removes the record and everything that depends on it.
	Delete(ctx context.Context, kind record.Kind, id string) error
	// Query returns all records matching the predicate, ordered by kind
	// (patients, gene records, mutation records) then identifier.
	Query(ctx context.Context, pred Predicate) ([]Record, error)
	// RunInTransaction applies fn atomically. On any error the state is
	// unchanged and the error is wrapped in a TransactionAborted.
	RunInTransaction(ctx context.Context, fn func(Tx) error) error
	// Snapshot returns a copy of the full store state, collections ordered
	// by identifier.
	Snapshot(ctx context.Context) (record.Snapshot, error)
	// GenesOf lists a patient's gene records ordered by gene identifier.
	GenesOf(ctx context.Context, patientID string) ([]record.GeneRecord, error)
	Close() error
}

// HasGene reports whether a (patient, gene) pair exists. Convenience used by
// the validation engine's duplicate detection.
func HasGene(ctx context.Context, s Store, patientID, geneID string) (bool, error) {
	genes, err := s.GenesOf(ctx, patientID)
	if err != nil {
		return false, err
	}
	for _, g := range genes {
		if g.GeneID == geneID {
			return true, nil
		}
	}
	return false, nil
}
