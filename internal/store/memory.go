package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/genovault/genovault/internal/record"
)

// PersistFunc durably writes a committed snapshot. Backends install one; a
// persist failure aborts the transaction and the in-memory state keeps its
// pre-transaction value.
type PersistFunc func(record.Snapshot) error

// Memory is the shared transactional core: an in-memory store with
// copy-on-write transactions. On its own it is the ephemeral backend used by
// tests; the file and relational backends wrap it with a PersistFunc.
type Memory struct {
	writeMu sync.Mutex // serializes transactions
	mu      sync.RWMutex
	state   memState
	persist PersistFunc
	idFn    func() string
}

var _ Store = (*Memory)(nil)

// Option configures a Memory store.
type Option func(*Memory)

// WithPersist installs the durable write hook invoked on every dirty commit.
func WithPersist(fn PersistFunc) Option {
	return func(s *Memory) { s.persist = fn }
}

// WithIDFunc overrides gene record id generation. Tests use this for stable
// identifiers.
func WithIDFunc(fn func() string) Option {
	return func(s *Memory) { s.idFn = fn }
}

// NewMemory constructs an empty store.
func NewMemory(opts ...Option) *Memory {
	s := &Memory{
		state: newMemState(),
		idFn:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ImportSnapshot replaces the store state with a persisted snapshot,
// re-validating referential integrity. Backends call this on open.
func (s *Memory) ImportSnapshot(snap record.Snapshot) error {
	state, err := importSnapshot(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

// RunInTransaction applies fn against a clone of the current state and swaps
// the clone in on success. Readers continue to see the previous state until
// the commit; any error leaves the store untouched.
func (s *Memory) RunInTransaction(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return &record.TransactionAborted{Err: err}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	cloned := s.state.clone()
	s.mu.RUnlock()

	tx := &memTx{state: &cloned, idFn: s.idFn}
	if err := fn(tx); err != nil {
		return &record.TransactionAborted{Err: err}
	}

	if tx.dirty > 0 && s.persist != nil {
		if err := s.persist(cloned.export()); err != nil {
			return &record.TransactionAborted{Err: err}
		}
	}

	s.mu.Lock()
	s.state = cloned
	s.mu.Unlock()
	return nil
}

// unwrapAborted surfaces the specific failure kind for single-record
// operations while RunInTransaction keeps the batch-level wrapping.
func unwrapAborted(err error) error {
	var ta *record.TransactionAborted
	if errors.As(err, &ta) {
		return ta.Err
	}
	return err
}

// Put stores one record in its own transaction.
func (s *Memory) Put(ctx context.Context, rec Record, opts PutOptions) (Record, error) {
	var stored Record
	err := s.RunInTransaction(ctx, func(tx Tx) error {
		var err error
		switch r := rec.(type) {
		case record.Patient:
			stored, err = tx.PutPatient(r)
		case *record.Patient:
			stored, err = tx.PutPatient(*r)
		case record.GeneRecord:
			stored, err = tx.PutGene(r, opts.Replace)
		case *record.GeneRecord:
			stored, err = tx.PutGene(*r, opts.Replace)
		case record.MutationRecord:
			stored, err = tx.PutMutation(r)
		case *record.MutationRecord:
			stored, err = tx.PutMutation(*r)
		default:
			err = fmt.Errorf("unsupported record type %T", rec)
		}
		return err
	})
	if err != nil {
		return nil, unwrapAborted(err)
	}
	return stored, nil
}

// Get returns the record of the given kind and id.
func (s *Memory) Get(ctx context.Context, kind record.Kind, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case record.KindPatient:
		if p, ok := s.state.patients[id]; ok {
			return p, nil
		}
	case record.KindGene:
		if g, ok := s.state.genes[id]; ok {
			return g, nil
		}
	case record.KindMutation:
		if m, ok := s.state.mutations[id]; ok {
			return m, nil
		}
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	return nil, &record.NotFoundError{Kind: kind, ID: id}
}

// Delete removes a record and its dependents in one transaction.
func (s *Memory) Delete(ctx context.Context, kind record.Kind, id string) error {
	err := s.RunInTransaction(ctx, func(tx Tx) error {
		switch kind {
		case record.KindPatient:
			return tx.DeletePatient(id)
		case record.KindGene:
			return tx.DeleteGene(id)
		case record.KindMutation:
			return tx.DeleteMutation(id)
		default:
			return fmt.Errorf("unknown record kind %q", kind)
		}
	})
	return unwrapAborted(err)
}

// Query scans every record in deterministic order and returns those matching
// the predicate. A nil predicate matches everything.
func (s *Memory) Query(ctx context.Context, pred Predicate) ([]Record, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, p := range snap.Patients {
		if pred == nil || pred(p) {
			out = append(out, p)
		}
	}
	for _, g := range snap.GeneRecords {
		if pred == nil || pred(g) {
			out = append(out, g)
		}
	}
	for _, m := range snap.Mutations {
		if pred == nil || pred(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Snapshot copies the current committed state.
func (s *Memory) Snapshot(ctx context.Context) (record.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return record.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.export(), nil
}

// GenesOf lists the gene records owned by a patient, ordered by gene id.
func (s *Memory) GenesOf(ctx context.Context, patientID string) ([]record.GeneRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []record.GeneRecord
	for _, g := range s.state.genes {
		if g.PatientID == patientID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneID < out[j].GeneID })
	return out, nil
}

// Close is a no-op for the in-memory backend.
func (s *Memory) Close() error { return nil }
