// Package ingest orchestrates the import pipeline: raw rows are validated,
// classified against the reference catalog and stored, one transaction per
// row. Validation and classification failures never touch durable state.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/genovault/genovault/internal/classify"
	"github.com/genovault/genovault/internal/record"
	"github.com/genovault/genovault/internal/store"
	"github.com/genovault/genovault/internal/validate"
)

// Service ties the validation engine, classifier and persistence gateway
// together.
type Service struct {
	store      store.Store
	classifier *classify.Classifier
	logger     *zap.Logger
}

// New creates an ingest service.
func New(s store.Store, c *classify.Classifier) *Service {
	return &Service{store: s, classifier: c, logger: zap.NewNop()}
}

// SetLogger sets the logger for import progress and diagnostics.
func (s *Service) SetLogger(l *zap.Logger) {
	s.logger = l
}

// ImportOptions controls a batch import.
type ImportOptions struct {
	// Replace supersedes existing (patient, gene) records instead of
	// reporting DuplicateError.
	Replace bool
	// StopOnError aborts the batch at the first failed row instead of
	// collecting all failures.
	StopOnError bool
}

// RowOutcome reports the fate of one imported row.
type RowOutcome struct {
	Line           int
	PatientID      string
	GeneID         string
	Classification record.Classification
	Err            error
}

// ImportReport summarizes a batch import.
type ImportReport struct {
	Outcomes []RowOutcome
	Imported int
	Failed   int
}

// storeIndex adapts the gateway to the validation engine's duplicate lookup.
type storeIndex struct {
	ctx context.Context
	s   store.Store
}

func (i storeIndex) HasGene(patientID, geneID string) bool {
	ok, err := store.HasGene(i.ctx, i.s, patientID, geneID)
	return err == nil && ok
}

// Import runs the pipeline over raw rows. Each accepted row commits in its
// own transaction; a failed row is reported and the rest of the batch
// continues unless StopOnError is set.
func (s *Service) Import(ctx context.Context, rows []validate.Row, opts ImportOptions) (*ImportReport, error) {
	engine := validate.New(storeIndex{ctx: ctx, s: s.store})
	batch := engine.Batch(rows, validate.Options{Replace: opts.Replace})

	report := &ImportReport{}
	for {
		o, ok := batch.Next()
		if !ok {
			break
		}
		outcome := RowOutcome{Line: o.Line}
		if o.Err != nil {
			outcome.Err = o.Err
		} else {
			outcome.PatientID = o.Result.Patient.ID
			outcome.GeneID = o.Result.Gene.GeneID
			mut, err := s.storeRow(ctx, o.Result, opts.Replace)
			if err != nil {
				outcome.Err = err
			} else {
				outcome.Classification = mut.Classification
			}
		}

		if outcome.Err != nil {
			report.Failed++
			s.logger.Warn("row rejected",
				zap.Int("line", outcome.Line),
				zap.Error(outcome.Err))
		} else {
			report.Imported++
		}
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Err != nil && opts.StopOnError {
			break
		}
	}

	s.logger.Info("import finished",
		zap.Int("imported", report.Imported),
		zap.Int("failed", report.Failed))
	return report, nil
}

// storeRow commits one validated row: the patient (created when new, left
// untouched when known — demographics change only through explicit edits),
// the gene record and its derived mutation record.
func (s *Service) storeRow(ctx context.Context, res *validate.Result, replace bool) (record.MutationRecord, error) {
	var mut record.MutationRecord
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		if _, ok := tx.FindPatient(res.Patient.ID); !ok {
			if _, err := tx.PutPatient(res.Patient); err != nil {
				return err
			}
		}
		gene, err := tx.PutGene(res.Gene, replace)
		if err != nil {
			return err
		}
		mut, err = tx.PutMutation(s.classifier.Classify(gene))
		return err
	})
	if err != nil {
		return record.MutationRecord{}, err
	}
	return mut, nil
}

// AddPatient creates or updates a patient record.
func (s *Service) AddPatient(ctx context.Context, p record.Patient) error {
	_, err := s.store.Put(ctx, p, store.PutOptions{})
	return err
}

// AddGene stores a gene record for an existing patient and derives its
// mutation record in the same transaction.
func (s *Service) AddGene(ctx context.Context, g record.GeneRecord, replace bool) (record.GeneRecord, record.MutationRecord, error) {
	var stored record.GeneRecord
	var mut record.MutationRecord
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		var err error
		stored, err = tx.PutGene(g, replace)
		if err != nil {
			return err
		}
		mut, err = tx.PutMutation(s.classifier.Classify(stored))
		return err
	})
	if err != nil {
		return record.GeneRecord{}, record.MutationRecord{}, err
	}
	return stored, mut, nil
}

// GetPatient returns a patient with its derived set of gene records.
func (s *Service) GetPatient(ctx context.Context, id string) (record.Patient, []record.GeneRecord, error) {
	rec, err := s.store.Get(ctx, record.KindPatient, id)
	if err != nil {
		return record.Patient{}, nil, err
	}
	genes, err := s.store.GenesOf(ctx, id)
	if err != nil {
		return record.Patient{}, nil, err
	}
	return rec.(record.Patient), genes, nil
}

// DeletePatient removes a patient and, cascading, its gene and mutation
// records.
func (s *Service) DeletePatient(ctx context.Context, id string) error {
	return s.store.Delete(ctx, record.KindPatient, id)
}

// Reclassify swaps in a classifier built over a new catalog and re-derives
// every mutation record in one transaction: all records supersede their
// predecessors or none do.
func (s *Service) Reclassify(ctx context.Context, c *classify.Classifier) (int, error) {
	if c == nil {
		return 0, fmt.Errorf("reclassify: classifier must not be nil")
	}
	old := s.classifier
	s.classifier = c

	count := 0
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		for _, gene := range tx.ListGenes() {
			if _, err := tx.PutMutation(c.Classify(gene)); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		s.classifier = old
		return 0, err
	}
	s.logger.Info("reclassified",
		zap.Int("geneRecords", count),
		zap.String("catalogVersion", c.CatalogVersion()))
	return count, nil
}
