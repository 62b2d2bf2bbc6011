// Package validate turns raw import rows into typed records, enforcing the
// record model's constraints before anything reaches the store. Validation is
// pure: it reads a duplicate index but never writes.
package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/genovault/genovault/internal/record"
)

// Recognized row fields, matching the CSV front-end's header names.
const (
	FieldPatientID  = "patient_id"
	FieldAge        = "age"
	FieldSex        = "sex"
	FieldStage      = "stage"
	FieldGeneID     = "gene_id"
	FieldExpression = "expression"
	FieldSequence   = "sequence"
)

// Row is one raw import row: field name to untyped value, as produced by the
// CSV parsing collaborator.
type Row map[string]any

// Result is one validated row: the patient it describes (possibly already
// known to the store) and the gene record it carries.
type Result struct {
	Patient record.Patient
	Gene    record.GeneRecord
}

// Options controls per-request validation behavior.
type Options struct {
	// Replace downgrades an existing (patient, gene) pair from a
	// DuplicateError to an accepted replacement.
	Replace bool
}

// Index answers duplicate lookups against the target store.
type Index interface {
	HasGene(patientID, geneID string) bool
}

// Engine validates raw rows. A nil index disables duplicate detection.
type Engine struct {
	index Index
}

// New creates a validation engine backed by the given duplicate index.
func New(index Index) *Engine {
	return &Engine{index: index}
}

// Validate checks one row: field presence, type coercion, range rules and
// duplicate detection. Returns a ValidationError or DuplicateError on
// failure.
func (e *Engine) Validate(row Row, opts Options) (*Result, error) {
	patientID, err := stringField(row, FieldPatientID, true)
	if err != nil {
		return nil, err
	}
	geneID, err := stringField(row, FieldGeneID, true)
	if err != nil {
		return nil, err
	}

	age, err := ageField(row)
	if err != nil {
		return nil, err
	}
	sexStr, err := stringField(row, FieldSex, false)
	if err != nil {
		return nil, err
	}
	stageStr, err := stringField(row, FieldStage, false)
	if err != nil {
		return nil, err
	}

	patient, err := record.NewPatient(patientID, age, record.Sex(strings.ToLower(sexStr)), record.Stage(stageStr))
	if err != nil {
		return nil, err
	}

	expression, err := floatField(row, FieldExpression)
	if err != nil {
		return nil, err
	}
	sequence, err := stringField(row, FieldSequence, false)
	if err != nil {
		return nil, err
	}

	gene, err := record.NewGeneRecord(patientID, geneID, expression, sequence)
	if err != nil {
		return nil, err
	}

	if !opts.Replace && e.index != nil && e.index.HasGene(patientID, geneID) {
		return nil, &record.DuplicateError{PatientID: patientID, GeneID: geneID}
	}

	return &Result{Patient: *patient, Gene: *gene}, nil
}

// Outcome is the per-row result of a batch validation.
type Outcome struct {
	// Line is the 1-based row number within the batch.
	Line   int
	Result *Result
	Err    error
}

// Batch validates rows lazily so one malformed row never aborts the whole
// import. The caller decides whether to stop at the first failed outcome.
type Batch struct {
	engine *Engine
	rows   []Row
	opts   Options
	next   int
}

// Batch starts a lazy validation pass over the given rows.
func (e *Engine) Batch(rows []Row, opts Options) *Batch {
	return &Batch{engine: e, rows: rows, opts: opts}
}

// Next validates and returns the next row's outcome. The second return is
// false once the batch is exhausted.
func (b *Batch) Next() (Outcome, bool) {
	if b.next >= len(b.rows) {
		return Outcome{}, false
	}
	row := b.rows[b.next]
	b.next++
	res, err := b.engine.Validate(row, b.opts)
	return Outcome{Line: b.next, Result: res, Err: err}, true
}

// RunAll collects every outcome. With stopOnError set it returns early after
// the first failure, leaving that failure as the last outcome.
func (b *Batch) RunAll(stopOnError bool) []Outcome {
	var outcomes []Outcome
	for {
		o, ok := b.Next()
		if !ok {
			return outcomes
		}
		outcomes = append(outcomes, o)
		if stopOnError && o.Err != nil {
			return outcomes
		}
	}
}

func stringField(row Row, field string, required bool) (string, error) {
	v, ok := row[field]
	if !ok || v == nil {
		if required {
			return "", &record.ValidationError{Field: field, Reason: "missing"}
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &record.ValidationError{Field: field, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	s = strings.TrimSpace(s)
	if required && s == "" {
		return "", &record.ValidationError{Field: field, Reason: "must not be empty"}
	}
	return s, nil
}

func ageField(row Row) (*int, error) {
	v, ok := row[FieldAge]
	if !ok || v == nil {
		return nil, nil
	}
	switch n := v.(type) {
	case int:
		return &n, nil
	case float64:
		if n != math.Trunc(n) {
			return nil, &record.ValidationError{Field: FieldAge, Reason: fmt.Sprintf("expected whole number, got %g", n)}
		}
		i := int(n)
		return &i, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil, nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return nil, &record.ValidationError{Field: FieldAge, Reason: fmt.Sprintf("cannot parse %q as integer", s)}
		}
		return &i, nil
	default:
		return nil, &record.ValidationError{Field: FieldAge, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

func floatField(row Row, field string) (float64, error) {
	v, ok := row[field]
	if !ok || v == nil {
		return 0, &record.ValidationError{Field: field, Reason: "missing"}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		s := strings.TrimSpace(n)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, &record.ValidationError{Field: field, Reason: fmt.Sprintf("cannot parse %q as number", s)}
		}
		return f, nil
	default:
		return 0, &record.ValidationError{Field: field, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}
