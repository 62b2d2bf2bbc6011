// Package query filters and aggregates stored records for the reporting
// collaborator. It produces plain structured data and renders nothing.
package query

import (
	"context"
	"sort"

	"github.com/genovault/genovault/internal/record"
	"github.com/genovault/genovault/internal/store"
)

// Row is the join the filters operate on: a gene record with its owning
// patient and, when derived, its current mutation record.
type Row struct {
	Patient  record.Patient
	Gene     record.GeneRecord
	Mutation *record.MutationRecord
}

// Filter is a predicate over joined rows, composable with And and Or.
type Filter func(Row) bool

// And matches rows accepted by every filter. And() matches everything.
func And(filters ...Filter) Filter {
	return func(r Row) bool {
		for _, f := range filters {
			if !f(r) {
				return false
			}
		}
		return true
	}
}

// Or matches rows accepted by at least one filter.
func Or(filters ...Filter) Filter {
	return func(r Row) bool {
		for _, f := range filters {
			if f(r) {
				return true
			}
		}
		return false
	}
}

// BySex filters on the owning patient's sex.
func BySex(sex record.Sex) Filter {
	return func(r Row) bool { return r.Patient.Sex == sex }
}

// ByStage filters on the owning patient's clinical stage.
func ByStage(stage record.Stage) Filter {
	return func(r Row) bool { return r.Patient.Stage == stage }
}

// ByAgeRange filters on patient age, inclusive. Patients without a recorded
// age never match.
func ByAgeRange(min, max int) Filter {
	return func(r Row) bool {
		return r.Patient.Age != nil && *r.Patient.Age >= min && *r.Patient.Age <= max
	}
}

// ByGene filters on the gene identifier.
func ByGene(geneID string) Filter {
	return func(r Row) bool { return r.Gene.GeneID == geneID }
}

// ByClassification filters on the derived mutation classification. Rows
// without a mutation record never match.
func ByClassification(c record.Classification) Filter {
	return func(r Row) bool { return r.Mutation != nil && r.Mutation.Classification == c }
}

// ByExpressionRange filters on the expression value, inclusive.
func ByExpressionRange(lo, hi float64) Filter {
	return func(r Row) bool { return r.Gene.Expression >= lo && r.Gene.Expression <= hi }
}

// Entry is one aggregation result line. Extra carries secondary values such
// as variance alongside the primary one.
type Entry struct {
	Key   string
	Value float64
	Extra map[string]float64
}

// Report maps an aggregation label to its ordered entries.
type Report map[string][]Entry

// Aggregation labels.
const (
	AggClassificationCounts = "classification_counts"
	AggExpressionStats      = "expression_stats"
	AggTopMutated           = "top_mutated"
)

// DefaultTopN bounds the top_mutated aggregation when the request leaves it
// unset.
const DefaultTopN = 10

// Request describes one query: a filter plus aggregation parameters.
type Request struct {
	// Filter restricts the rows aggregated; nil means all rows.
	Filter Filter
	// TopN bounds the top_mutated aggregation; 0 means DefaultTopN.
	TopN int
}

// Engine aggregates over a store snapshot.
type Engine struct {
	store store.Store
}

// New creates a query engine over the given store.
func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// Rows returns the filtered join, ordered by patient then gene identifier.
func (e *Engine) Rows(ctx context.Context, filter Filter) ([]Row, error) {
	snap, err := e.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return joinRows(snap, filter), nil
}

// Run executes the query and returns every aggregation. Results are sorted
// by a stated key so repeated queries on unchanged data are reproducible:
// counts descending value with key ascending as tie-break, statistics by
// gene identifier ascending.
func (e *Engine) Run(ctx context.Context, req Request) (Report, error) {
	rows, err := e.Rows(ctx, req.Filter)
	if err != nil {
		return nil, err
	}
	topN := req.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	return Report{
		AggClassificationCounts: classificationCounts(rows),
		AggExpressionStats:      expressionStats(rows),
		AggTopMutated:           topMutated(rows, topN),
	}, nil
}

func joinRows(snap record.Snapshot, filter Filter) []Row {
	patients := make(map[string]record.Patient, len(snap.Patients))
	for _, p := range snap.Patients {
		patients[p.ID] = p
	}
	mutations := make(map[string]record.MutationRecord, len(snap.Mutations))
	for _, m := range snap.Mutations {
		mutations[m.GeneRecordID] = m
	}

	var rows []Row
	for _, g := range snap.GeneRecords {
		row := Row{Patient: patients[g.PatientID], Gene: g}
		if m, ok := mutations[g.ID]; ok {
			m := m
			row.Mutation = &m
		}
		if filter == nil || filter(row) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Patient.ID != rows[j].Patient.ID {
			return rows[i].Patient.ID < rows[j].Patient.ID
		}
		return rows[i].Gene.GeneID < rows[j].Gene.GeneID
	})
	return rows
}

// classificationCounts counts mutation records per classification,
// descending count with classification ascending as tie-break.
func classificationCounts(rows []Row) []Entry {
	counts := make(map[string]int)
	for _, r := range rows {
		if r.Mutation != nil {
			counts[string(r.Mutation.Classification)]++
		}
	}
	return sortedCountEntries(counts, len(counts))
}

// expressionStats computes mean and population variance of expression per
// gene across the filtered rows, ordered by gene identifier.
func expressionStats(rows []Row) []Entry {
	sums := make(map[string]float64)
	counts := make(map[string]float64)
	for _, r := range rows {
		sums[r.Gene.GeneID] += r.Gene.Expression
		counts[r.Gene.GeneID]++
	}
	variances := make(map[string]float64)
	for _, r := range rows {
		mean := sums[r.Gene.GeneID] / counts[r.Gene.GeneID]
		d := r.Gene.Expression - mean
		variances[r.Gene.GeneID] += d * d
	}

	entries := make([]Entry, 0, len(sums))
	for gene, sum := range sums {
		n := counts[gene]
		entries = append(entries, Entry{
			Key:   gene,
			Value: sum / n,
			Extra: map[string]float64{
				"variance": variances[gene] / n,
				"n":        n,
			},
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// topMutated ranks genes by the number of filtered rows carrying a detected
// mutation, descending count with gene identifier ascending as tie-break.
func topMutated(rows []Row, n int) []Entry {
	counts := make(map[string]int)
	for _, r := range rows {
		if r.Mutation != nil && r.Mutation.Type != record.MutationNone {
			counts[r.Gene.GeneID]++
		}
	}
	return sortedCountEntries(counts, n)
}

func sortedCountEntries(counts map[string]int, limit int) []Entry {
	entries := make([]Entry, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, Entry{Key: k, Value: float64(v)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Key < entries[j].Key
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
