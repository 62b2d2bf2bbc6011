package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genovault/genovault/internal/query"
	"github.com/genovault/genovault/internal/record"
	"github.com/genovault/genovault/internal/store"
)

func intPtr(v int) *int { return &v }

// seedStore loads a small cohort: three patients, four gene records, three
// derived mutation records.
func seedStore(t *testing.T) store.Store {
	t.Helper()
	s := store.NewMemory()
	err := s.RunInTransaction(context.Background(), func(tx store.Tx) error {
		for _, p := range []record.Patient{
			{ID: "P1", Age: intPtr(45), Sex: record.SexFemale, Stage: record.StageII},
			{ID: "P2", Age: intPtr(70), Sex: record.SexMale, Stage: record.StageIV},
			{ID: "P3", Sex: record.SexFemale, Stage: record.StageI},
		} {
			if _, err := tx.PutPatient(p); err != nil {
				return err
			}
		}
		genes := []record.GeneRecord{
			{ID: "g1", PatientID: "P1", GeneID: "TP53", Expression: 0.1},
			{ID: "g2", PatientID: "P1", GeneID: "BRCA1", Expression: 8.2},
			{ID: "g3", PatientID: "P2", GeneID: "TP53", Expression: 0.3},
			{ID: "g4", PatientID: "P3", GeneID: "KRAS", Expression: 5.0},
		}
		for _, g := range genes {
			if _, err := tx.PutGene(g, false); err != nil {
				return err
			}
		}
		muts := []record.MutationRecord{
			{ID: "g1@v1", GeneRecordID: "g1", Type: record.MutationSubstitution, Classification: record.ClassPathogenic, CatalogVersion: "v1", RuleVersion: "1"},
			{ID: "g3@v1", GeneRecordID: "g3", Type: record.MutationSubstitution, Classification: record.ClassLikelyPathogenic, CatalogVersion: "v1", RuleVersion: "1"},
			{ID: "g4@v1", GeneRecordID: "g4", Type: record.MutationNone, Classification: record.ClassBenign, CatalogVersion: "v1", RuleVersion: "1"},
		}
		for _, m := range muts {
			if _, err := tx.PutMutation(m); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return s
}

func TestRun_NoFilter(t *testing.T) {
	e := query.New(seedStore(t))
	rep, err := e.Run(context.Background(), query.Request{})
	require.NoError(t, err)

	counts := rep[query.AggClassificationCounts]
	require.Len(t, counts, 3)
	// Tie on count 1: keys ascending.
	assert.Equal(t, "benign", counts[0].Key)
	assert.Equal(t, "likely-pathogenic", counts[1].Key)
	assert.Equal(t, "pathogenic", counts[2].Key)

	top := rep[query.AggTopMutated]
	require.Len(t, top, 1, "only genes with a detected mutation rank")
	assert.Equal(t, "TP53", top[0].Key)
	assert.Equal(t, 2.0, top[0].Value)

	stats := rep[query.AggExpressionStats]
	require.Len(t, stats, 3)
	assert.Equal(t, "BRCA1", stats[0].Key, "stats ordered by gene id")
	assert.Equal(t, "KRAS", stats[1].Key)
	assert.Equal(t, "TP53", stats[2].Key)
	tp53 := stats[2]
	assert.InDelta(t, 0.2, tp53.Value, 1e-9)
	assert.InDelta(t, 0.01, tp53.Extra["variance"], 1e-9)
	assert.Equal(t, 2.0, tp53.Extra["n"])
}

func TestRun_Reproducible(t *testing.T) {
	e := query.New(seedStore(t))
	first, err := e.Run(context.Background(), query.Request{})
	require.NoError(t, err)
	second, err := e.Run(context.Background(), query.Request{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFilters(t *testing.T) {
	e := query.New(seedStore(t))
	ctx := context.Background()

	tests := []struct {
		name   string
		filter query.Filter
		genes  []string
	}{
		{"by sex", query.BySex(record.SexFemale), []string{"BRCA1", "TP53", "KRAS"}},
		{"by stage", query.ByStage(record.StageIV), []string{"TP53"}},
		{"by age range", query.ByAgeRange(60, 90), []string{"TP53"}},
		{"no age never matches range", query.And(query.ByAgeRange(0, 150), query.ByGene("KRAS")), nil},
		{"by gene", query.ByGene("TP53"), []string{"TP53", "TP53"}},
		{"by classification", query.ByClassification(record.ClassPathogenic), []string{"TP53"}},
		{"by expression range", query.ByExpressionRange(4.0, 9.0), []string{"BRCA1", "KRAS"}},
		{"and", query.And(query.ByGene("TP53"), query.BySex(record.SexMale)), []string{"TP53"}},
		{"or", query.Or(query.ByGene("BRCA1"), query.ByGene("KRAS")), []string{"BRCA1", "KRAS"}},
		{"empty and matches all", query.And(), []string{"BRCA1", "TP53", "TP53", "KRAS"}},
		{"empty or matches none", query.Or(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := e.Rows(ctx, tt.filter)
			require.NoError(t, err)
			var genes []string
			for _, r := range rows {
				genes = append(genes, r.Gene.GeneID)
			}
			assert.ElementsMatch(t, tt.genes, genes)
		})
	}
}

func TestRows_Ordering(t *testing.T) {
	e := query.New(seedStore(t))
	rows, err := e.Rows(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	// Patient ascending, then gene ascending.
	assert.Equal(t, "BRCA1", rows[0].Gene.GeneID)
	assert.Equal(t, "TP53", rows[1].Gene.GeneID)
	assert.Equal(t, "P2", rows[2].Patient.ID)
	assert.Equal(t, "P3", rows[3].Patient.ID)
}

func TestRun_TopN(t *testing.T) {
	e := query.New(seedStore(t))
	rep, err := e.Run(context.Background(), query.Request{TopN: 1, Filter: nil})
	require.NoError(t, err)
	assert.Len(t, rep[query.AggTopMutated], 1)
}

func TestRun_FilteredAggregation(t *testing.T) {
	e := query.New(seedStore(t))
	rep, err := e.Run(context.Background(), query.Request{Filter: query.ByStage(record.StageIV)})
	require.NoError(t, err)

	counts := rep[query.AggClassificationCounts]
	require.Len(t, counts, 1)
	assert.Equal(t, "likely-pathogenic", counts[0].Key)
	assert.Equal(t, 1.0, counts[0].Value)
}
