package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genovault/genovault/internal/record"
)

type fakeIndex map[record.GeneKey]bool

func (f fakeIndex) HasGene(patientID, geneID string) bool {
	return f[record.GeneKey{PatientID: patientID, GeneID: geneID}]
}

func validRow() Row {
	return Row{
		"patient_id": "P1",
		"age":        "54",
		"sex":        "Female",
		"stage":      "II",
		"gene_id":    "BRCA1",
		"expression": "8.2",
		"sequence":   "ATCG",
	}
}

func TestValidate(t *testing.T) {
	e := New(nil)
	res, err := e.Validate(validRow(), Options{})
	require.NoError(t, err)

	assert.Equal(t, "P1", res.Patient.ID)
	require.NotNil(t, res.Patient.Age)
	assert.Equal(t, 54, *res.Patient.Age)
	assert.Equal(t, record.SexFemale, res.Patient.Sex, "sex is lower-cased before enum check")
	assert.Equal(t, record.StageII, res.Patient.Stage)

	assert.Equal(t, "BRCA1", res.Gene.GeneID)
	assert.Equal(t, 8.2, res.Gene.Expression)
	assert.Equal(t, "ATCG", res.Gene.Sequence)
}

func TestValidate_OptionalFieldsAbsent(t *testing.T) {
	e := New(nil)
	res, err := e.Validate(Row{
		"patient_id": "P1",
		"gene_id":    "TP53",
		"expression": 0.1,
	}, Options{})
	require.NoError(t, err)
	assert.Nil(t, res.Patient.Age)
	assert.Equal(t, record.SexUnknown, res.Patient.Sex)
	assert.Equal(t, record.StageUnknown, res.Patient.Stage)
	assert.Empty(t, res.Gene.Sequence)
}

func TestValidate_NumericTypesAccepted(t *testing.T) {
	e := New(nil)
	res, err := e.Validate(Row{
		"patient_id": "P1",
		"age":        float64(61),
		"gene_id":    "KRAS",
		"expression": 3,
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 61, *res.Patient.Age)
	assert.Equal(t, 3.0, res.Gene.Expression)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Row)
		field  string
	}{
		{"missing patient id", func(r Row) { delete(r, "patient_id") }, "patient_id"},
		{"blank patient id", func(r Row) { r["patient_id"] = "  " }, "patient_id"},
		{"missing gene id", func(r Row) { delete(r, "gene_id") }, "gene_id"},
		{"missing expression", func(r Row) { delete(r, "expression") }, "expression"},
		{"unparseable expression", func(r Row) { r["expression"] = "high" }, "expression"},
		{"fractional age", func(r Row) { r["age"] = 54.5 }, "age"},
		{"unparseable age", func(r Row) { r["age"] = "old" }, "age"},
		{"age out of range", func(r Row) { r["age"] = "200" }, "age"},
		{"bad sex enum", func(r Row) { r["sex"] = "F?" }, "sex"},
		{"bad stage enum", func(r Row) { r["stage"] = "V" }, "stage"},
		{"bad sequence", func(r Row) { r["sequence"] = "ATXG" }, "sequence"},
		{"wrong field type", func(r Row) { r["patient_id"] = 12 }, "patient_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			tt.mutate(row)
			_, err := New(nil).Validate(row, Options{})
			var verr *record.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidate_Duplicate(t *testing.T) {
	idx := fakeIndex{{PatientID: "P1", GeneID: "BRCA1"}: true}
	e := New(idx)

	_, err := e.Validate(validRow(), Options{})
	var dup *record.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "BRCA1", dup.GeneID)

	// The replace flag turns the duplicate into an accepted replacement.
	res, err := e.Validate(validRow(), Options{Replace: true})
	require.NoError(t, err)
	assert.Equal(t, "BRCA1", res.Gene.GeneID)
}

func TestBatch_CollectAll(t *testing.T) {
	rows := []Row{
		validRow(),
		{"patient_id": "P2", "gene_id": "TP53"}, // missing expression
		{"patient_id": "P3", "gene_id": "KRAS", "expression": "1.5"},
	}
	outcomes := New(nil).Batch(rows, Options{}).RunAll(false)
	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err, "one malformed row never aborts the import")
	assert.NoError(t, outcomes[2].Err)
	assert.Equal(t, 2, outcomes[1].Line)
}

func TestBatch_StopOnError(t *testing.T) {
	rows := []Row{
		{"patient_id": "P1", "gene_id": "TP53"}, // missing expression
		validRow(),
	}
	outcomes := New(nil).Batch(rows, Options{}).RunAll(true)
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err)
}

func TestBatch_Lazy(t *testing.T) {
	b := New(nil).Batch([]Row{validRow(), validRow()}, Options{})
	o, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, 1, o.Line)
	o, ok = b.Next()
	require.True(t, ok)
	assert.Equal(t, 2, o.Line)
	_, ok = b.Next()
	assert.False(t, ok)
}
