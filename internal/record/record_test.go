package record

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestNewPatient(t *testing.T) {
	p, err := NewPatient("P1", intPtr(54), SexFemale, StageII)
	require.NoError(t, err)
	assert.Equal(t, "P1", p.ID)
	assert.Equal(t, 54, *p.Age)
	assert.Equal(t, SexFemale, p.Sex)
	assert.Equal(t, StageII, p.Stage)
}

func TestNewPatient_DefaultsUnknown(t *testing.T) {
	p, err := NewPatient("P1", nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, SexUnknown, p.Sex)
	assert.Equal(t, StageUnknown, p.Stage)
	assert.Nil(t, p.Age)
}

func TestNewPatient_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		age   *int
		sex   Sex
		stage Stage
		field string
	}{
		{"empty id", "", nil, SexFemale, StageI, "patient_id"},
		{"blank id", "   ", nil, SexFemale, StageI, "patient_id"},
		{"negative age", "P1", intPtr(-1), SexFemale, StageI, "age"},
		{"age too large", "P1", intPtr(151), SexFemale, StageI, "age"},
		{"bad sex", "P1", nil, Sex("yes"), StageI, "sex"},
		{"bad stage", "P1", nil, SexMale, Stage("V"), "stage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPatient(tt.id, tt.age, tt.sex, tt.stage)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNewGeneRecord(t *testing.T) {
	g, err := NewGeneRecord("P1", "BRCA1", 8.2, "atcg")
	require.NoError(t, err)
	assert.Equal(t, "ATCG", g.Sequence, "sequence is upper-cased")
	assert.Equal(t, GeneKey{PatientID: "P1", GeneID: "BRCA1"}, g.Key())
	assert.Equal(t, "P1/BRCA1", g.Key().String())
}

func TestNewGeneRecord_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		patientID  string
		geneID     string
		expression float64
		sequence   string
		field      string
	}{
		{"empty patient", "", "BRCA1", 1.0, "", "patient_id"},
		{"empty gene", "P1", "", 1.0, "", "gene_id"},
		{"nan expression", "P1", "BRCA1", math.NaN(), "", "expression"},
		{"inf expression", "P1", "BRCA1", math.Inf(1), "", "expression"},
		{"bad nucleotide", "P1", "BRCA1", 1.0, "ATXG", "sequence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGeneRecord(tt.patientID, tt.geneID, tt.expression, tt.sequence)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestMutationRecordEqual_IgnoresDetectedAt(t *testing.T) {
	a := MutationRecord{
		ID:             MutationID("g1", "v1"),
		GeneRecordID:   "g1",
		Type:           MutationSubstitution,
		Classification: ClassPathogenic,
		Variant:        "G12C",
		CatalogVersion: "v1",
		RuleVersion:    "1",
		DetectedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	b := a
	b.DetectedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, a.Equal(b))

	b.Classification = ClassBenign
	assert.False(t, a.Equal(b))
}

func TestMutationID_Deterministic(t *testing.T) {
	assert.Equal(t, "g1@v1", MutationID("g1", "v1"))
	assert.Equal(t, MutationID("g1", "v1"), MutationID("g1", "v1"))
	assert.NotEqual(t, MutationID("g1", "v1"), MutationID("g1", "v2"))
}

func TestErrorTaxonomy(t *testing.T) {
	var verr *ValidationError
	assert.True(t, errors.As(error(&ValidationError{Field: "age", Reason: "x"}), &verr))

	dup := &DuplicateError{PatientID: "P1", GeneID: "TP53"}
	assert.Contains(t, dup.Error(), "P1")
	assert.Contains(t, dup.Error(), "TP53")

	nf := &NotFoundError{Kind: KindPatient, ID: "P9"}
	assert.Equal(t, "patient P9 not found", nf.Error())

	inner := errors.New("disk gone")
	su := &StorageUnavailable{Err: inner}
	assert.ErrorIs(t, su, inner)

	ta := &TransactionAborted{Err: inner}
	assert.ErrorIs(t, ta, inner)
}

func TestPatientEqual(t *testing.T) {
	a := Patient{ID: "P1", Age: intPtr(50), Sex: SexFemale, Stage: StageI}
	b := Patient{ID: "P1", Age: intPtr(50), Sex: SexFemale, Stage: StageI}
	assert.True(t, a.Equal(b))

	b.Age = intPtr(51)
	assert.False(t, a.Equal(b))

	b.Age = nil
	assert.False(t, a.Equal(b))

	a.Age = nil
	assert.True(t, a.Equal(b))
}
