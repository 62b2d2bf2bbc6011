package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genovault/genovault/internal/catalog"
	"github.com/genovault/genovault/internal/record"
)

func testCatalog() *catalog.Catalog {
	return catalog.New("v1", map[string]catalog.Entry{
		"TP53": {
			Sequence:      "ATGGAG",
			Expression:    catalog.ExpressionRange{Min: 1.0, Max: 5.0},
			Oncogene:      true,
			KnownVariants: []string{"G3T"},
		},
		"BRCA1": {
			Expression: catalog.ExpressionRange{Min: 2.0, Max: 9.0},
		},
		"KRAS": {
			Sequence:   "ATGACT",
			Expression: catalog.ExpressionRange{Min: 0.0, Max: 10.0},
		},
	})
}

func TestCompareSequences(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		seq     string
		typ     record.MutationType
		variant string
	}{
		{"identical", "ATGGAG", "ATGGAG", record.MutationNone, ""},
		{"substitution", "ATGGAG", "ATTGAG", record.MutationSubstitution, "G3T"},
		{"substitution at start", "ATG", "TTG", record.MutationSubstitution, "A1T"},
		{"insertion at end", "ATG", "ATGC", record.MutationInsertion, "ins4"},
		{"insertion mid", "ATG", "ACTG", record.MutationInsertion, "ins2"},
		{"deletion at end", "ATGC", "ATG", record.MutationDeletion, "del4"},
		{"deletion mid", "ACTG", "ATG", record.MutationDeletion, "del2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, variant := CompareSequences(tt.ref, tt.seq)
			assert.Equal(t, tt.typ, typ)
			assert.Equal(t, tt.variant, variant)
		})
	}
}

func TestClassify_UnknownGene(t *testing.T) {
	c := New(testCatalog())
	g := record.GeneRecord{ID: "g1", PatientID: "P1", GeneID: "MYC", Expression: 3.0}

	m := c.Classify(g)
	assert.Equal(t, record.MutationNone, m.Type)
	assert.Equal(t, record.ClassUnknown, m.Classification)
	assert.Equal(t, "g1@v1", m.ID)
	assert.Equal(t, "v1", m.CatalogVersion)
	assert.Equal(t, RuleVersion, m.RuleVersion)
}

func TestClassify_SequenceKnownVariant(t *testing.T) {
	c := New(testCatalog())
	g := record.GeneRecord{ID: "g1", PatientID: "P1", GeneID: "TP53", Expression: 3.0, Sequence: "ATTGAG"}

	m := c.Classify(g)
	assert.Equal(t, record.MutationSubstitution, m.Type)
	assert.Equal(t, "G3T", m.Variant)
	assert.Equal(t, record.ClassPathogenic, m.Classification)
}

func TestClassify_SequenceNovelVariantOncogene(t *testing.T) {
	c := New(testCatalog())
	g := record.GeneRecord{ID: "g1", PatientID: "P1", GeneID: "TP53", Expression: 3.0, Sequence: "TTGGAG"}

	m := c.Classify(g)
	assert.Equal(t, record.MutationSubstitution, m.Type)
	assert.Equal(t, "A1T", m.Variant)
	assert.Equal(t, record.ClassLikelyPathogenic, m.Classification)
}

func TestClassify_SequenceNovelVariantNonOncogene(t *testing.T) {
	c := New(testCatalog())
	g := record.GeneRecord{ID: "g1", PatientID: "P1", GeneID: "KRAS", Expression: 3.0, Sequence: "TTGACT"}

	m := c.Classify(g)
	assert.Equal(t, record.MutationSubstitution, m.Type)
	assert.Equal(t, record.ClassBenign, m.Classification)
}

func TestClassify_SequenceIdentical(t *testing.T) {
	c := New(testCatalog())
	g := record.GeneRecord{ID: "g1", PatientID: "P1", GeneID: "TP53", Expression: 99.0, Sequence: "ATGGAG"}

	m := c.Classify(g)
	assert.Equal(t, record.MutationNone, m.Type)
	assert.Equal(t, record.ClassBenign, m.Classification, "sequence evidence wins over deviant expression")
}

func TestClassify_ExpressionOnly(t *testing.T) {
	tests := []struct {
		name       string
		gene       string
		expression float64
		want       record.Classification
	}{
		{"oncogene below range", "TP53", 0.1, record.ClassLikelyPathogenic},
		{"oncogene above range", "TP53", 7.5, record.ClassLikelyPathogenic},
		{"oncogene in range", "TP53", 3.0, record.ClassBenign},
		{"non-oncogene below range", "BRCA1", 0.5, record.ClassBenign},
		{"non-oncogene in range", "BRCA1", 8.2, record.ClassBenign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(testCatalog())
			g := record.GeneRecord{ID: "g1", PatientID: "P1", GeneID: tt.gene, Expression: tt.expression}
			m := c.Classify(g)
			assert.Equal(t, record.MutationNone, m.Type)
			assert.Equal(t, tt.want, m.Classification)
		})
	}
}

func TestClassify_Tolerance(t *testing.T) {
	c := New(testCatalog())
	g := record.GeneRecord{ID: "g1", PatientID: "P1", GeneID: "TP53", Expression: 5.5}

	m := c.Classify(g)
	require.Equal(t, record.ClassLikelyPathogenic, m.Classification)

	// Range width is 4.0; a 0.25 tolerance stretches the band to [0.0, 6.0].
	c.SetTolerance(0.25)
	m = c.Classify(g)
	assert.Equal(t, record.ClassBenign, m.Classification)
}

func TestClassify_Idempotent(t *testing.T) {
	c := New(testCatalog())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.SetNow(func() time.Time { return now })

	g := record.GeneRecord{ID: "g1", PatientID: "P1", GeneID: "TP53", Expression: 3.0, Sequence: "ATTGAG"}
	first := c.Classify(g)
	second := c.Classify(g)
	assert.Equal(t, first, second, "same input and catalog version must reproduce the record exactly")
}
