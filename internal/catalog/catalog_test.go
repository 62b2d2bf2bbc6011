package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
version: "2026-01"
genes:
  TP53:
    sequence: ATGGAGGAG
    expression:
      min: 1.0
      max: 5.0
    oncogene: true
    known_variants: ["G3T"]
  BRCA1:
    expression:
      min: 2.0
      max: 9.0
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	assert.Equal(t, "2026-01", c.Version())
	assert.Equal(t, 2, c.Len())

	tp53, ok := c.Lookup("TP53")
	require.True(t, ok)
	assert.True(t, tp53.HasSequence())
	assert.True(t, tp53.Oncogene)
	assert.True(t, tp53.IsKnownVariant("G3T"))
	assert.False(t, tp53.IsKnownVariant("G3A"))

	brca1, ok := c.Lookup("BRCA1")
	require.True(t, ok)
	assert.False(t, brca1.HasSequence())
	assert.False(t, brca1.Oncogene)

	_, ok = c.Lookup("KRAS")
	assert.False(t, ok)
}

func TestParse_LowerCaseSequenceNormalized(t *testing.T) {
	c, err := Parse([]byte("version: v1\ngenes:\n  KRAS:\n    sequence: atg\n    expression: {min: 0, max: 1}\n"))
	require.NoError(t, err)
	e, ok := c.Lookup("KRAS")
	require.True(t, ok)
	assert.Equal(t, "ATG", e.Sequence)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing version", "genes:\n  TP53:\n    expression: {min: 0, max: 1}\n"},
		{"inverted range", "version: v1\ngenes:\n  TP53:\n    expression: {min: 5, max: 1}\n"},
		{"bad nucleotide", "version: v1\ngenes:\n  TP53:\n    sequence: ATXG\n    expression: {min: 0, max: 1}\n"},
		{"not yaml", ":\n-::"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"BRCA1", "TP53"}, c.Genes())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
