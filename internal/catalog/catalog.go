// Package catalog loads and serves the reference catalog: the per-gene
// expected sequences, expression ranges and known pathogenic variants that
// mutation classification compares against.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExpressionRange is the expected expression interval for a gene.
type ExpressionRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Entry is the reference data for one gene.
type Entry struct {
	// Sequence is the reference nucleotide sequence, empty when only
	// expression data is catalogued for the gene.
	Sequence   string          `yaml:"sequence,omitempty"`
	Expression ExpressionRange `yaml:"expression"`
	// Oncogene marks genes whose deviations are clinically suspect.
	Oncogene bool `yaml:"oncogene,omitempty"`
	// KnownVariants lists pathogenic variants in R<pos>A notation.
	KnownVariants []string `yaml:"known_variants,omitempty"`
}

// HasSequence reports whether a reference sequence is catalogued.
func (e Entry) HasSequence() bool { return e.Sequence != "" }

// IsKnownVariant reports whether the given variant notation is a catalogued
// pathogenic variant for this gene.
func (e Entry) IsKnownVariant(variant string) bool {
	for _, v := range e.KnownVariants {
		if v == variant {
			return true
		}
	}
	return false
}

// Catalog is the process-wide reference data, loaded at startup and treated
// as read-only. Swapping in a catalog with a different version invalidates
// every derived mutation record.
type Catalog struct {
	version string
	genes   map[string]Entry
}

// New constructs a catalog from already-validated entries.
func New(version string, genes map[string]Entry) *Catalog {
	if genes == nil {
		genes = map[string]Entry{}
	}
	return &Catalog{version: version, genes: genes}
}

// Version returns the catalog version string.
func (c *Catalog) Version() string { return c.version }

// Lookup returns the reference entry for a gene.
func (c *Catalog) Lookup(geneID string) (Entry, bool) {
	e, ok := c.genes[geneID]
	return e, ok
}

// Genes returns the catalogued gene identifiers in ascending order.
func (c *Catalog) Genes() []string {
	ids := make([]string, 0, len(c.genes))
	for id := range c.genes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of catalogued genes.
func (c *Catalog) Len() int { return len(c.genes) }

type fileFormat struct {
	Version string           `yaml:"version"`
	Genes   map[string]Entry `yaml:"genes"`
}

// Load reads and validates a catalog YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if strings.TrimSpace(f.Version) == "" {
		return nil, fmt.Errorf("catalog: version must not be empty")
	}
	for id, e := range f.Genes {
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("catalog: empty gene identifier")
		}
		if e.Expression.Min > e.Expression.Max {
			return nil, fmt.Errorf("catalog gene %s: expression min %g exceeds max %g", id, e.Expression.Min, e.Expression.Max)
		}
		seq := strings.ToUpper(strings.TrimSpace(e.Sequence))
		for i := 0; i < len(seq); i++ {
			switch seq[i] {
			case 'A', 'C', 'G', 'T':
			default:
				return nil, fmt.Errorf("catalog gene %s: invalid nucleotide %q at position %d", id, seq[i], i+1)
			}
		}
		e.Sequence = seq
		f.Genes[id] = e
	}
	return New(f.Version, f.Genes), nil
}
