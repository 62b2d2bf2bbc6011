// Package classify derives mutation records from gene records by comparing
// them against the reference catalog.
package classify

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/genovault/genovault/internal/catalog"
	"github.com/genovault/genovault/internal/record"
)

// RuleVersion identifies the detection rule set stamped onto every mutation
// record. Bump when the detection or classification rules change.
const RuleVersion = "1"

// DefaultTolerance widens the expected expression range by this fraction of
// the range width on each side before flagging a value as deviant.
const DefaultTolerance = 0.0

// Classifier derives MutationRecords deterministically: the same gene record
// and catalog version always produce the same record, apart from the
// detection timestamp.
type Classifier struct {
	catalog   *catalog.Catalog
	tolerance float64
	logger    *zap.Logger
	nowFn     func() time.Time
}

// New creates a classifier over the given catalog.
func New(c *catalog.Catalog) *Classifier {
	return &Classifier{
		catalog:   c,
		tolerance: DefaultTolerance,
		logger:    zap.NewNop(),
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// SetTolerance configures the expression tolerance band as a fraction of the
// reference range width.
func (c *Classifier) SetTolerance(tol float64) {
	if tol >= 0 {
		c.tolerance = tol
	}
}

// SetLogger sets the logger for classification diagnostics.
func (c *Classifier) SetLogger(l *zap.Logger) {
	c.logger = l
}

// SetNow overrides the timestamp source. Tests use this to pin DetectedAt.
func (c *Classifier) SetNow(fn func() time.Time) {
	c.nowFn = fn
}

// CatalogVersion returns the version of the catalog in use.
func (c *Classifier) CatalogVersion() string {
	return c.catalog.Version()
}

// Classify derives the mutation record for a gene record. The gene record
// must already carry its store-assigned ID.
//
// Sequence evidence wins over expression evidence when both are available:
// a position-level comparison is more specific than a deviation in measured
// activity.
func (c *Classifier) Classify(g record.GeneRecord) record.MutationRecord {
	m := record.MutationRecord{
		ID:             record.MutationID(g.ID, c.catalog.Version()),
		GeneRecordID:   g.ID,
		Type:           record.MutationNone,
		Classification: record.ClassUnknown,
		CatalogVersion: c.catalog.Version(),
		RuleVersion:    RuleVersion,
		DetectedAt:     c.nowFn(),
	}

	entry, ok := c.catalog.Lookup(g.GeneID)
	if !ok {
		c.logger.Debug("gene not in reference catalog",
			zap.String("gene", g.GeneID),
			zap.String("patient", g.PatientID))
		return m
	}

	if g.Sequence != "" && entry.HasSequence() {
		m.Type, m.Variant = CompareSequences(entry.Sequence, g.Sequence)
		m.Classification = c.classifySequence(entry, m.Type, m.Variant)
		return m
	}

	m.Classification = c.classifyExpression(entry, g.Expression)
	return m
}

// classifySequence assigns clinical significance to a detected sequence
// difference. A variant catalogued as pathogenic is pathogenic; any other
// detected difference is suspect only in known oncogenes.
func (c *Classifier) classifySequence(e catalog.Entry, typ record.MutationType, variant string) record.Classification {
	if typ == record.MutationNone {
		return record.ClassBenign
	}
	if e.IsKnownVariant(variant) {
		return record.ClassPathogenic
	}
	if e.Oncogene {
		return record.ClassLikelyPathogenic
	}
	return record.ClassBenign
}

// classifyExpression flags expression values outside the tolerance band.
func (c *Classifier) classifyExpression(e catalog.Entry, expression float64) record.Classification {
	width := e.Expression.Max - e.Expression.Min
	lo := e.Expression.Min - c.tolerance*width
	hi := e.Expression.Max + c.tolerance*width
	if expression < lo || expression > hi {
		if e.Oncogene {
			return record.ClassLikelyPathogenic
		}
		return record.ClassBenign
	}
	return record.ClassBenign
}

// CompareSequences compares a sequence against its reference position by
// position. Equal lengths with a differing base yield a substitution at the
// first difference; a length mismatch yields an insertion (longer than
// reference) or deletion (shorter), anchored at the first difference.
// Positions are 1-based.
func CompareSequences(ref, seq string) (record.MutationType, string) {
	if ref == seq {
		return record.MutationNone, ""
	}

	// First differing position over the common prefix.
	n := len(ref)
	if len(seq) < n {
		n = len(seq)
	}
	pos := n
	for i := 0; i < n; i++ {
		if ref[i] != seq[i] {
			pos = i
			break
		}
	}

	switch {
	case len(ref) == len(seq):
		return record.MutationSubstitution, fmt.Sprintf("%c%d%c", ref[pos], pos+1, seq[pos])
	case len(seq) > len(ref):
		return record.MutationInsertion, fmt.Sprintf("ins%d", pos+1)
	default:
		return record.MutationDeletion, fmt.Sprintf("del%d", pos+1)
	}
}
