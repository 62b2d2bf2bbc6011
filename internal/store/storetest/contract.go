// Package storetest holds the backend contract suite. Every persistence
// backend must pass it unmodified: backend choice is never observable in
// query semantics.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genovault/genovault/internal/record"
	"github.com/genovault/genovault/internal/store"
)

// Factory opens a fresh, empty store for one test.
type Factory func(t *testing.T) store.Store

// Run executes the full contract against the backend the factory produces.
func Run(t *testing.T, open Factory) {
	t.Run("PutGetRoundTrip", func(t *testing.T) { testRoundTrip(t, open(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, open(t)) })
	t.Run("GeneRequiresPatient", func(t *testing.T) { testGeneRequiresPatient(t, open(t)) })
	t.Run("MutationRequiresGene", func(t *testing.T) { testMutationRequiresGene(t, open(t)) })
	t.Run("DuplicateGene", func(t *testing.T) { testDuplicateGene(t, open(t)) })
	t.Run("ReplaceSupersedes", func(t *testing.T) { testReplaceSupersedes(t, open(t)) })
	t.Run("CascadeDeletePatient", func(t *testing.T) { testCascadeDeletePatient(t, open(t)) })
	t.Run("CascadeDeleteGene", func(t *testing.T) { testCascadeDeleteGene(t, open(t)) })
	t.Run("FailedTransactionLeavesStateUntouched", func(t *testing.T) { testRollback(t, open(t)) })
	t.Run("MutationSupersession", func(t *testing.T) { testMutationSupersession(t, open(t)) })
	t.Run("GenesOf", func(t *testing.T) { testGenesOf(t, open(t)) })
	t.Run("QueryOrdering", func(t *testing.T) { testQueryOrdering(t, open(t)) })
}

func seed(t *testing.T, s store.Store) (record.GeneRecord, record.MutationRecord) {
	t.Helper()
	ctx := context.Background()
	var gene record.GeneRecord
	var mut record.MutationRecord
	err := s.RunInTransaction(ctx, func(tx store.Tx) error {
		if _, err := tx.PutPatient(record.Patient{ID: "P1", Sex: record.SexFemale, Stage: record.StageII}); err != nil {
			return err
		}
		var err error
		gene, err = tx.PutGene(record.GeneRecord{PatientID: "P1", GeneID: "TP53", Expression: 0.1}, false)
		if err != nil {
			return err
		}
		mut, err = tx.PutMutation(record.MutationRecord{
			ID:             record.MutationID(gene.ID, "v1"),
			GeneRecordID:   gene.ID,
			Type:           record.MutationNone,
			Classification: record.ClassLikelyPathogenic,
			CatalogVersion: "v1",
			RuleVersion:    "1",
		})
		return err
	})
	require.NoError(t, err)
	return gene, mut
}

func testRoundTrip(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	gene, mut := seed(t, s)

	got, err := s.Get(ctx, record.KindPatient, "P1")
	require.NoError(t, err)
	assert.Equal(t, record.SexFemale, got.(record.Patient).Sex)

	gotGene, err := s.Get(ctx, record.KindGene, gene.ID)
	require.NoError(t, err)
	assert.True(t, gene.Equal(gotGene.(record.GeneRecord)))

	gotMut, err := s.Get(ctx, record.KindMutation, mut.ID)
	require.NoError(t, err)
	assert.True(t, mut.Equal(gotMut.(record.MutationRecord)))
}

func testGetMissing(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	_, err := s.Get(ctx, record.KindPatient, "nope")
	var nf *record.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, record.KindPatient, nf.Kind)

	err = s.Delete(ctx, record.KindGene, "nope")
	require.ErrorAs(t, err, &nf)
}

func testGeneRequiresPatient(t *testing.T, s store.Store) {
	defer s.Close()
	_, err := s.Put(context.Background(), record.GeneRecord{PatientID: "ghost", GeneID: "TP53", Expression: 1}, store.PutOptions{})
	var cv *record.ConstraintViolation
	assert.ErrorAs(t, err, &cv)
}

func testMutationRequiresGene(t *testing.T, s store.Store) {
	defer s.Close()
	_, err := s.Put(context.Background(), record.MutationRecord{ID: "x@v1", GeneRecordID: "ghost"}, store.PutOptions{})
	var cv *record.ConstraintViolation
	assert.ErrorAs(t, err, &cv)
}

func testDuplicateGene(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	seed(t, s)

	_, err := s.Put(ctx, record.GeneRecord{PatientID: "P1", GeneID: "TP53", Expression: 2.0}, store.PutOptions{})
	var dup *record.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "P1", dup.PatientID)
	assert.Equal(t, "TP53", dup.GeneID)
}

func testReplaceSupersedes(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	gene, _ := seed(t, s)

	stored, err := s.Put(ctx, record.GeneRecord{PatientID: "P1", GeneID: "TP53", Expression: 4.2}, store.PutOptions{Replace: true})
	require.NoError(t, err)
	replaced := stored.(record.GeneRecord)
	assert.Equal(t, gene.ID, replaced.ID, "the slot keeps its identity on replace")
	assert.Equal(t, 4.2, replaced.Expression)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.GeneRecords, 1)
}

func testCascadeDeletePatient(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	seed(t, s)

	require.NoError(t, s.Delete(ctx, record.KindPatient, "P1"))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Patients)
	assert.Empty(t, snap.GeneRecords, "no orphan gene records")
	assert.Empty(t, snap.Mutations, "no orphan mutation records")
}

func testCascadeDeleteGene(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	gene, _ := seed(t, s)

	require.NoError(t, s.Delete(ctx, record.KindGene, gene.ID))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Patients, 1, "the owning patient survives")
	assert.Empty(t, snap.GeneRecords)
	assert.Empty(t, snap.Mutations, "dependent mutation record removed")
}

func testRollback(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	seed(t, s)

	before, err := s.Snapshot(ctx)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.RunInTransaction(ctx, func(tx store.Tx) error {
		if _, err := tx.PutPatient(record.Patient{ID: "P2"}); err != nil {
			return err
		}
		if err := tx.DeletePatient("P1"); err != nil {
			return err
		}
		return boom
	})
	var ta *record.TransactionAborted
	require.ErrorAs(t, err, &ta)
	assert.ErrorIs(t, err, boom)

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a failed transaction has no effect")
}

func testMutationSupersession(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	gene, _ := seed(t, s)

	_, err := s.Put(ctx, record.MutationRecord{
		ID:             record.MutationID(gene.ID, "v2"),
		GeneRecordID:   gene.ID,
		Type:           record.MutationNone,
		Classification: record.ClassBenign,
		CatalogVersion: "v2",
		RuleVersion:    "1",
	}, store.PutOptions{})
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Mutations, 1, "old mutation record superseded, not accumulated")
	assert.Equal(t, "v2", snap.Mutations[0].CatalogVersion)
}

func testGenesOf(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	seed(t, s)

	_, err := s.Put(ctx, record.GeneRecord{PatientID: "P1", GeneID: "BRCA1", Expression: 8.2}, store.PutOptions{})
	require.NoError(t, err)

	genes, err := s.GenesOf(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, genes, 2)
	assert.Equal(t, "BRCA1", genes[0].GeneID, "ordered by gene id")
	assert.Equal(t, "TP53", genes[1].GeneID)

	ok, err := store.HasGene(ctx, s, "P1", "TP53")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.HasGene(ctx, s, "P1", "MYC")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testQueryOrdering(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	seed(t, s)
	_, err := s.Put(ctx, record.Patient{ID: "P0"}, store.PutOptions{})
	require.NoError(t, err)

	first, err := s.Query(ctx, nil)
	require.NoError(t, err)
	second, err := s.Query(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second, "query order is reproducible")
	require.True(t, len(first) >= 2)
	assert.Equal(t, "P0", first[0].RecordID())
	assert.Equal(t, "P1", first[1].RecordID())

	patientsOnly, err := s.Query(ctx, func(r store.Record) bool {
		return r.RecordKind() == record.KindPatient
	})
	require.NoError(t, err)
	assert.Len(t, patientsOnly, 2)
}
