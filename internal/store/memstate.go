package store

import (
	"fmt"
	"sort"

	"github.com/genovault/genovault/internal/record"
)

// memState holds one consistent copy of the store contents plus the indexes
// the integrity rules need. Transactions mutate a clone and swap it in on
// commit.
type memState struct {
	patients  map[string]record.Patient
	genes     map[string]record.GeneRecord
	mutations map[string]record.MutationRecord

	// geneByKey maps the (patient, gene) composite key to the gene record id.
	geneByKey map[record.GeneKey]string
	// mutationByGene maps a gene record id to its current mutation record id.
	mutationByGene map[string]string
}

func newMemState() memState {
	return memState{
		patients:       make(map[string]record.Patient),
		genes:          make(map[string]record.GeneRecord),
		mutations:      make(map[string]record.MutationRecord),
		geneByKey:      make(map[record.GeneKey]string),
		mutationByGene: make(map[string]string),
	}
}

func (s memState) clone() memState {
	cloned := newMemState()
	for k, v := range s.patients {
		cloned.patients[k] = v
	}
	for k, v := range s.genes {
		cloned.genes[k] = v
	}
	for k, v := range s.mutations {
		cloned.mutations[k] = v
	}
	for k, v := range s.geneByKey {
		cloned.geneByKey[k] = v
	}
	for k, v := range s.mutationByGene {
		cloned.mutationByGene[k] = v
	}
	return cloned
}

// export produces the canonical snapshot: collections ordered by identifier.
func (s memState) export() record.Snapshot {
	snap := record.Snapshot{
		SchemaVersion: record.SchemaVersion,
		Patients:      make([]record.Patient, 0, len(s.patients)),
		GeneRecords:   make([]record.GeneRecord, 0, len(s.genes)),
		Mutations:     make([]record.MutationRecord, 0, len(s.mutations)),
	}
	for _, p := range s.patients {
		snap.Patients = append(snap.Patients, p)
	}
	for _, g := range s.genes {
		snap.GeneRecords = append(snap.GeneRecords, g)
	}
	for _, m := range s.mutations {
		snap.Mutations = append(snap.Mutations, m)
	}
	sort.Slice(snap.Patients, func(i, j int) bool { return snap.Patients[i].ID < snap.Patients[j].ID })
	sort.Slice(snap.GeneRecords, func(i, j int) bool { return snap.GeneRecords[i].ID < snap.GeneRecords[j].ID })
	sort.Slice(snap.Mutations, func(i, j int) bool { return snap.Mutations[i].ID < snap.Mutations[j].ID })
	return snap
}

// importSnapshot rebuilds state from a persisted snapshot, re-checking the
// ownership chain so a hand-edited or corrupted document cannot smuggle in
// orphan records.
func importSnapshot(snap record.Snapshot) (memState, error) {
	s := newMemState()
	for _, p := range snap.Patients {
		if p.ID == "" {
			return memState{}, &record.ConstraintViolation{Msg: "patient with empty id in snapshot"}
		}
		s.patients[p.ID] = p
	}
	for _, g := range snap.GeneRecords {
		if g.ID == "" {
			return memState{}, &record.ConstraintViolation{Msg: "gene record with empty id in snapshot"}
		}
		if _, ok := s.patients[g.PatientID]; !ok {
			return memState{}, &record.ConstraintViolation{Msg: fmt.Sprintf("gene record %s references missing patient %s", g.ID, g.PatientID)}
		}
		if prev, ok := s.geneByKey[g.Key()]; ok {
			return memState{}, &record.ConstraintViolation{Msg: fmt.Sprintf("gene records %s and %s share key %s", prev, g.ID, g.Key())}
		}
		s.genes[g.ID] = g
		s.geneByKey[g.Key()] = g.ID
	}
	for _, m := range snap.Mutations {
		if _, ok := s.genes[m.GeneRecordID]; !ok {
			return memState{}, &record.ConstraintViolation{Msg: fmt.Sprintf("mutation record %s references missing gene record %s", m.ID, m.GeneRecordID)}
		}
		s.mutations[m.ID] = m
		s.mutationByGene[m.GeneRecordID] = m.ID
	}
	return s, nil
}

// memTx implements Tx against a cloned state. dirty counts applied mutations
// so committing a read-only transaction can skip persistence.
type memTx struct {
	state *memState
	idFn  func() string
	dirty int
}

func (t *memTx) PutPatient(p record.Patient) (record.Patient, error) {
	if p.ID == "" {
		return record.Patient{}, &record.ValidationError{Field: "patient_id", Reason: "must not be empty"}
	}
	if p.Sex == "" {
		p.Sex = record.SexUnknown
	}
	if p.Stage == "" {
		p.Stage = record.StageUnknown
	}
	t.state.patients[p.ID] = p
	t.dirty++
	return p, nil
}

func (t *memTx) PutGene(g record.GeneRecord, replace bool) (record.GeneRecord, error) {
	if _, ok := t.state.patients[g.PatientID]; !ok {
		return record.GeneRecord{}, &record.ConstraintViolation{Msg: fmt.Sprintf("gene record for %s references missing patient %s", g.GeneID, g.PatientID)}
	}
	if existingID, ok := t.state.geneByKey[g.Key()]; ok && existingID != g.ID {
		if !replace {
			return record.GeneRecord{}, &record.DuplicateError{PatientID: g.PatientID, GeneID: g.GeneID}
		}
		// Supersede in place: the slot keeps its identity so the derived
		// mutation record id stays stable across replacements.
		g.ID = existingID
	}
	if g.ID == "" {
		g.ID = t.idFn()
	}
	if prev, ok := t.state.genes[g.ID]; ok && prev.Key() != g.Key() {
		delete(t.state.geneByKey, prev.Key())
	}
	t.state.genes[g.ID] = g
	t.state.geneByKey[g.Key()] = g.ID
	t.dirty++
	return g, nil
}

func (t *memTx) PutMutation(m record.MutationRecord) (record.MutationRecord, error) {
	if _, ok := t.state.genes[m.GeneRecordID]; !ok {
		return record.MutationRecord{}, &record.ConstraintViolation{Msg: fmt.Sprintf("mutation record references missing gene record %s", m.GeneRecordID)}
	}
	if m.ID == "" {
		return record.MutationRecord{}, &record.ValidationError{Field: "mutation_id", Reason: "must not be empty"}
	}
	// One current mutation record per gene record: a re-derivation under a
	// new catalog version supersedes the old record.
	if prevID, ok := t.state.mutationByGene[m.GeneRecordID]; ok && prevID != m.ID {
		delete(t.state.mutations, prevID)
	}
	t.state.mutations[m.ID] = m
	t.state.mutationByGene[m.GeneRecordID] = m.ID
	t.dirty++
	return m, nil
}

func (t *memTx) DeletePatient(id string) error {
	if _, ok := t.state.patients[id]; !ok {
		return &record.NotFoundError{Kind: record.KindPatient, ID: id}
	}
	for gid, g := range t.state.genes {
		if g.PatientID == id {
			t.removeGene(gid)
		}
	}
	delete(t.state.patients, id)
	t.dirty++
	return nil
}

func (t *memTx) DeleteGene(id string) error {
	if _, ok := t.state.genes[id]; !ok {
		return &record.NotFoundError{Kind: record.KindGene, ID: id}
	}
	t.removeGene(id)
	t.dirty++
	return nil
}

func (t *memTx) removeGene(id string) {
	g := t.state.genes[id]
	if mid, ok := t.state.mutationByGene[id]; ok {
		delete(t.state.mutations, mid)
		delete(t.state.mutationByGene, id)
	}
	delete(t.state.geneByKey, g.Key())
	delete(t.state.genes, id)
}

func (t *memTx) DeleteMutation(id string) error {
	m, ok := t.state.mutations[id]
	if !ok {
		return &record.NotFoundError{Kind: record.KindMutation, ID: id}
	}
	delete(t.state.mutations, id)
	delete(t.state.mutationByGene, m.GeneRecordID)
	t.dirty++
	return nil
}

func (t *memTx) FindPatient(id string) (record.Patient, bool) {
	p, ok := t.state.patients[id]
	return p, ok
}

func (t *memTx) FindGene(id string) (record.GeneRecord, bool) {
	g, ok := t.state.genes[id]
	return g, ok
}

func (t *memTx) FindGeneByKey(key record.GeneKey) (record.GeneRecord, bool) {
	id, ok := t.state.geneByKey[key]
	if !ok {
		return record.GeneRecord{}, false
	}
	return t.state.genes[id], true
}

func (t *memTx) FindMutation(id string) (record.MutationRecord, bool) {
	m, ok := t.state.mutations[id]
	return m, ok
}

func (t *memTx) ListPatients() []record.Patient {
	return t.state.export().Patients
}

func (t *memTx) ListGenes() []record.GeneRecord {
	return t.state.export().GeneRecords
}

func (t *memTx) ListMutations() []record.MutationRecord {
	return t.state.export().Mutations
}
