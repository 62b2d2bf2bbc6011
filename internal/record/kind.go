package record

// RecordID returns the patient identifier.
func (p Patient) RecordID() string { return p.ID }

// RecordKind returns KindPatient.
func (p Patient) RecordKind() Kind { return KindPatient }

// RecordID returns the gene record identifier.
func (g GeneRecord) RecordID() string { return g.ID }

// RecordKind returns KindGene.
func (g GeneRecord) RecordKind() Kind { return KindGene }

// RecordID returns the mutation record identifier.
func (m MutationRecord) RecordID() string { return m.ID }

// RecordKind returns KindMutation.
func (m MutationRecord) RecordKind() Kind { return KindMutation }
