// Package record defines the genomic record types shared by every other
// component: patients, per-patient gene records, and the mutation records
// derived from them.
package record

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Sex is a patient's recorded sex.
type Sex string

const (
	SexFemale  Sex = "female"
	SexMale    Sex = "male"
	SexOther   Sex = "other"
	SexUnknown Sex = "unknown"
)

// Stage is a clinical cancer stage.
type Stage string

const (
	Stage0       Stage = "0"
	StageI       Stage = "I"
	StageII      Stage = "II"
	StageIII     Stage = "III"
	StageIV      Stage = "IV"
	StageUnknown Stage = "unknown"
)

// MutationType describes how a gene sequence differs from its reference.
type MutationType string

const (
	MutationSubstitution MutationType = "substitution"
	MutationInsertion    MutationType = "insertion"
	MutationDeletion     MutationType = "deletion"
	MutationNone         MutationType = "none"
)

// Classification is the clinical-significance label assigned to a mutation.
type Classification string

const (
	ClassBenign           Classification = "benign"
	ClassLikelyPathogenic Classification = "likely-pathogenic"
	ClassPathogenic       Classification = "pathogenic"
	ClassUnknown          Classification = "unknown"
)

// Kind addresses a record collection in the persistence gateway.
type Kind string

const (
	KindPatient  Kind = "patient"
	KindGene     Kind = "gene"
	KindMutation Kind = "mutation"
)

// MaxPatientAge bounds the accepted patient age.
const MaxPatientAge = 150

// Patient is an intake record. Demographic fields are optional; the set of
// owned gene records is derived from GeneRecord ownership rather than stored
// on the patient.
type Patient struct {
	ID    string `json:"id"`
	Age   *int   `json:"age,omitempty"`
	Sex   Sex    `json:"sex,omitempty"`
	Stage Stage  `json:"stage,omitempty"`
}

// NewPatient validates and constructs a Patient. The zero values for sex and
// stage normalize to "unknown".
func NewPatient(id string, age *int, sex Sex, stage Stage) (*Patient, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Field: "patient_id", Reason: "must not be empty"}
	}
	if age != nil && (*age < 0 || *age > MaxPatientAge) {
		return nil, &ValidationError{Field: "age", Reason: fmt.Sprintf("must be between 0 and %d, got %d", MaxPatientAge, *age)}
	}
	if sex == "" {
		sex = SexUnknown
	}
	if !sex.Valid() {
		return nil, &ValidationError{Field: "sex", Reason: fmt.Sprintf("unrecognized value %q", sex)}
	}
	if stage == "" {
		stage = StageUnknown
	}
	if !stage.Valid() {
		return nil, &ValidationError{Field: "stage", Reason: fmt.Sprintf("unrecognized value %q", stage)}
	}
	return &Patient{ID: id, Age: age, Sex: sex, Stage: stage}, nil
}

// Equal reports structural equality.
func (p Patient) Equal(o Patient) bool {
	if p.ID != o.ID || p.Sex != o.Sex || p.Stage != o.Stage {
		return false
	}
	if (p.Age == nil) != (o.Age == nil) {
		return false
	}
	return p.Age == nil || *p.Age == *o.Age
}

// Valid reports whether s is a recognized sex value.
func (s Sex) Valid() bool {
	switch s {
	case SexFemale, SexMale, SexOther, SexUnknown:
		return true
	}
	return false
}

// Valid reports whether s is a recognized clinical stage.
func (s Stage) Valid() bool {
	switch s {
	case Stage0, StageI, StageII, StageIII, StageIV, StageUnknown:
		return true
	}
	return false
}

// GeneKey is the composite uniqueness key for gene records: one record per
// gene per patient. Comparable, usable as a map key.
type GeneKey struct {
	PatientID string
	GeneID    string
}

func (k GeneKey) String() string {
	return k.PatientID + "/" + k.GeneID
}

// GeneRecord is one gene measurement for one patient. The record belongs to
// exactly one patient; deleting the patient deletes it.
type GeneRecord struct {
	ID         string  `json:"id"`
	PatientID  string  `json:"patientId"`
	GeneID     string  `json:"geneId"`
	Expression float64 `json:"expression"`
	Sequence   string  `json:"sequence,omitempty"`
}

// NewGeneRecord validates and constructs a GeneRecord. The ID is assigned by
// the store on first put when left empty.
func NewGeneRecord(patientID, geneID string, expression float64, sequence string) (*GeneRecord, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, &ValidationError{Field: "patient_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(geneID) == "" {
		return nil, &ValidationError{Field: "gene_id", Reason: "must not be empty"}
	}
	if math.IsNaN(expression) || math.IsInf(expression, 0) {
		return nil, &ValidationError{Field: "expression", Reason: "must be a finite number"}
	}
	sequence = strings.ToUpper(strings.TrimSpace(sequence))
	if err := validateSequence(sequence); err != nil {
		return nil, err
	}
	return &GeneRecord{PatientID: patientID, GeneID: geneID, Expression: expression, Sequence: sequence}, nil
}

// Key returns the composite (patient, gene) uniqueness key.
func (g GeneRecord) Key() GeneKey {
	return GeneKey{PatientID: g.PatientID, GeneID: g.GeneID}
}

// Equal reports structural equality.
func (g GeneRecord) Equal(o GeneRecord) bool {
	return g == o
}

// validateSequence checks the nucleotide alphabet. Empty sequences are
// allowed: expression-only rows carry no sequence.
func validateSequence(seq string) error {
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'A', 'C', 'G', 'T':
		default:
			return &ValidationError{Field: "sequence", Reason: fmt.Sprintf("invalid nucleotide %q at position %d", seq[i], i+1)}
		}
	}
	return nil
}

// MutationRecord is derived from a GeneRecord by the classifier. It is never
// created directly by callers and never edited in place: when the reference
// catalog changes, a new record supersedes the old one.
type MutationRecord struct {
	ID             string         `json:"id"`
	GeneRecordID   string         `json:"geneRecordId"`
	Type           MutationType   `json:"type"`
	Classification Classification `json:"classification"`
	// Variant is the first detected difference in R<pos>A notation, empty
	// when Type is none.
	Variant        string    `json:"variant,omitempty"`
	CatalogVersion string    `json:"catalogVersion"`
	RuleVersion    string    `json:"ruleVersion"`
	DetectedAt     time.Time `json:"detectedAt"`
}

// MutationID derives the deterministic identifier for the mutation record of
// a gene record under a given catalog version. Re-classification under the
// same catalog reproduces the same ID.
func MutationID(geneRecordID, catalogVersion string) string {
	return geneRecordID + "@" + catalogVersion
}

// Equal reports semantic equality. DetectedAt is a bookkeeping timestamp and
// is excluded.
func (m MutationRecord) Equal(o MutationRecord) bool {
	m.DetectedAt = time.Time{}
	o.DetectedAt = time.Time{}
	return m == o
}

// Snapshot is a full copy of a store's state: every collection ordered by
// identifier. It is the payload both backends persist and the unit the query
// engine reads.
type Snapshot struct {
	SchemaVersion int              `json:"schemaVersion"`
	Patients      []Patient        `json:"patients"`
	GeneRecords   []GeneRecord     `json:"geneRecords"`
	Mutations     []MutationRecord `json:"mutationRecords"`
}

// SchemaVersion is the current persisted-snapshot layout version.
const SchemaVersion = 1
