package core

import (
	"github.com/JonMunkholm/permits/internal/schema"
)

// FlatRecord maps field names to scalar text. It never holds lists or
// nested objects.
type FlatRecord map[string]string

// Clone returns a copy of r.
func (r FlatRecord) Clone() FlatRecord {
	out := make(FlatRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the submission ID injected during flattening.
func (r FlatRecord) ID() string { return r[schema.IDField] }

// Field is one named value of an OrderedRecord.
type Field struct {
	Name  string
	Value string
}

// OrderedRecord is a FlatRecord laid out in a fixed column sequence.
type OrderedRecord []Field

// Values returns the record's values in column order.
func (r OrderedRecord) Values() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = f.Value
	}
	return out
}

// Names returns the record's column names.
func (r OrderedRecord) Names() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = f.Name
	}
	return out
}

// Get returns the value of column name.
func (r OrderedRecord) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Exclusion explains why a submission was left out of an export.
type Exclusion struct {
	SubmissionID string
	Status       string
	Reason       string
}

// Exclusion statuses.
const (
	StatusInvalid      = "Invalid"
	StatusResubmission = "Resubmission"
)
