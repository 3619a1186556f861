package grid

import (
	"encoding/json"
	"sort"
)

// ChangeRecord is the minimal save payload for one row: identity fields,
// carried context fields and only the fields that changed.
type ChangeRecord struct {
	Identity Row
	Context  Row
	Changes  Row
	New      bool // no original row matched the identity
}

// Payload flattens the record into a single row.
func (c ChangeRecord) Payload() Row {
	out := make(Row, len(c.Identity)+len(c.Context)+len(c.Changes))
	for k, v := range c.Context {
		out[k] = v
	}
	for k, v := range c.Changes {
		out[k] = v
	}
	for k, v := range c.Identity {
		out[k] = v
	}
	return out
}

// ChangedFields returns the changed field names, sorted.
func (c ChangeRecord) ChangedFields() []string {
	names := make([]string, 0, len(c.Changes))
	for k := range c.Changes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON encodes the flat payload.
func (c ChangeRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Payload())
}

// BuildChangeSet diffs working against original and returns one record per
// row with at least one dirty comparable field. Rows are matched by identity,
// never by position; unmatched rows are new and are included only when a
// comparable field other than a carry field holds a value. Carry values only
// locate a row, so a new row holding nothing else is not sent. The result
// depends only on its inputs and follows working order. An empty result means
// there is nothing to save.
func BuildChangeSet(original, working []Row, schema Schema) []ChangeRecord {
	index := Index(original, schema)
	ids := schema.IdentityFields()
	carry := schema.CarryFields()

	var out []ChangeRecord
	for _, w := range working {
		o := Match(original, index, w, schema)
		dirty, ok := rowChanges(o, w, schema)
		if !ok {
			continue
		}
		rec := ChangeRecord{
			Identity: pick(w, ids),
			Changes:  pick(w, dirty),
			New:      o == nil,
		}
		for _, name := range carry {
			if _, changed := rec.Changes[name]; changed {
				continue
			}
			if rec.Context == nil {
				rec.Context = make(Row)
			}
			rec.Context[name] = w[name]
		}
		out = append(out, rec)
	}
	return out
}

// Baseline returns the rows that become the original once a save of
// BuildChangeSet(original, working, schema) is confirmed: every working row
// matching an original row, plus the new rows the change set carries. New
// rows left out of it stay out, so they are still new afterwards.
func Baseline(original, working []Row, schema Schema) []Row {
	index := Index(original, schema)
	out := make([]Row, 0, len(working))
	for _, w := range working {
		o := Match(original, index, w, schema)
		if o == nil {
			if _, ok := rowChanges(nil, w, schema); !ok {
				continue
			}
		}
		out = append(out, w)
	}
	return out
}

// rowChanges returns the dirty fields of w and whether w belongs in a change
// set.
func rowChanges(o, w Row, schema Schema) ([]string, bool) {
	dirty := DirtyFields(o, w, schema)
	if len(dirty) == 0 {
		return nil, false
	}
	if o != nil {
		return dirty, true
	}
	for _, name := range dirty {
		if f, _ := schema.Field(name); !f.Carry {
			return dirty, true
		}
	}
	return nil, false
}

// SuspectIdentityEdits returns the positions of working rows whose identity
// matches no original row while the original row at the same position has
// disappeared from the working set. That pattern usually means a key field was
// edited in place rather than a row being added.
func SuspectIdentityEdits(original, working []Row, schema Schema) []int {
	origIdx := Index(original, schema)
	workIdx := Index(working, schema)

	var out []int
	for i, w := range working {
		if _, ok := origIdx[Identity(w, schema)]; ok {
			continue
		}
		if i >= len(original) {
			continue
		}
		if _, still := workIdx[Identity(original[i], schema)]; !still {
			out = append(out, i)
		}
	}
	return out
}

func pick(row Row, names []string) Row {
	out := make(Row, len(names))
	for _, name := range names {
		out[name] = row[name]
	}
	return out
}
