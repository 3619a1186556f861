package grid

// IsDirty reports whether field of working differs from original under the
// normalization for kind. A nil original marks a new row: any non-blank value
// counts as a change. Identity fields are never dirty.
func IsDirty(original, working Row, field string, kind Kind) bool {
	if kind == KindIdentity {
		return false
	}
	if original == nil {
		return Present(working[field])
	}
	if kind == KindNumeric {
		return NormalizeNumeric(original[field]) != NormalizeNumeric(working[field])
	}
	return NormalizeText(original[field]) != NormalizeText(working[field])
}

// DirtyFields returns the comparable fields of working that differ from
// original, in schema order.
func DirtyFields(original, working Row, schema Schema) []string {
	var out []string
	for _, f := range schema.ComparableFields() {
		if IsDirty(original, working, f.Name, f.Kind) {
			out = append(out, f.Name)
		}
	}
	return out
}

// Index maps identity keys to row positions. When identities repeat, the
// first occurrence wins.
func Index(rows []Row, schema Schema) map[string]int {
	idx := make(map[string]int, len(rows))
	for i, row := range rows {
		key := Identity(row, schema)
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}

// Match returns the original counterpart of working, or nil when the identity
// is unknown.
func Match(original []Row, index map[string]int, working Row, schema Schema) Row {
	i, ok := index[Identity(working, schema)]
	if !ok || i >= len(original) {
		return nil
	}
	return original[i]
}
