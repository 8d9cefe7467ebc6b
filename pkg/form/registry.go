package form

import "log"

// Registry is the session's snapshot of form field definitions.
// Field order is the declaration order supplied by the caller.
type Registry []FormField

// Lookup returns the field with the given id.
func (r Registry) Lookup(fieldID string) (FormField, bool) {
	for _, f := range r {
		if f.FieldID == fieldID {
			return f, true
		}
	}
	return FormField{}, false
}

// Has reports whether the registry contains the given field id.
func (r Registry) Has(fieldID string) bool {
	_, ok := r.Lookup(fieldID)
	return ok
}

// Clone returns a deep copy of the registry.
func (r Registry) Clone() Registry {
	if r == nil {
		return nil
	}
	out := make(Registry, len(r))
	for i, f := range r {
		f.Options = append([]string(nil), f.Options...)
		out[i] = f
	}
	return out
}

// ApplyValues folds resolved values back into the registry snapshot so
// callers always see the current value on each field definition.
func (r Registry) ApplyValues(filled []FilledField) {
	for _, ff := range filled {
		for i := range r {
			if r[i].FieldID == ff.FieldID {
				r[i].Value = ff.Value
				break
			}
		}
	}
}

// Partition is the current split of registry identities into filled and
// missing sets. A field id appears in at most one of the two.
type Partition struct {
	Filled  []FilledField
	Missing []MissingField
}

// Merge folds one turn's extraction output into a prior partition.
// Extraction output wins over prior state per field id. Entries referencing
// ids absent from the registry are dropped; the registry is the source of
// truth for valid identities. The returned partition always satisfies the
// mutual-exclusion invariant.
func (p Partition) Merge(reg Registry, filled []FilledField, missing []MissingField) Partition {
	out := Partition{
		Filled:  append([]FilledField(nil), p.Filled...),
		Missing: append([]MissingField(nil), p.Missing...),
	}

	// Missing entries first so that a field reported in both sets ends up
	// filled, which is what the non-empty value implies.
	for _, mf := range missing {
		if !reg.Has(mf.FieldID) {
			log.Printf("[form] dropping unknown missing field %q", mf.FieldID)
			continue
		}
		out.Filled = removeFilled(out.Filled, mf.FieldID)
		out.Missing = upsertMissing(out.Missing, mf)
	}

	for _, ff := range filled {
		if !reg.Has(ff.FieldID) {
			log.Printf("[form] dropping unknown filled field %q", ff.FieldID)
			continue
		}
		out.Missing = removeMissing(out.Missing, ff.FieldID)
		out.Filled = upsertFilled(out.Filled, ff)
	}

	return out
}

// Fill moves one field from the missing set to the filled set.
func (p Partition) Fill(fieldID, value string) Partition {
	return Partition{
		Filled:  upsertFilled(append([]FilledField(nil), p.Filled...), FilledField{FieldID: fieldID, Value: value}),
		Missing: removeMissing(append([]MissingField(nil), p.Missing...), fieldID),
	}
}

func upsertFilled(filled []FilledField, ff FilledField) []FilledField {
	for i := range filled {
		if filled[i].FieldID == ff.FieldID {
			filled[i] = ff
			return filled
		}
	}
	return append(filled, ff)
}

func removeFilled(filled []FilledField, fieldID string) []FilledField {
	out := filled[:0]
	for _, f := range filled {
		if f.FieldID != fieldID {
			out = append(out, f)
		}
	}
	return out
}

func upsertMissing(missing []MissingField, mf MissingField) []MissingField {
	for i := range missing {
		if missing[i].FieldID == mf.FieldID {
			missing[i] = mf
			return missing
		}
	}
	return append(missing, mf)
}

func removeMissing(missing []MissingField, fieldID string) []MissingField {
	out := missing[:0]
	for _, m := range missing {
		if m.FieldID != fieldID {
			out = append(out, m)
		}
	}
	return out
}
