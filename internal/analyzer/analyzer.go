// Package analyzer computes, for every Mapping, the minimal set of columns
// its staging table needs: the union of fields the mapping's own template/
// reference/join parts consume, plus whatever fields other mappings' joins
// demand of it.
package analyzer

import (
	"sort"

	"github.com/RubenCid35/rossete"
)

// MappingFields is one mapping's required staging columns, in two parallel
// views: Raw holds the field/reference name as it appears in the mapping
// (used to evaluate a row during ingestion), Columns holds the namespaced
// staging-table column name at the same index (used to create/populate the
// table). For CSV/TSV sources Raw[i] == Columns[i]; for JSON/XML sources
// Columns[i] is "<iterator>||<Raw[i]>".
type MappingFields struct {
	Raw     []string
	Columns []string
}

// Analyze walks every Mapping twice: first to collect each mapping's own
// field references (subject template, every object reference/template,
// every join's child column), then to propagate each join's demands onto
// the referenced parent mapping (the join's parent column, plus every
// field the parent's own subject template needs).
func Analyze(mappings []rossete.Mapping) (map[string]MappingFields, error) {
	byID := make(map[string]*rossete.Mapping, len(mappings))
	for i := range mappings {
		byID[mappings[i].ID] = &mappings[i]
	}

	required := make(map[string]map[string]bool, len(mappings))
	ensure := func(id string) map[string]bool {
		set, ok := required[id]
		if !ok {
			set = make(map[string]bool)
			required[id] = set
		}
		return set
	}

	for _, m := range mappings {
		set := ensure(m.ID)
		for _, f := range m.SubjectMap.InputFields() {
			set[f] = true
		}
		for _, pom := range m.PredicateObjectMaps {
			om := pom.Object
			if om.Reference != nil {
				set[*om.Reference] = true
			}
			if om.Template != nil {
				for _, f := range om.Template.Fields {
					set[f] = true
				}
			}
			for _, j := range om.Joins {
				set[j.Child] = true
			}
		}
	}

	for _, m := range mappings {
		for _, pom := range m.PredicateObjectMaps {
			om := pom.Object
			if !om.IsJoin() {
				continue
			}
			parent, ok := byID[om.ParentMap]
			if !ok {
				return nil, &rossete.Error{
					Kind:    rossete.KindMappingNotFound,
					Message: "join references unknown parent mapping " + om.ParentMap,
					Source:  m.ID,
				}
			}
			pset := ensure(parent.ID)
			for _, j := range om.Joins {
				pset[j.Parent] = true
			}
			for _, f := range parent.SubjectMap.InputFields() {
				pset[f] = true
			}
		}
	}

	out := make(map[string]MappingFields, len(required))
	for id, set := range required {
		m := byID[id]
		raw := make([]string, 0, len(set))
		for f := range set {
			raw = append(raw, f)
		}
		sort.Strings(raw)
		cols := make([]string, len(raw))
		for i, f := range raw {
			cols[i] = m.FieldKey(f)
		}
		out[id] = MappingFields{Raw: raw, Columns: cols}
	}
	return out, nil
}
