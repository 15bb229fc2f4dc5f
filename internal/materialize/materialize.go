// Package materialize runs one worker per Mapping: scan its staging table,
// build the subject/predicate/object terms the mapping describes, resolve
// any joins against another mapping's table, and hand each row's finished
// subject block (every predicate-object pair sharing that row's subject)
// to the writer.
package materialize

import (
	"github.com/google/uuid"

	"github.com/RubenCid35/rossete"
	"github.com/RubenCid35/rossete/internal/analyzer"
	"github.com/RubenCid35/rossete/internal/logging"
	"github.com/RubenCid35/rossete/internal/staging"
	"github.com/RubenCid35/rossete/internal/writer"
)

// Emit receives one finished subject block (every predicate-object pair
// produced by one staged row) from a mapping worker.
type Emit func(writer.SubjectBlock) error

// Run materializes every row of m's staging table and calls emit once per
// row with that row's subject block (rows yielding no pair are not
// emitted). fields is the analyzer's per-mapping column plan,
// shared across the whole corpus so join lookups can resolve a parent
// mapping's own required columns. byID indexes every mapping by ID for
// join-parent resolution.
func Run(m rossete.Mapping, byID map[string]rossete.Mapping, fields map[string]analyzer.MappingFields, store *staging.Store, prefixes *rossete.PrefixMap, warn *logging.WarnOnce, emit Emit) error {
	mf := fields[m.ID]
	fieldIndex := make(map[string]int, len(mf.Raw))
	for i, raw := range mf.Raw {
		fieldIndex[raw] = i
	}

	it, err := store.Scan(m.TableName(), mf.Columns)
	if err != nil {
		return rossete.WrapError(rossete.KindFailedToCreateRDF, "scan staging table for "+m.ID, err)
	}
	// Drain the cursor before resolving joins: the store runs every
	// statement over one connection, which an open cursor keeps busy.
	var rows []staging.Row
	for {
		row, ok, err := it.Next()
		if err != nil {
			it.Close()
			return rossete.WrapError(rossete.KindFailedToCreateRDF, "read staged row for "+m.ID, err)
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	it.Close()

	for _, row := range rows {
		rowVal := make(map[string]string, len(mf.Raw))
		for raw, idx := range fieldIndex {
			rowVal[raw] = row.Values[idx]
		}

		subjectVal, ok := renderSubject(m.SubjectMap, rowVal)
		if !ok {
			continue
		}
		subject := writer.IRI(subjectVal)
		block := writer.SubjectBlock{Subject: subject}

		for _, class := range m.SubjectMap.Classes {
			classIRI := expandTerm(class, prefixes, warn, m.ID)
			block.Pairs = append(block.Pairs, writer.PredicateObject{
				Predicate: writer.IRI(rossete.RDFTypeIRI),
				Object:    writer.IRI(classIRI),
			})
		}

		for _, pom := range m.PredicateObjectMaps {
			predicateIRI := expandTerm(pom.Predicate, prefixes, warn, m.ID)

			var object writer.Term
			var built bool
			if pom.Object.IsJoin() {
				object, built, err = resolveJoin(m, pom.Object, byID, rowVal, row.RowOrd, store)
				if err != nil {
					return rossete.WrapError(rossete.KindFailedToCreateRDF, "resolve join for "+m.ID, err)
				}
			} else {
				object, built = buildObject(pom.Object, rowVal, prefixes, warn, m.ID)
			}
			if !built {
				continue
			}

			block.Pairs = append(block.Pairs, writer.PredicateObject{
				Predicate: writer.IRI(predicateIRI),
				Object:    object,
			})
		}

		if len(block.Pairs) == 0 {
			continue
		}
		if err := emit(block); err != nil {
			return rossete.WrapError(rossete.KindSendFailed, "send subject block for "+m.ID, err)
		}
	}
	return nil
}

func renderSubject(sm rossete.SubjectMap, rowVal map[string]string) (string, bool) {
	if sm.Template != nil {
		values := make([]string, len(sm.Template.Fields))
		for i, f := range sm.Template.Fields {
			values[i] = rowVal[f]
		}
		return sm.Template.Render(values)
	}
	if sm.Constant != "" {
		return sm.Constant, true
	}
	return "", false
}

// expandTerm resolves a prefixed predicate/class term against prefixes,
// logging a once-per-mapping warning and falling back to the term's raw
// "prefix:local" text when the prefix is undeclared, per the "diagnostic,
// not fatal" rule.
func expandTerm(t rossete.Term, prefixes *rossete.PrefixMap, warn *logging.WarnOnce, mapID string) string {
	iri, ok := t.Resolve(prefixes)
	if ok {
		return iri
	}
	if warn != nil {
		warn.Warn(mapID+"|"+t.Key(), "undefined prefix on term, using verbatim", "mapping", mapID, "term", t.Key())
	}
	return t.Key()
}

func buildObject(om rossete.ObjectMap, rowVal map[string]string, prefixes *rossete.PrefixMap, warn *logging.WarnOnce, mapID string) (writer.Term, bool) {
	// An anonymous object map (rr:termType rr:BlankNode, no reference,
	// template, or constant) mints a fresh Skolem label per row: the one
	// blank-node shape spec.md's non-goals still require ("blank nodes
	// beyond anonymous object maps ... are not required" implies these
	// are in scope).
	if om.TermType == "BlankNode" && om.Reference == nil && om.Template == nil && om.ConstantString == nil && om.ConstantTerm == nil {
		return writer.Blank(uuid.NewString()), true
	}

	switch {
	case om.Reference != nil:
		v, ok := rowVal[*om.Reference]
		if !ok || v == "" {
			return writer.Term{}, false
		}
		if om.TermType == "IRI" {
			return writer.IRI(v), true
		}
		return writer.Literal(v, datatypeOf(om, prefixes, warn, mapID), ""), true

	case om.Template != nil:
		values := make([]string, len(om.Template.Fields))
		for i, f := range om.Template.Fields {
			values[i] = rowVal[f]
		}
		rendered, ok := om.Template.Render(values)
		if !ok {
			return writer.Term{}, false
		}
		return writer.IRI(rendered), true

	case om.ConstantString != nil:
		return writer.Literal(*om.ConstantString, datatypeOf(om, prefixes, warn, mapID), ""), true

	case om.ConstantTerm != nil:
		return writer.IRI(expandTerm(*om.ConstantTerm, prefixes, warn, mapID)), true

	default:
		return writer.Term{}, false
	}
}

func datatypeOf(om rossete.ObjectMap, prefixes *rossete.PrefixMap, warn *logging.WarnOnce, mapID string) string {
	if om.Datatype == nil {
		return rossete.XSDStringIRI
	}
	return expandTerm(*om.Datatype, prefixes, warn, mapID)
}

func resolveJoin(m rossete.Mapping, om rossete.ObjectMap, byID map[string]rossete.Mapping, rowVal map[string]string, rowOrd int64, store *staging.Store) (writer.Term, bool, error) {
	parent, ok := byID[om.ParentMap]
	if !ok {
		return writer.Term{}, false, rossete.NewErrorIn(rossete.KindMappingNotFound, "join parent "+om.ParentMap+" not found", m.ID)
	}

	parentSelect := make([]string, len(parent.SubjectMap.InputFields()))
	for i, f := range parent.SubjectMap.InputFields() {
		parentSelect[i] = parent.FieldKey(f)
	}
	if parent.SubjectMap.Constant != "" {
		return writer.IRI(parent.SubjectMap.Constant), true, nil
	}

	var result map[string]string
	var found bool
	var err error
	if parent.TableName() == m.TableName() {
		result, found, err = store.LookupByRowOrd(parent.TableName(), rowOrd, parentSelect)
	} else {
		whereCols := make([]string, len(om.Joins))
		whereVals := make([]string, len(om.Joins))
		for i, j := range om.Joins {
			whereCols[i] = parent.FieldKey(j.Parent)
			v, ok := rowVal[j.Child]
			if !ok || v == "" {
				return writer.Term{}, false, nil
			}
			whereVals[i] = v
		}
		result, found, err = store.Lookup(parent.TableName(), whereCols, whereVals, parentSelect)
	}
	if err != nil {
		return writer.Term{}, false, err
	}
	if !found {
		return writer.Term{}, false, nil
	}

	values := make([]string, len(parent.SubjectMap.Template.Fields))
	for i, f := range parent.SubjectMap.Template.Fields {
		values[i] = result[parent.FieldKey(f)]
	}
	rendered, ok := parent.SubjectMap.Template.Render(values)
	if !ok {
		return writer.Term{}, false, nil
	}
	return writer.IRI(rendered), true, nil
}
