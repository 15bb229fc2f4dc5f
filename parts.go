package rossete

import "strings"

// Term is either a prefixed name (Prefix + Local) or a bare IRI (Prefix
// empty, Local holds the full IRI already). It defers prefix expansion to
// materialization time so a single parse can be reused even if callers want
// to inspect unresolved terms.
type Term struct {
	Prefix string
	Local  string
}

// IsZero reports whether the Term was never populated.
func (t Term) IsZero() bool { return t.Prefix == "" && t.Local == "" }

// Resolve expands a prefixed Term against pm. A bare IRI (Prefix=="") always
// resolves to itself. ok is false only when Prefix is non-empty and unknown
// to pm.
func (t Term) Resolve(pm *PrefixMap) (iri string, ok bool) {
	if t.Prefix == "" {
		return t.Local, true
	}
	return pm.Expand(t.Prefix, t.Local)
}

// Key renders the Term the way the parser's semantic projection compares
// recognized RML/R2RML predicates, e.g. "rr:template" or the special "a".
func (t Term) Key() string {
	if t.Prefix == "" {
		return t.Local
	}
	return t.Prefix + ":" + t.Local
}

// RDFTypeIRI is the rdf:type predicate IRI used for declared subject classes.
const RDFTypeIRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// XSDStringIRI is the implicit datatype of a constant or reference object
// that declares no explicit rr:datatype.
const XSDStringIRI = "http://www.w3.org/2001/XMLSchema#string"

// Template is a compiled IRI pattern: the literal placeholders have been cut
// out of Pattern and collected, in order, into Fields. Rendering substitutes
// positionally.
type Template struct {
	Pattern string   // e.g. "http://x/{}/{}"
	Fields  []string // e.g. ["a", "b"]
}

// CompileTemplate parses a raw template string such as "http://x/{a}/{b}"
// into its Pattern/Fields form.
func CompileTemplate(raw string) Template {
	var pattern strings.Builder
	var fields []string
	i := 0
	for i < len(raw) {
		c := raw[i]
		if c == '{' {
			end := strings.IndexByte(raw[i:], '}')
			if end < 0 {
				// unterminated placeholder: treat rest as literal text
				pattern.WriteString(raw[i:])
				break
			}
			field := raw[i+1 : i+end]
			fields = append(fields, field)
			pattern.WriteString("{}")
			i += end + 1
			continue
		}
		pattern.WriteByte(c)
		i++
	}
	return Template{Pattern: pattern.String(), Fields: fields}
}

// Render substitutes values positionally into the compiled pattern. ok is
// false if any required field value is empty, per the "if any required
// input field is empty, the triple is skipped" rule.
func (t Template) Render(values []string) (string, bool) {
	if len(values) != len(t.Fields) {
		return "", false
	}
	var out strings.Builder
	vi := 0
	for i := 0; i < len(t.Pattern); i++ {
		if i+1 < len(t.Pattern) && t.Pattern[i] == '{' && t.Pattern[i+1] == '}' {
			if vi >= len(values) || values[vi] == "" {
				return "", false
			}
			out.WriteString(values[vi])
			vi++
			i++
			continue
		}
		out.WriteByte(t.Pattern[i])
	}
	return out.String(), true
}

// JoinCondition links a child column in this mapping's table to a parent
// column in another mapping's table.
type JoinCondition struct {
	Child  string
	Parent string
}

// LogicalSource names the (path, format, iterator) tuple a Mapping reads
// from.
type LogicalSource struct {
	Source      string
	Formulation ReferenceFormulation
	Iterator    string
}

// ReferenceFormulation is the declared shape of a logical source.
type ReferenceFormulation int

const (
	FormulationCSV ReferenceFormulation = iota
	FormulationTSV
	FormulationJSON
	FormulationXML
	FormulationOther
)

func (f ReferenceFormulation) String() string {
	switch f {
	case FormulationCSV:
		return "CSV"
	case FormulationTSV:
		return "TSV"
	case FormulationJSON:
		return "JSON"
	case FormulationXML:
		return "XML"
	default:
		return "OTHER"
	}
}

// ParseFormulation maps a ql:<Formulation> term's local name onto a
// ReferenceFormulation, defaulting to FormulationOther for anything
// unrecognized.
func ParseFormulation(local string) ReferenceFormulation {
	switch strings.ToUpper(local) {
	case "CSV":
		return FormulationCSV
	case "TSV":
		return FormulationTSV
	case "JSON":
		return FormulationJSON
	case "XML":
		return FormulationXML
	default:
		return FormulationOther
	}
}

// SubjectMap produces the subject term of every triple a Mapping emits, plus
// its rdf:type declarations.
type SubjectMap struct {
	Template *Template
	Constant string // alternative to Template: a literal IRI, already resolved
	Classes  []Term
	GraphMap *GraphMap
	TermType string // "IRI" (default) or "Literal"
}

// InputFields returns the template fields this subject map consumes, empty
// for a constant subject.
func (s SubjectMap) InputFields() []string {
	if s.Template == nil {
		return nil
	}
	return s.Template.Fields
}

// GraphMap is parsed but never consulted by the writer: output always lands
// in the default graph (spec's open question #3).
type GraphMap struct {
	Constant string
}

// ObjectMap composes one or more parts into the object side of a
// predicate-object pair. At most one of Reference/Template/ConstantString/
// ConstantTerm/ParentMap is meaningful per instance; ParentMap marks a join.
type ObjectMap struct {
	Reference      *string
	Template       *Template
	ConstantString *string
	ConstantTerm   *Term
	Datatype       *Term
	TermType       string // "Literal" or "IRI"
	ParentMap      string // non-empty marks this as a join object
	Joins          []JoinCondition
}

// IsJoin reports whether this object map resolves via another mapping's
// staging table rather than directly from the owning row.
func (o ObjectMap) IsJoin() bool { return o.ParentMap != "" }

// PredicateObjectMap yields one (predicate, object) pair per staged row.
type PredicateObjectMap struct {
	Predicate Term
	Object    ObjectMap
}

// Mapping is a single RML triples map: one logical source, one subject map,
// zero or more predicate-object maps.
type Mapping struct {
	ID                  string
	LogicalSource       LogicalSource
	SubjectMap          SubjectMap
	PredicateObjectMaps []PredicateObjectMap
}

// TableName computes the bit-exact staging table name for this mapping's
// logical source, per the naming convention other components rely on to
// build SQL.
func (m Mapping) TableName() string {
	stem := fileStem(m.LogicalSource.Source)
	switch m.LogicalSource.Formulation {
	case FormulationJSON, FormulationXML:
		return "db-" + stem + "-" + m.LogicalSource.Formulation.String() + "-" + m.LogicalSource.Iterator
	default:
		return "db-" + stem + "-" + m.LogicalSource.Formulation.String()
	}
}

func fileStem(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

// FieldKey namespaces a field reference by the logical source's iterator
// for JSON/XML sources, so disjoint iterators over one file get disjoint
// staging columns. Tabular formats use the bare field name.
func (m Mapping) FieldKey(field string) string {
	switch m.LogicalSource.Formulation {
	case FormulationJSON, FormulationXML:
		return m.LogicalSource.Iterator + "||" + field
	default:
		return field
	}
}
