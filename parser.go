package rossete

// objKind classifies the shape of a parsed object node before semantic
// projection assigns it meaning (reference, template, constant, ...).
type objKind int

const (
	objBlank objKind = iota
	objLiteral
	objIRI
	objIdent
	objTerm
)

type objNode struct {
	kind  objKind
	text  string // literal / IRI / ident text
	term  Term   // populated when kind == objTerm
	pairs []pair // populated when kind == objBlank
	span  Span
}

type pair struct {
	predicate Term
	objects   []objNode
	span      Span
}

// Parser turns a token stream from a Lexer into a PrefixMap and a slice of
// Mappings, recognizing the well-known RML/R2RML vocabulary as it walks
// each top-level node's predicate-object pairs.
type Parser struct {
	lex      *Lexer
	source   string
	prefixes *PrefixMap
	Warnings []string
}

// NewParser creates a Parser over buf, a full mapping document.
func NewParser(buf []byte, source string) *Parser {
	return &Parser{lex: NewLexer(buf, source), source: source, prefixes: NewPrefixMap()}
}

func isEOFErr(err error) bool {
	rerr, ok := err.(*Error)
	return ok && rerr.Kind == KindUnexpectedEOF
}

// Parse consumes the whole document and returns the frozen PrefixMap plus
// every mapping declared in it. The first fatal error aborts the whole
// file; diagnostics carry the source name and, where available, a byte
// span.
func (p *Parser) Parse() (*PrefixMap, []Mapping, error) {
	var mappings []Mapping
	seen := make(map[string]bool)

	for {
		tok, err := p.lex.Peek()
		if err != nil {
			if isEOFErr(err) {
				break
			}
			return nil, nil, err
		}

		switch tok.Kind {
		case Prefix:
			if err := p.parsePrefixDirective(); err != nil {
				return nil, nil, err
			}
		case Base:
			if err := p.parseBaseDirective(); err != nil {
				return nil, nil, err
			}
		case Ident:
			p.lex.Next()
			m, err := p.parseMappingBody(tok.Literal, tok.Span)
			if err != nil {
				return nil, nil, err
			}
			if seen[m.ID] {
				return nil, nil, newErrAt(KindIncorrectMappingFormat, "duplicate mapping identifier "+m.ID, p.source, tok.Span)
			}
			seen[m.ID] = true
			mappings = append(mappings, m)
		case Term:
			p.lex.Next()
			colonTok, err := p.lex.Next()
			if err != nil || colonTok.Kind != Colon {
				return nil, nil, newErrAt(KindIncorrectMappingFormat, "expected \":\" after node prefix label", p.source, tok.Span)
			}
			localTok, err := p.lex.Next()
			if err != nil || localTok.Kind != Term {
				return nil, nil, newErrAt(KindIncorrectMappingFormat, "expected local name after \":\"", p.source, tok.Span)
			}
			id := tok.Literal + ":" + localTok.Literal
			m, err := p.parseMappingBody(id, tok.Span)
			if err != nil {
				return nil, nil, err
			}
			if seen[m.ID] {
				return nil, nil, newErrAt(KindIncorrectMappingFormat, "duplicate mapping identifier "+m.ID, p.source, tok.Span)
			}
			seen[m.ID] = true
			mappings = append(mappings, m)
		default:
			return nil, nil, newErrAt(KindIncorrectMappingFormat, "expected a mapping node, \"@prefix\" or \"@base\"", p.source, tok.Span)
		}
	}

	p.prefixes.Freeze()
	return p.prefixes, mappings, nil
}

func (p *Parser) parseMappingBody(id string, span Span) (Mapping, error) {
	pairs, err := p.parsePairs(span, Dot)
	if err != nil {
		return Mapping{}, err
	}
	return p.buildMapping(id, pairs)
}

func (p *Parser) parsePrefixDirective() error {
	p.lex.Next() // @prefix
	labelTok, err := p.lex.Next()
	if err != nil || labelTok.Kind != Term {
		return newErr(KindIncorrectMappingFormat, "expected a label after \"@prefix\"")
	}
	colonTok, err := p.lex.Next()
	if err != nil || colonTok.Kind != Colon {
		return newErrAt(KindIncorrectMappingFormat, "expected \":\" after prefix label", p.source, labelTok.Span)
	}
	uriTok, err := p.lex.Next()
	if err != nil || uriTok.Kind != URI {
		return newErrAt(KindIncorrectMappingFormat, "expected a URI after prefix \":\"", p.source, colonTok.Span)
	}
	if dotTok, err := p.lex.Peek(); err == nil && dotTok.Kind == Dot {
		p.lex.Next()
	} else {
		p.Warnings = append(p.Warnings, "missing terminating \".\" after @prefix "+labelTok.Literal)
	}
	p.prefixes.Set(labelTok.Literal, uriTok.Literal)
	return nil
}

func (p *Parser) parseBaseDirective() error {
	p.lex.Next() // @base
	uriTok, err := p.lex.Next()
	if err != nil || uriTok.Kind != URI {
		return newErr(KindIncorrectMappingFormat, "expected a URI after \"@base\"")
	}
	if dotTok, err := p.lex.Peek(); err == nil && dotTok.Kind == Dot {
		p.lex.Next()
	} else {
		p.Warnings = append(p.Warnings, "missing terminating \".\" after @base")
	}
	p.prefixes.Set("", uriTok.Literal)
	return nil
}

// parsePairs reads "predicate object[, object]* (; predicate object...)*"
// until it consumes a token of kind end ('.' for a top-level node, ']' for
// a blank node). open is the span of the node/bracket opening, used to
// anchor a MissingClosingBracket diagnostic.
func (p *Parser) parsePairs(open Span, end TokenKind) ([]pair, error) {
	var pairs []pair
	for {
		tok, err := p.lex.Peek()
		if err != nil {
			if isEOFErr(err) {
				if end == RBracket {
					return nil, newErrAt(KindMissingClosingBracket, "blank node not closed", p.source, open)
				}
				return nil, newErrAt(KindIncorrectMappingFormat, "mapping statement not terminated with \".\"", p.source, open)
			}
			return nil, err
		}
		if tok.Kind == end {
			p.lex.Next()
			return pairs, nil
		}

		predTerm, predSpan, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}

		var objects []objNode
		for {
			obj, err := p.parseObject()
			if err != nil {
				return nil, err
			}
			objects = append(objects, obj)

			sep, err := p.lex.Next()
			if err != nil {
				if isEOFErr(err) {
					if end == RBracket {
						return nil, newErrAt(KindMissingClosingBracket, "blank node not closed", p.source, open)
					}
					return nil, newErrAt(KindIncorrectMappingFormat, "mapping statement not terminated with \".\"", p.source, open)
				}
				return nil, err
			}
			switch sep.Kind {
			case Comma:
				continue
			case Semicolon:
				pairs = append(pairs, pair{predicate: predTerm, objects: objects, span: predSpan})
				objects = nil
			case end:
				pairs = append(pairs, pair{predicate: predTerm, objects: objects, span: predSpan})
				return pairs, nil
			default:
				if end == RBracket && sep.Kind == Dot {
					return nil, newErrAt(KindMissingClosingBracket, "blank node not closed", p.source, open)
				}
				return nil, newErrAt(KindIncorrectMappingFormat, "illegal triple continuation", p.source, sep.Span)
			}
			if sep.Kind == Semicolon {
				break
			}
		}
	}
}

func (p *Parser) parsePredicate() (Term, Span, error) {
	tok, err := p.lex.Next()
	if err != nil {
		return Term{}, Span{}, err
	}
	switch tok.Kind {
	case A:
		return Term{Local: "a"}, tok.Span, nil
	case URI:
		return Term{Local: tok.Literal}, tok.Span, nil
	case Term:
		colonTok, err := p.lex.Next()
		if err != nil || colonTok.Kind != Colon {
			return Term{}, Span{}, newErrAt(KindComponentInIncorrectLocation, "expected \":\" in predicate", p.source, tok.Span)
		}
		localTok, err := p.lex.Next()
		if err != nil || localTok.Kind != Term {
			return Term{}, Span{}, newErrAt(KindComponentInIncorrectLocation, "expected local name after predicate prefix", p.source, tok.Span)
		}
		return Term{Prefix: tok.Literal, Local: localTok.Literal}, tok.Span, nil
	default:
		return Term{}, Span{}, newErrAt(KindComponentInIncorrectLocation, "expected a predicate term", p.source, tok.Span)
	}
}

func (p *Parser) parseObject() (objNode, error) {
	tok, err := p.lex.Next()
	if err != nil {
		return objNode{}, err
	}
	switch tok.Kind {
	case LBracket:
		pairs, err := p.parsePairs(tok.Span, RBracket)
		if err != nil {
			return objNode{}, err
		}
		return objNode{kind: objBlank, pairs: pairs, span: tok.Span}, nil
	case Literal:
		return objNode{kind: objLiteral, text: tok.Literal, span: tok.Span}, nil
	case URI:
		return objNode{kind: objIRI, text: tok.Literal, span: tok.Span}, nil
	case Ident:
		return objNode{kind: objIdent, text: tok.Literal, span: tok.Span}, nil
	case A:
		return objNode{kind: objTerm, term: Term{Local: "a"}, span: tok.Span}, nil
	case Term:
		colonTok, err := p.lex.Next()
		if err != nil || colonTok.Kind != Colon {
			return objNode{}, newErrAt(KindComponentInIncorrectLocation, "expected \":\" in object term", p.source, tok.Span)
		}
		localTok, err := p.lex.Next()
		if err != nil || localTok.Kind != Term {
			return objNode{}, newErrAt(KindComponentInIncorrectLocation, "expected local name after object prefix", p.source, tok.Span)
		}
		return objNode{kind: objTerm, term: Term{Prefix: tok.Literal, Local: localTok.Literal}, span: tok.Span}, nil
	default:
		return objNode{}, newErrAt(KindIncorrectMappingFormat, "expected an object", p.source, tok.Span)
	}
}

// buildMapping projects a top-level node's pairs onto the Mapping struct,
// recognizing the well-known RML/R2RML predicates and warning on (then
// skipping) anything else.
func (p *Parser) buildMapping(id string, pairs []pair) (Mapping, error) {
	m := Mapping{ID: id}
	var hasLogicalSource, hasSubjectMap bool

	for _, pr := range pairs {
		switch pr.predicate.Key() {
		case "rml:logicalSource":
			if hasLogicalSource {
				return Mapping{}, newErrAt(KindComponentInIncorrectLocation, "duplicate rml:logicalSource", p.source, pr.span)
			}
			ls, err := p.buildLogicalSource(pr)
			if err != nil {
				return Mapping{}, err
			}
			m.LogicalSource = ls
			hasLogicalSource = true
		case "rr:subjectMap":
			if hasSubjectMap {
				return Mapping{}, newErrAt(KindComponentInIncorrectLocation, "duplicate rr:subjectMap", p.source, pr.span)
			}
			sm, err := p.buildSubjectMap(pr)
			if err != nil {
				return Mapping{}, err
			}
			m.SubjectMap = sm
			hasSubjectMap = true
		case "rr:predicateObjectMap":
			for _, obj := range pr.objects {
				pom, err := p.buildPredicateObjectMap(obj)
				if err != nil {
					return Mapping{}, err
				}
				m.PredicateObjectMaps = append(m.PredicateObjectMaps, pom)
			}
		default:
			p.Warnings = append(p.Warnings, "unknown predicate "+pr.predicate.Key()+" on "+id+" skipped")
		}
	}

	if !hasLogicalSource {
		return Mapping{}, newErrAt(KindMissingLogicalSource, "mapping "+id+" has no rml:logicalSource", p.source, Span{})
	}
	if !hasSubjectMap {
		return Mapping{}, newErrAt(KindMissingSubjectMap, "mapping "+id+" has no rr:subjectMap", p.source, Span{})
	}
	return m, nil
}

func (p *Parser) buildLogicalSource(pr pair) (LogicalSource, error) {
	if len(pr.objects) != 1 || pr.objects[0].kind != objBlank {
		return LogicalSource{}, newErrAt(KindMissingLogicalSource, "rml:logicalSource must be a blank node", p.source, pr.span)
	}
	var ls LogicalSource
	for _, inner := range pr.objects[0].pairs {
		if len(inner.objects) == 0 {
			continue
		}
		switch inner.predicate.Key() {
		case "rml:source":
			ls.Source = literalOf(inner.objects[0])
		case "rml:referenceFormulation":
			ls.Formulation = ParseFormulation(termOf(inner.objects[0]).Local)
		case "rml:iterator":
			ls.Iterator = literalOf(inner.objects[0])
		default:
			p.Warnings = append(p.Warnings, "unknown predicate "+inner.predicate.Key()+" in logical source skipped")
		}
	}
	if ls.Source == "" {
		return LogicalSource{}, newErrAt(KindMissingLogicalSource, "rml:logicalSource missing rml:source", p.source, pr.span)
	}
	return ls, nil
}

func (p *Parser) buildSubjectMap(pr pair) (SubjectMap, error) {
	if len(pr.objects) != 1 || pr.objects[0].kind != objBlank {
		return SubjectMap{}, newErrAt(KindMissingSubjectMap, "rr:subjectMap must be a blank node", p.source, pr.span)
	}
	var sm SubjectMap
	for _, inner := range pr.objects[0].pairs {
		if len(inner.objects) == 0 {
			continue
		}
		switch inner.predicate.Key() {
		case "rr:template":
			tmpl := CompileTemplate(literalOf(inner.objects[0]))
			sm.Template = &tmpl
		case "rr:constant":
			sm.Constant = literalOf(inner.objects[0])
		case "rr:class":
			for _, obj := range inner.objects {
				sm.Classes = append(sm.Classes, termOf(obj))
			}
		case "rr:graphMap":
			sm.GraphMap = &GraphMap{}
		case "rr:termType":
			sm.TermType = termOf(inner.objects[0]).Local
		default:
			p.Warnings = append(p.Warnings, "unknown predicate "+inner.predicate.Key()+" in subject map skipped")
		}
	}
	if sm.Template == nil && sm.Constant == "" {
		return SubjectMap{}, newErrAt(KindNoInputFieldURISubject, "subject map has no template or constant", p.source, pr.span)
	}
	return sm, nil
}

func (p *Parser) buildPredicateObjectMap(obj objNode) (PredicateObjectMap, error) {
	if obj.kind != objBlank {
		return PredicateObjectMap{}, newErrAt(KindComponentInIncorrectLocation, "rr:predicateObjectMap entry must be a blank node", p.source, obj.span)
	}
	var pom PredicateObjectMap
	var hasPredicate, hasObjectMap bool
	for _, inner := range obj.pairs {
		if len(inner.objects) == 0 {
			continue
		}
		switch inner.predicate.Key() {
		case "rr:predicate":
			pom.Predicate = termOf(inner.objects[0])
			hasPredicate = true
		case "rr:objectMap":
			om, err := p.buildObjectMap(inner.objects[0])
			if err != nil {
				return PredicateObjectMap{}, err
			}
			pom.Object = om
			hasObjectMap = true
		default:
			p.Warnings = append(p.Warnings, "unknown predicate "+inner.predicate.Key()+" in predicate-object map skipped")
		}
	}
	if !hasPredicate || !hasObjectMap {
		return PredicateObjectMap{}, newErrAt(KindComponentInIncorrectLocation, "predicate-object map missing rr:predicate or rr:objectMap", p.source, obj.span)
	}
	return pom, nil
}

func (p *Parser) buildObjectMap(obj objNode) (ObjectMap, error) {
	if obj.kind != objBlank {
		return ObjectMap{}, newErrAt(KindComponentInIncorrectLocation, "rr:objectMap must be a blank node", p.source, obj.span)
	}
	var om ObjectMap
	for _, inner := range obj.pairs {
		if len(inner.objects) == 0 {
			continue
		}
		switch inner.predicate.Key() {
		case "rml:reference":
			s := literalOf(inner.objects[0])
			om.Reference = &s
		case "rr:template":
			tmpl := CompileTemplate(literalOf(inner.objects[0]))
			om.Template = &tmpl
		case "rr:constant":
			o := inner.objects[0]
			if o.kind == objLiteral {
				s := o.text
				om.ConstantString = &s
			} else {
				t := termOf(o)
				om.ConstantTerm = &t
			}
		case "rr:datatype":
			t := termOf(inner.objects[0])
			om.Datatype = &t
		case "rr:termType":
			om.TermType = termOf(inner.objects[0]).Local
		case "rr:parentTriplesMap":
			om.ParentMap = identOf(inner.objects[0])
		case "rr:joinCondition":
			for _, o := range inner.objects {
				jc, err := p.buildJoinCondition(o)
				if err != nil {
					return ObjectMap{}, err
				}
				om.Joins = append(om.Joins, jc)
			}
		default:
			p.Warnings = append(p.Warnings, "unknown predicate "+inner.predicate.Key()+" in object map skipped")
		}
	}
	return om, nil
}

func (p *Parser) buildJoinCondition(obj objNode) (JoinCondition, error) {
	if obj.kind != objBlank {
		return JoinCondition{}, newErrAt(KindComponentInIncorrectLocation, "rr:joinCondition must be a blank node", p.source, obj.span)
	}
	var jc JoinCondition
	for _, inner := range obj.pairs {
		if len(inner.objects) == 0 {
			continue
		}
		switch inner.predicate.Key() {
		case "rr:child":
			jc.Child = literalOf(inner.objects[0])
		case "rr:parent":
			jc.Parent = literalOf(inner.objects[0])
		}
	}
	if jc.Child == "" || jc.Parent == "" {
		return JoinCondition{}, newErrAt(KindComponentInIncorrectLocation, "rr:joinCondition missing rr:child or rr:parent", p.source, obj.span)
	}
	return jc, nil
}

func literalOf(o objNode) string {
	switch o.kind {
	case objLiteral, objIRI, objIdent:
		return o.text
	case objTerm:
		return o.term.Key()
	default:
		return ""
	}
}

func termOf(o objNode) Term {
	switch o.kind {
	case objTerm:
		return o.term
	case objIdent:
		return Term{Local: o.text}
	case objIRI:
		return Term{Local: o.text}
	case objLiteral:
		return Term{Local: o.text}
	default:
		return Term{}
	}
}

func identOf(o objNode) string {
	switch o.kind {
	case objIdent:
		return o.text
	case objTerm:
		return o.term.Key()
	default:
		return o.text
	}
}
