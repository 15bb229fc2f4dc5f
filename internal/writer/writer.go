// Package writer serializes materialized subject blocks to N-Triples or
// Turtle, adapting the Triple.String formatting idiom of the project's
// original Turtle reader (then only used to print parsed statements back
// out) into a write path: the materializer builds one SubjectBlock per
// staged row and this package renders it, flat per pair for N-Triples or
// grouped under a shared subject for Turtle.
package writer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/RubenCid35/rossete"
)

// TermKind distinguishes how a Term renders.
type TermKind int

const (
	KindIRI TermKind = iota
	KindLiteral
	KindBlank
)

// Term is one position (subject, predicate, or object) of a materialized
// triple. Predicate is always KindIRI; subject is KindIRI or KindBlank;
// object may be any kind.
type Term struct {
	Kind     TermKind
	Value    string // IRI string, literal lexical form, or blank node label
	Datatype string // literal only; defaults to rossete.XSDStringIRI when empty
	Lang     string // literal only; non-empty implies rdf:langString
}

// IRI builds an IRI term.
func IRI(iri string) Term { return Term{Kind: KindIRI, Value: iri} }

// Blank builds an anonymous-node term carrying a Skolem-minted label.
func Blank(label string) Term { return Term{Kind: KindBlank, Value: label} }

// Literal builds a plain or typed literal term. An empty datatype defaults
// to xsd:string at render time, matching Turtle's "no datatype, no language
// tag" rule.
func Literal(value, datatype, lang string) Term {
	return Term{Kind: KindLiteral, Value: value, Datatype: datatype, Lang: lang}
}

// PredicateObject is one (predicate, object) pair sharing the subject of
// the SubjectBlock it belongs to.
type PredicateObject struct {
	Predicate Term
	Object    Term
}

// SubjectBlock groups every predicate-object pair one materialized row
// produces for a single subject: the rdf:type pairs for its declared
// classes plus one pair per predicate-object map, always in the default
// graph (spec's open question #3: graph maps are parsed but never
// consulted here). N-Triples renders one line per pair; Turtle renders
// the whole block sharing the subject, separated by ";" and terminated by
// ".", per spec's "subject stated once per row" rule.
type SubjectBlock struct {
	Subject Term
	Pairs   []PredicateObject
}

// escapeLiteral quotes and escapes s the way a Turtle/N-Triples string
// literal must be written: backslash and double-quote are escaped, and the
// control characters the grammar forbids unescaped inside a short string
// are rewritten to their \n/\r/\t forms. This is the inverse of the
// original reader's unescape pass in literal.go.
func escapeLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func (t Term) nTriples() string {
	switch t.Kind {
	case KindBlank:
		return "_:" + t.Value
	case KindLiteral:
		dt := t.Datatype
		switch {
		case t.Lang != "":
			return escapeLiteral(t.Value) + "@" + t.Lang
		case dt == "" || dt == rossete.XSDStringIRI:
			return escapeLiteral(t.Value) + "^^<" + rossete.XSDStringIRI + ">"
		default:
			return escapeLiteral(t.Value) + "^^<" + dt + ">"
		}
	default:
		return "<" + t.Value + ">"
	}
}

// NTriples renders b as one full "s p o ." line per pair, newline
// terminated, with no shared-subject grouping.
func (b SubjectBlock) NTriples() string {
	var out strings.Builder
	subj := b.Subject.nTriples()
	for _, pair := range b.Pairs {
		out.WriteString(subj)
		out.WriteByte(' ')
		out.WriteString(pair.Predicate.nTriples())
		out.WriteByte(' ')
		out.WriteString(pair.Object.nTriples())
		out.WriteString(" .\n")
	}
	return out.String()
}

// Turtle renders b as a single grouped block: the subject stated once,
// predicate-object pairs separated by " ;\n\t\t", the block terminated by
// " .\n". An empty Pairs slice renders nothing.
func (b SubjectBlock) Turtle() string {
	if len(b.Pairs) == 0 {
		return ""
	}
	var out strings.Builder
	out.WriteString(b.Subject.nTriples())
	for i, pair := range b.Pairs {
		if i == 0 {
			out.WriteByte(' ')
		} else {
			out.WriteString(" ;\n\t\t")
		}
		out.WriteString(pair.Predicate.nTriples())
		out.WriteByte(' ')
		out.WriteString(pair.Object.nTriples())
	}
	out.WriteString(" .\n")
	return out.String()
}

// Sink writes rendered subject blocks into an output file through a
// buffered writer. It has no queue or locking of its own and is not safe
// for concurrent use; the pipeline serializes RenderBlock calls with a
// mutex.
type Sink struct {
	w *bufio.Writer
	f *os.File
}

// OutputFormat selects the textual rendering RenderBlock applies to each
// SubjectBlock.
type OutputFormat int

const (
	NTriples OutputFormat = iota
	Turtle
)

// Open truncates (or creates) path and returns a Sink writing through a
// buffered writer, matching spec's "single writer thread, output is
// truncate-create, a pre-existing file is overwritten with a logged
// warning" contract; the warning itself is the caller's responsibility
// since only the caller holds a logger.
func Open(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("writer: open output %s: %w", path, err)
	}
	return &Sink{w: bufio.NewWriterSize(f, 64*1024), f: f}, nil
}

// RenderBlock writes the subject block b in the given format. Every pair
// in b shares one subject, materialized from a single staged row.
func (s *Sink) RenderBlock(b SubjectBlock, format OutputFormat) error {
	if len(b.Pairs) == 0 {
		return nil
	}
	var out string
	switch format {
	case Turtle:
		out = b.Turtle()
	default:
		out = b.NTriples()
	}
	if _, err := io.WriteString(s.w, out); err != nil {
		return fmt.Errorf("writer: write subject block: %w", err)
	}
	return nil
}

// Close flushes buffered output and closes the underlying file.
func (s *Sink) Close() error {
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return fmt.Errorf("writer: flush output: %w", err)
	}
	return s.f.Close()
}

// Exists reports whether path already exists, used by the pipeline
// controller to decide whether to log the "overwriting existing output"
// warning before calling Open.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
