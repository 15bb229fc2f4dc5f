// Package rossete materializes RDF triples from tabular and semi-structured
// data files by interpreting a corpus of RML mapping documents.
package rossete

import "fmt"

// Kind classifies an Error into one of the families described by the error
// handling design: input, configuration, staging, mapping, materialization,
// concurrency or system failures.
type Kind string

// Recognized error kinds. Names mirror the taxonomy of the original
// implementation so diagnostics stay stable across ports.
const (
	// Input
	KindFileNotFound     Kind = "FileNotFound"
	KindPermissionDenied Kind = "PermissionDenied"
	KindWriteFailed      Kind = "WriteFailed"
	KindInterrupted      Kind = "Interrupted"
	KindParseFailureCSV  Kind = "ParseFailureCSV"
	KindParseFailureJSON Kind = "ParseFailureJSON"
	KindParseFailureXML  Kind = "ParseFailureXML"

	// Config
	KindMissingFilePath   Kind = "MissingFilePath"
	KindIncorrectFieldType Kind = "IncorrectFieldType"
	KindInvalidDataEntry  Kind = "InvalidDataEntry"
	KindIncorrectJSONFile Kind = "IncorrectJsonFile"
	KindIncorrectPath     Kind = "IncorrectPath"

	// Staging
	KindCannotOpen        Kind = "CannotOpen"
	KindNoDataReceived    Kind = "NoDataReceived"
	KindInteractionFailed Kind = "InteractionFailed"
	KindMissingColumn     Kind = "MissingColumn"

	// Mapping
	KindMissingLogicalSource       Kind = "MissingLogicalSource"
	KindMissingSubjectMap          Kind = "MissingSubjectMap"
	KindNoInputFieldURISubject     Kind = "NoInputFieldURISubject"
	KindComponentInIncorrectLocation Kind = "ComponentInIncorrectLocation"
	KindIncorrectMappingFormat     Kind = "IncorrectMappingFormat"
	KindMissingClosingBracket      Kind = "MissingClosingBracket"
	KindMappingNotFound            Kind = "MappingNotFound"

	// Lexical (produced by the Lexer; the parser returns most of them
	// unchanged, without a mapping id, and reports a lexer failure inside a
	// directive or prefixed name as IncorrectMappingFormat or
	// ComponentInIncorrectLocation)
	KindInvalidToken       Kind = "InvalidToken"
	KindUnterminatedLiteral Kind = "UnterminatedLiteral"
	KindUnexpectedEOF      Kind = "UnexpectedEOF"

	// Materialization
	KindFailedToCreateRDF Kind = "FailedToCreateRDF"

	// Concurrency
	KindSendFailed    Kind = "SendFailed"
	KindReceiveFailed Kind = "ReceiveFailed"
	KindLockPoisoned  Kind = "LockPoisoned"

	// System
	KindOutOfMemory  Kind = "OutOfMemory"
	KindMiscellaneous Kind = "Miscellaneous"
)

// Span is a byte-offset range into a named source buffer, used by
// diagnostics that need to point at the offending text.
type Span struct {
	Start, End int
}

// Error is the single error type produced by every stage of the pipeline.
// It carries enough context (kind, source name, optional span, optional
// cause) to render a miette-style pointer into the offending mapping file.
type Error struct {
	Kind    Kind
	Message string
	Source  string // mapping/data file name, empty if not applicable
	Span    *Span
	Cause   error
}

func (e *Error) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Span == nil {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Source)
	}
	return fmt.Sprintf("%s: %s (%s @ %d-%d)", e.Kind, e.Message, e.Source, e.Span.Start, e.Span.End)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target shares this error's Kind, so callers can use
// errors.Is(err, &Error{Kind: KindMissingSubjectMap}) style matching.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func newErrAt(kind Kind, msg, source string, span Span) *Error {
	return &Error{Kind: kind, Message: msg, Source: source, Span: &span}
}

func wrapErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// NewError builds an Error with no source context, for use by internal/*
// packages downstream of the parser (staging, ingestion, materialization).
func NewError(kind Kind, msg string) *Error { return newErr(kind, msg) }

// NewErrorIn builds an Error tagged with the offending file or mapping id,
// for downstream packages that know which source misbehaved but have no
// byte span to point at.
func NewErrorIn(kind Kind, msg, source string) *Error {
	return &Error{Kind: kind, Message: msg, Source: source}
}

// WrapError builds an Error wrapping cause, for downstream packages
// reporting an I/O or driver failure under the pipeline's error taxonomy.
func WrapError(kind Kind, msg string, cause error) *Error { return wrapErr(kind, msg, cause) }
