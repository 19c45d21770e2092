package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel kinds for estimation errors. These allow errors.Is from callers.
var (
	ErrInvalidInterval              = errors.New("invalid interval")
	ErrInconsistentSubject          = errors.New("inconsistent subject")
	ErrDegenerateRiskSet            = errors.New("degenerate risk set")
	ErrUnsupportedMethodCombination = errors.New("unsupported method combination")
	ErrInvalidLevel                 = errors.New("invalid confidence level")
	ErrLengthMismatch               = errors.New("length mismatch")
	ErrInvalidEvent                 = errors.New("invalid event indicator")
	ErrEmptyInput                   = errors.New("empty input")
	ErrInvalidReplicates            = errors.New("invalid bootstrap replicate count")
)

// Error carries diagnostic context for a failed estimation step.
type Error struct {
	Op        string  // component that failed, e.g. "eventtable.build"
	Kind      error   // one of the sentinel kinds above
	SubjectID *uint64 // offending subject, when known
	Row       int     // offending input row, -1 when not applicable
	Time      *float64
	Method    string // offending method name or pair
	Detail    string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.SubjectID != nil {
		b.WriteString(" (subject ")
		b.WriteString(strconv.FormatUint(*e.SubjectID, 10))
		b.WriteString(")")
	}
	if e.Row >= 0 {
		fmt.Fprintf(&b, " (row %d)", e.Row)
	}
	if e.Time != nil {
		fmt.Fprintf(&b, " (time %g)", *e.Time)
	}
	if e.Method != "" {
		b.WriteString(" (method ")
		b.WriteString(e.Method)
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap returns the sentinel kind.
func (e *Error) Unwrap() error { return e.Kind }

// NewKind builds an Error for op and kind with no further context.
func NewKind(op string, kind error, detail string) *Error {
	return &Error{Op: op, Kind: kind, Row: -1, Detail: detail}
}

// WithSubject attaches a subject id.
func (e *Error) WithSubject(id uint64) *Error {
	e.SubjectID = &id
	return e
}

// WithRow attaches an input row index.
func (e *Error) WithRow(row int) *Error {
	e.Row = row
	return e
}

// WithTime attaches a time value.
func (e *Error) WithTime(t float64) *Error {
	e.Time = &t
	return e
}

// WithMethod attaches a method name.
func (e *Error) WithMethod(m string) *Error {
	e.Method = m
	return e
}

// codes maps each sentinel kind to a stable snake_case code.
var codes = []struct {
	kind error
	code string
}{
	{ErrInvalidInterval, "invalid_interval"},
	{ErrInconsistentSubject, "inconsistent_subject"},
	{ErrDegenerateRiskSet, "degenerate_risk_set"},
	{ErrUnsupportedMethodCombination, "unsupported_method_combination"},
	{ErrInvalidLevel, "invalid_level"},
	{ErrLengthMismatch, "length_mismatch"},
	{ErrInvalidEvent, "invalid_event"},
	{ErrEmptyInput, "empty_input"},
	{ErrInvalidReplicates, "invalid_replicates"},
}

// Code returns the stable code of the sentinel kind wrapped by err, or ""
// when err is not an estimation error.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.kind) {
			return c.code
		}
	}
	return ""
}
