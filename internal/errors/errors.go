// Package errors implements the tagged error taxonomy the query engine
// surfaces to callers (see spec §7). Every engine failure is exactly one
// QueryError; the engine never returns a partial result alongside an error.
package errors

import "fmt"

// Kind tags a QueryError with one of the seven error categories the engine
// recognizes. Callers should switch on Kind, not on message text.
type Kind string

const (
	SchemaMismatch   Kind = "schema_mismatch"
	NotSupported     Kind = "not_supported"
	EmptySequence    Kind = "empty_sequence"
	SumOverflow      Kind = "sum_overflow"
	Cancelled        Kind = "cancelled"
	CapacityExceeded Kind = "capacity_exceeded"
	Internal         Kind = "internal"
)

// QueryError is the engine's single error type. Op names the component and
// operation that failed (e.g. "executor.execute", "zonemap.build").
type QueryError struct {
	Kind    Kind
	Code    string
	Message string
	Op      string
	Cause   error
	Context map[string]any
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Code)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a QueryError with the same Kind and, when
// target's Code is non-empty, the same Code, allowing
// errors.Is(err, &QueryError{Kind: ..., Code: ...}) checks. A target with an
// empty Code matches any error of its Kind.
func (e *QueryError) Is(target error) bool {
	t, ok := target.(*QueryError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

// WithContext attaches a diagnostic key/value pair and returns the receiver
// for chaining.
func (e *QueryError) WithContext(key string, value any) *QueryError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func new(kind Kind, op, code, message string) *QueryError {
	return &QueryError{Kind: kind, Op: op, Code: code, Message: message}
}

// NewSchemaMismatch reports a predicate referencing an unknown column, or a
// predicate whose constant type is incompatible with the resolved column.
func NewSchemaMismatch(op, field string) *QueryError {
	return new(SchemaMismatch, op, "UNKNOWN_COLUMN", fmt.Sprintf("column %q not found or type mismatch", field)).
		WithContext("field", field)
}

// NewNotSupported reports a plan shape outside the engine's scope while in
// strict mode (e.g. an unflattened disjunction).
func NewNotSupported(op, shape string) *QueryError {
	return new(NotSupported, op, "UNSUPPORTED_SHAPE", fmt.Sprintf("plan shape not supported: %s", shape)).
		WithContext("shape", shape)
}

// NewEmptySequence reports first/min/max/avg called against zero selected rows.
func NewEmptySequence(op string) *QueryError {
	return new(EmptySequence, op, "EMPTY_SEQUENCE", "operation requires at least one selected row")
}

// NewSumOverflow reports an integer sum that exceeds the destination width.
func NewSumOverflow(op string, column int) *QueryError {
	return new(SumOverflow, op, "SUM_OVERFLOW", "integer sum overflowed destination type").
		WithContext("column_index", column)
}

// NewCancelled reports a tripped cancellation token.
func NewCancelled(op string) *QueryError {
	return new(Cancelled, op, "CANCELLED", "query execution was cancelled")
}

// NewCapacityExceeded reports a bitmap/buffer allocation failure.
func NewCapacityExceeded(op, detail string) *QueryError {
	return new(CapacityExceeded, op, "CAPACITY_EXCEEDED", detail)
}

// NewInternal reports an invariant violation — a bug, not a user error.
func NewInternal(op, detail string) *QueryError {
	return new(Internal, op, "INTERNAL_INVARIANT", detail)
}

// Wrap attaches an existing error as Cause under the given kind/op/code.
func Wrap(err error, kind Kind, op, code, message string) *QueryError {
	if err == nil {
		return nil
	}
	e := new(kind, op, code, message)
	e.Cause = err
	return e
}

// KindOf extracts the Kind from err, or Internal if err is not a QueryError.
func KindOf(err error) Kind {
	var qe *QueryError
	if ok := asQueryError(err, &qe); ok {
		return qe.Kind
	}
	return Internal
}

func asQueryError(err error, target **QueryError) bool {
	for err != nil {
		if qe, ok := err.(*QueryError); ok {
			*target = qe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
