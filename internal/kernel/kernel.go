// Package kernel evaluates a single predicate against a column chunk,
// producing a selection bitmap contribution (spec §4.2, component C2).
// Kernels are dispatched per (LogicalType, Operator) pair. Once a chunk is
// large enough (spec §4.2's 1024-row threshold) and the column has nulls,
// the selection is first ANDed in bulk with the column's validity buffer;
// the per-type kernels still test validity per row in every case.
package kernel

import (
	"math"
	"strings"

	"github.com/klauspost/cpuid/v2"

	"github.com/arx-os/arxquery/internal/bitmap"
	"github.com/arx-os/arxquery/internal/column"
	arxerrors "github.com/arx-os/arxquery/internal/errors"
)

// bulkNullThreshold is the chunk size from which Eval ANDs the selection
// with the validity buffer in one bulk pass before running the per-type
// kernel (spec §4.2). The kernels' per-row validity checks remain.
const bulkNullThreshold = 1024

// Operator identifies a comparison or membership test a kernel evaluates.
type Operator uint8

const (
	Eq Operator = iota
	Ne
	Lt
	Le
	Gt
	Ge
	In
	IsNull
	IsNotNull
	Contains
	StartsWith
	EndsWith
)

// StringMatch is the literal for a string-typed predicate (equality or the
// contains/starts_with/ends_with string operation family, spec §3):
// Value to compare against, plus the ordinal/case-insensitive flag. A bare
// Go string literal is also accepted as a shorthand for an ordinal
// (case-sensitive) match.
type StringMatch struct {
	Value           string
	CaseInsensitive bool
}

func asStringMatch(lit any) (StringMatch, bool) {
	switch v := lit.(type) {
	case string:
		return StringMatch{Value: v}, true
	case StringMatch:
		return v, true
	default:
		return StringMatch{}, false
	}
}

func isStringOp(op Operator) bool {
	switch op {
	case Eq, Ne, Contains, StartsWith, EndsWith:
		return true
	default:
		return false
	}
}

// stringMatches applies op's test of s against m, case-folding both sides
// first when m.CaseInsensitive is set.
func stringMatches(s string, op Operator, m StringMatch) bool {
	a, b := s, m.Value
	if m.CaseInsensitive {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	switch op {
	case Eq:
		return a == b
	case Ne:
		return a != b
	case Contains:
		return strings.Contains(a, b)
	case StartsWith:
		return strings.HasPrefix(a, b)
	case EndsWith:
		return strings.HasSuffix(a, b)
	default:
		return false
	}
}

// FeatureReport surfaces the CPU features cpuid detected, for diagnostics
// only (this module never branches on it; Go has no portable SIMD
// intrinsics surface in this corpus, so word-at-a-time uint64 arithmetic
// via math/bits is the one evaluation strategy, regardless of what the
// host CPU supports).
type FeatureReport struct {
	AVX2    bool
	AVX512F bool
}

// DetectFeatures reports the current CPU's relevant vector features.
func DetectFeatures() FeatureReport {
	return FeatureReport{
		AVX2:    cpuid.CPU.Supports(cpuid.AVX2),
		AVX512F: cpuid.CPU.Supports(cpuid.AVX512F),
	}
}

// Eval evaluates operator against col over rows [start, end), ANDing the
// result into sel in place. lit is the comparison literal. In is evaluated
// only for integer-family columns stored as int64, with an []int64 or []int
// literal; on Uint64 columns it matches no row, and the float, bool and
// string kernels reject it with an error.
func Eval(sel *bitmap.Bitmap, col *column.Column, op Operator, lit any, start, end int) error {
	switch op {
	case IsNull:
		evalNullTest(sel, col, start, end, false)
		return nil
	case IsNotNull:
		evalNullTest(sel, col, start, end, true)
		return nil
	}

	if col.NullCount > 0 && (end-start) >= bulkNullThreshold {
		sel.AndWithArrowBitmap(col.Validity, start, end)
	}

	switch col.Type {
	case column.Int8, column.Int16, column.Int32, column.Int64,
		column.Decimal64, column.TimestampMs:
		return evalInt64(sel, col, op, lit, start, end)
	case column.Uint8, column.Uint16, column.Uint32:
		return evalInt64(sel, col, op, lit, start, end)
	case column.Uint64:
		return evalUint64(sel, col, op, lit, start, end)
	case column.Float32:
		return evalFloat32(sel, col, op, lit, start, end)
	case column.Float64:
		return evalFloat64(sel, col, op, lit, start, end)
	case column.Bool:
		return evalBool(sel, col, op, lit, start, end)
	case column.String:
		return evalString(sel, col, op, lit, start, end)
	case column.StringDict:
		return evalStringDict(sel, col, op, lit, start, end)
	default:
		return arxerrors.NewNotSupported("kernel.Eval", col.Type.String())
	}
}

func evalNullTest(sel *bitmap.Bitmap, col *column.Column, start, end int, wantValid bool) {
	for i := start; i < end; i++ {
		if !sel.Get(i) {
			continue
		}
		if column.IsValid(col.Validity, i) != wantValid {
			sel.Clear(i)
		}
	}
}

func cmpInt(v, lit int64, op Operator) bool {
	switch op {
	case Eq:
		return v == lit
	case Ne:
		return v != lit
	case Lt:
		return v < lit
	case Le:
		return v <= lit
	case Gt:
		return v > lit
	case Ge:
		return v >= lit
	default:
		return false
	}
}

func evalInt64(sel *bitmap.Bitmap, col *column.Column, op Operator, lit any, start, end int) error {
	if op == In {
		set := toInt64Set(lit)
		for i := start; i < end; i++ {
			if !sel.Get(i) || (col.Validity != nil && !column.IsValid(col.Validity, i)) {
				sel.Clear(i)
				continue
			}
			if _, ok := set[col.I64[i]]; !ok {
				sel.Clear(i)
			}
		}
		return nil
	}
	litVal, ok := asInt64(lit)
	if !ok {
		return arxerrors.NewSchemaMismatch("kernel.evalInt64", "literal")
	}
	for i := start; i < end; i++ {
		if !sel.Get(i) {
			continue
		}
		if col.Validity != nil && !column.IsValid(col.Validity, i) {
			sel.Clear(i)
			continue
		}
		if !cmpInt(col.I64[i], litVal, op) {
			sel.Clear(i)
		}
	}
	return nil
}

func evalUint64(sel *bitmap.Bitmap, col *column.Column, op Operator, lit any, start, end int) error {
	litVal, ok := asUint64(lit)
	if !ok && op != In {
		return arxerrors.NewSchemaMismatch("kernel.evalUint64", "literal")
	}
	for i := start; i < end; i++ {
		if !sel.Get(i) {
			continue
		}
		if col.Validity != nil && !column.IsValid(col.Validity, i) {
			sel.Clear(i)
			continue
		}
		v := col.U64[i]
		var keep bool
		switch op {
		case Eq:
			keep = v == litVal
		case Ne:
			keep = v != litVal
		case Lt:
			keep = v < litVal
		case Le:
			keep = v <= litVal
		case Gt:
			keep = v > litVal
		case Ge:
			keep = v >= litVal
		default:
			keep = false
		}
		if !keep {
			sel.Clear(i)
		}
	}
	return nil
}

// cmpFloat applies NaN-aware comparison semantics: a NaN on either side
// fails every operator, Ne included (spec §4.2's float edge case), rather
// than IEEE-754 propagating through as a silent true/false mismatch.
func cmpFloat(v, lit float64, op Operator) bool {
	if math.IsNaN(v) || math.IsNaN(lit) {
		return false
	}
	switch op {
	case Eq:
		return v == lit
	case Ne:
		return v != lit
	case Lt:
		return v < lit
	case Le:
		return v <= lit
	case Gt:
		return v > lit
	case Ge:
		return v >= lit
	default:
		return false
	}
}

func evalFloat64(sel *bitmap.Bitmap, col *column.Column, op Operator, lit any, start, end int) error {
	litVal, ok := asFloat64(lit)
	if !ok {
		return arxerrors.NewSchemaMismatch("kernel.evalFloat64", "literal")
	}
	for i := start; i < end; i++ {
		if !sel.Get(i) {
			continue
		}
		if col.Validity != nil && !column.IsValid(col.Validity, i) {
			sel.Clear(i)
			continue
		}
		if !cmpFloat(col.F64[i], litVal, op) {
			sel.Clear(i)
		}
	}
	return nil
}

func evalFloat32(sel *bitmap.Bitmap, col *column.Column, op Operator, lit any, start, end int) error {
	litVal, ok := asFloat64(lit)
	if !ok {
		return arxerrors.NewSchemaMismatch("kernel.evalFloat32", "literal")
	}
	for i := start; i < end; i++ {
		if !sel.Get(i) {
			continue
		}
		if col.Validity != nil && !column.IsValid(col.Validity, i) {
			sel.Clear(i)
			continue
		}
		if !cmpFloat(float64(col.F32[i]), litVal, op) {
			sel.Clear(i)
		}
	}
	return nil
}

func evalBool(sel *bitmap.Bitmap, col *column.Column, op Operator, lit any, start, end int) error {
	litVal, ok := lit.(bool)
	if !ok || (op != Eq && op != Ne) {
		return arxerrors.NewNotSupported("kernel.evalBool", "operator")
	}
	for i := start; i < end; i++ {
		if !sel.Get(i) {
			continue
		}
		if col.Validity != nil && !column.IsValid(col.Validity, i) {
			sel.Clear(i)
			continue
		}
		v := column.PackedBool(col.Bits, i)
		keep := v == litVal
		if op == Ne {
			keep = !keep
		}
		if !keep {
			sel.Clear(i)
		}
	}
	return nil
}

func evalString(sel *bitmap.Bitmap, col *column.Column, op Operator, lit any, start, end int) error {
	m, ok := asStringMatch(lit)
	if !ok || !isStringOp(op) {
		return arxerrors.NewNotSupported("kernel.evalString", "operator")
	}
	for i := start; i < end; i++ {
		if !sel.Get(i) {
			continue
		}
		if col.Validity != nil && !column.IsValid(col.Validity, i) {
			sel.Clear(i)
			continue
		}
		if !stringMatches(col.Str[i], op, m) {
			sel.Clear(i)
		}
	}
	return nil
}

// evalStringDict resolves the literal against every distinct dictionary
// value exactly once into a code -> bool table, then the row-level test is
// an indexed lookup for the whole chunk (spec §4.2's dictionary-encoded
// fast path, which applies equally to equality and to the
// contains/starts_with/ends_with string operations).
func evalStringDict(sel *bitmap.Bitmap, col *column.Column, op Operator, lit any, start, end int) error {
	m, ok := asStringMatch(lit)
	if !ok || !isStringOp(op) {
		return arxerrors.NewNotSupported("kernel.evalStringDict", "operator")
	}
	match := make([]bool, len(col.Dict))
	for c, s := range col.Dict {
		match[c] = stringMatches(s, op, m)
	}
	for i := start; i < end; i++ {
		if !sel.Get(i) {
			continue
		}
		if col.Validity != nil && !column.IsValid(col.Validity, i) {
			sel.Clear(i)
			continue
		}
		if !match[col.DictCodes[i]] {
			sel.Clear(i)
		}
	}
	return nil
}

func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	default:
		return 0, false
	}
}

func asUint64(v any) (uint64, bool) {
	switch t := v.(type) {
	case uint64:
		return t, true
	case uint:
		return uint64(t), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	default:
		return 0, false
	}
}

func toInt64Set(lit any) map[int64]struct{} {
	out := map[int64]struct{}{}
	switch vs := lit.(type) {
	case []int64:
		for _, v := range vs {
			out[v] = struct{}{}
		}
	case []int:
		for _, v := range vs {
			out[int64(v)] = struct{}{}
		}
	}
	return out
}
