// Package gather implements the columnar extraction engine of spec §4.3:
// given a layout of documents and target fields, it produces one column per
// field — validity/converted/collided bitmaps plus either packed scalars or
// offset/length pairs into a shared tape.
package gather

import (
	"github.com/VioletaStepanyan/ukv/pkg/store"
)

// FieldType is a column's target cell type.
type FieldType int

const (
	Bool FieldType = iota
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	F64
	Bin
	Str
)

// Variable reports whether t's cells are variable-length (tape-backed)
// rather than fixed-width scalars.
func (t FieldType) Variable() bool {
	return t == Bin || t == Str
}

// Width returns the native byte width of a fixed-width type. Calling Width
// on a variable-length type panics; callers must check Variable() first.
func (t FieldType) Width() int {
	switch t {
	case Bool, I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, F64:
		return 8
	default:
		panic("gather: Width called on variable-length FieldType")
	}
}

// Kind is the extractor's source value tag (spec §6 field-extractor
// contract: "kind ∈ {missing, bool, i64, u64, f64, str, bin}").
type Kind int

const (
	Missing Kind = iota
	KBool
	KI64
	KU64
	KF64
	KStr
	KBin
)

// Value is the native payload an Extractor produces for one (doc, field)
// pair.
type Value struct {
	Kind Kind
	Bool bool
	I64  int64
	U64  uint64
	F64  float64
	Str  string
	Bin  []byte
}

// Layout is the input to Gather: N document addresses crossed with M target
// fields, passed as parallel strided sequences (spec §4.3).
type Layout struct {
	Collections []store.CollectionHandle
	Keys        []store.Key
	FieldNames  []string
	FieldTypes  []FieldType
}

func (l Layout) docsCount() int   { return len(l.Keys) }
func (l Layout) fieldsCount() int { return len(l.FieldNames) }
