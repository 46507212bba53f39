package gather

import (
	"encoding/binary"
	"math"
	"strconv"
	"unicode/utf8"
)

// cellResult holds one converted cell before it is packed into a Column.
type cellResult struct {
	valid     bool
	converted bool
	collided  bool
	scalar    []byte // fixed-width, len == ft.Width()
	varBytes  []byte // variable-length payload, when ft.Variable()
}

func zeroScalar(ft FieldType) []byte {
	return make([]byte, ft.Width())
}

// convertCell applies the fixed conversion table of spec §4.3 to one
// extracted value against one target FieldType.
func convertCell(v Value, ft FieldType) cellResult {
	if v.Kind == Missing {
		if ft.Variable() {
			return cellResult{}
		}
		return cellResult{scalar: zeroScalar(ft)}
	}

	switch ft {
	case Bool:
		return convertToBool(v)
	case I8, I16, I32, I64:
		return convertToSignedInt(v, ft)
	case U8, U16, U32, U64:
		return convertToUnsignedInt(v, ft)
	case F32, F64:
		return convertToFloat(v, ft)
	case Str:
		return convertToStr(v)
	case Bin:
		return convertToBin(v)
	default:
		return cellResult{collided: true, scalar: zeroScalar(ft)}
	}
}

func boolScalar(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

func convertToBool(v Value) cellResult {
	switch v.Kind {
	case KBool:
		return cellResult{valid: true, scalar: boolScalar(v.Bool)}
	case KI64:
		return cellResult{valid: true, converted: true, scalar: boolScalar(v.I64 != 0)}
	case KU64:
		return cellResult{valid: true, converted: true, scalar: boolScalar(v.U64 != 0)}
	case KF64:
		if math.IsNaN(v.F64) {
			return cellResult{collided: true, scalar: zeroScalar(Bool)}
		}
		return cellResult{valid: true, converted: true, scalar: boolScalar(v.F64 != 0)}
	case KStr:
		switch v.Str {
		case "true":
			return cellResult{valid: true, converted: true, scalar: boolScalar(true)}
		case "false":
			return cellResult{valid: true, converted: true, scalar: boolScalar(false)}
		default:
			return cellResult{collided: true, scalar: zeroScalar(Bool)}
		}
	case KBin:
		return cellResult{collided: true, scalar: zeroScalar(Bool)}
	default:
		return cellResult{scalar: zeroScalar(Bool)}
	}
}

func packSigned(ft FieldType, x int64) []byte {
	buf := make([]byte, ft.Width())
	switch ft.Width() {
	case 1:
		buf[0] = byte(int8(x))
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(int16(x)))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(int32(x)))
	case 8:
		binary.LittleEndian.PutUint64(buf, uint64(x))
	}
	return buf
}

func signedRange(ft FieldType) (int64, int64) {
	switch ft {
	case I8:
		return math.MinInt8, math.MaxInt8
	case I16:
		return math.MinInt16, math.MaxInt16
	case I32:
		return math.MinInt32, math.MaxInt32
	default: // I64
		return math.MinInt64, math.MaxInt64
	}
}

func convertToSignedInt(v Value, ft FieldType) cellResult {
	lo, hi := signedRange(ft)
	inRange := func(x int64) bool { return x >= lo && x <= hi }

	switch v.Kind {
	case KBool:
		x := int64(0)
		if v.Bool {
			x = 1
		}
		return cellResult{valid: true, converted: true, scalar: packSigned(ft, x)}
	case KI64:
		if !inRange(v.I64) {
			return cellResult{collided: true, scalar: zeroScalar(ft)}
		}
		return cellResult{valid: true, converted: ft != I64, scalar: packSigned(ft, v.I64)}
	case KU64:
		if v.U64 > uint64(hi) {
			return cellResult{collided: true, scalar: zeroScalar(ft)}
		}
		return cellResult{valid: true, converted: true, scalar: packSigned(ft, int64(v.U64))}
	case KF64:
		if math.IsNaN(v.F64) || math.IsInf(v.F64, 0) {
			return cellResult{collided: true, scalar: zeroScalar(ft)}
		}
		truncated := math.Trunc(v.F64)
		if truncated < float64(lo) || truncated > float64(hi) {
			return cellResult{collided: true, scalar: zeroScalar(ft)}
		}
		return cellResult{valid: true, converted: true, scalar: packSigned(ft, int64(truncated))}
	case KStr:
		x, err := strconv.ParseInt(v.Str, 10, 64)
		if err != nil || !inRange(x) {
			return cellResult{collided: true, scalar: zeroScalar(ft)}
		}
		return cellResult{valid: true, converted: true, scalar: packSigned(ft, x)}
	case KBin:
		return cellResult{collided: true, scalar: zeroScalar(ft)}
	default:
		return cellResult{scalar: zeroScalar(ft)}
	}
}

func packUnsigned(ft FieldType, x uint64) []byte {
	buf := make([]byte, ft.Width())
	switch ft.Width() {
	case 1:
		buf[0] = byte(x)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(x))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(x))
	case 8:
		binary.LittleEndian.PutUint64(buf, x)
	}
	return buf
}

func unsignedMax(ft FieldType) uint64 {
	switch ft {
	case U8:
		return math.MaxUint8
	case U16:
		return math.MaxUint16
	case U32:
		return math.MaxUint32
	default: // U64
		return math.MaxUint64
	}
}

func convertToUnsignedInt(v Value, ft FieldType) cellResult {
	max := unsignedMax(ft)

	switch v.Kind {
	case KBool:
		x := uint64(0)
		if v.Bool {
			x = 1
		}
		return cellResult{valid: true, converted: true, scalar: packUnsigned(ft, x)}
	case KI64:
		if v.I64 < 0 || uint64(v.I64) > max {
			return cellResult{collided: true, scalar: zeroScalar(ft)}
		}
		return cellResult{valid: true, converted: true, scalar: packUnsigned(ft, uint64(v.I64))}
	case KU64:
		if v.U64 > max {
			return cellResult{collided: true, scalar: zeroScalar(ft)}
		}
		return cellResult{valid: true, converted: ft != U64, scalar: packUnsigned(ft, v.U64)}
	case KF64:
		if math.IsNaN(v.F64) || math.IsInf(v.F64, 0) || v.F64 < 0 {
			return cellResult{collided: true, scalar: zeroScalar(ft)}
		}
		truncated := math.Trunc(v.F64)
		if truncated > float64(max) {
			return cellResult{collided: true, scalar: zeroScalar(ft)}
		}
		return cellResult{valid: true, converted: true, scalar: packUnsigned(ft, uint64(truncated))}
	case KStr:
		x, err := strconv.ParseUint(v.Str, 10, 64)
		if err != nil || x > max {
			return cellResult{collided: true, scalar: zeroScalar(ft)}
		}
		return cellResult{valid: true, converted: true, scalar: packUnsigned(ft, x)}
	case KBin:
		return cellResult{collided: true, scalar: zeroScalar(ft)}
	default:
		return cellResult{scalar: zeroScalar(ft)}
	}
}

func packFloat(ft FieldType, x float64) []byte {
	buf := make([]byte, ft.Width())
	if ft == F32 {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(x)))
	} else {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(x))
	}
	return buf
}

func convertToFloat(v Value, ft FieldType) cellResult {
	switch v.Kind {
	case KBool:
		x := 0.0
		if v.Bool {
			x = 1.0
		}
		return cellResult{valid: true, converted: true, scalar: packFloat(ft, x)}
	case KI64:
		x := float64(v.I64)
		exact := int64(x) == v.I64
		if ft == F32 {
			exact = exact && float64(float32(x)) == x
		}
		return cellResult{valid: true, converted: !exact, scalar: packFloat(ft, x)}
	case KU64:
		x := float64(v.U64)
		exact := uint64(x) == v.U64
		if ft == F32 {
			exact = exact && float64(float32(x)) == x
		}
		return cellResult{valid: true, converted: !exact, scalar: packFloat(ft, x)}
	case KF64:
		if ft == F64 {
			return cellResult{valid: true, scalar: packFloat(ft, v.F64)}
		}
		narrowed := float64(float32(v.F64))
		return cellResult{valid: true, converted: narrowed != v.F64, scalar: packFloat(ft, v.F64)}
	case KStr:
		x, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return cellResult{collided: true, scalar: zeroScalar(ft)}
		}
		return cellResult{valid: true, converted: true, scalar: packFloat(ft, x)}
	case KBin:
		return cellResult{collided: true, scalar: zeroScalar(ft)}
	default:
		return cellResult{scalar: zeroScalar(ft)}
	}
}

func convertToStr(v Value) cellResult {
	switch v.Kind {
	case KBool:
		s := "false"
		if v.Bool {
			s = "true"
		}
		return cellResult{valid: true, converted: true, varBytes: []byte(s)}
	case KI64:
		return cellResult{valid: true, converted: true, varBytes: []byte(strconv.FormatInt(v.I64, 10))}
	case KU64:
		return cellResult{valid: true, converted: true, varBytes: []byte(strconv.FormatUint(v.U64, 10))}
	case KF64:
		return cellResult{valid: true, converted: true, varBytes: []byte(strconv.FormatFloat(v.F64, 'g', -1, 64))}
	case KStr:
		return cellResult{valid: true, varBytes: []byte(v.Str)}
	case KBin:
		if utf8.Valid(v.Bin) {
			return cellResult{valid: true, converted: true, varBytes: append([]byte(nil), v.Bin...)}
		}
		return cellResult{collided: true}
	default:
		return cellResult{}
	}
}

func convertToBin(v Value) cellResult {
	switch v.Kind {
	case KBool:
		return cellResult{valid: true, converted: true, varBytes: boolScalar(v.Bool)}
	case KI64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(v.I64))
		return cellResult{valid: true, converted: true, varBytes: buf}
	case KU64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, v.U64)
		return cellResult{valid: true, converted: true, varBytes: buf}
	case KF64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.F64))
		return cellResult{valid: true, converted: true, varBytes: buf}
	case KStr:
		return cellResult{valid: true, converted: true, varBytes: []byte(v.Str)}
	case KBin:
		return cellResult{valid: true, varBytes: append([]byte(nil), v.Bin...)}
	default:
		return cellResult{}
	}
}
