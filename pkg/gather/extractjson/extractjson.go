// Package extractjson is a reference, example-grade Extractor implementation
// of the contract described in spec §6. It is not a core dependency of
// pkg/gather: the engine only ever depends on the Extractor interface, and
// callers are free to supply any document encoding. This one understands
// flat and dotted-path JSON objects using only encoding/json from the
// standard library.
package extractjson

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/VioletaStepanyan/ukv/pkg/gather"
)

// Extractor resolves a dotted field path ("a.b.c") against a JSON document.
type Extractor struct{}

// New returns a ready-to-use Extractor.
func New() Extractor { return Extractor{} }

// Extract implements gather.Extractor.
func (Extractor) Extract(docBytes []byte, fieldName string) (gather.Value, error) {
	var doc interface{}
	if err := json.Unmarshal(docBytes, &doc); err != nil {
		return gather.Value{}, err
	}

	cur := doc
	for _, seg := range strings.Split(fieldName, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return gather.Value{Kind: gather.Missing}, nil
		}
		v, ok := obj[seg]
		if !ok {
			return gather.Value{Kind: gather.Missing}, nil
		}
		cur = v
	}

	return toValue(cur), nil
}

func toValue(v interface{}) gather.Value {
	switch x := v.(type) {
	case nil:
		return gather.Value{Kind: gather.Missing}
	case bool:
		return gather.Value{Kind: gather.KBool, Bool: x}
	case float64:
		return gather.Value{Kind: gather.KF64, F64: x}
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return gather.Value{Kind: gather.KI64, I64: i}
		}
		f, _ := strconv.ParseFloat(x.String(), 64)
		return gather.Value{Kind: gather.KF64, F64: f}
	case string:
		return gather.Value{Kind: gather.KStr, Str: x}
	default:
		// Nested objects/arrays have no scalar representation; treat as
		// missing rather than collide, since no value was resolved at all.
		return gather.Value{Kind: gather.Missing}
	}
}
