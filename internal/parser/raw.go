package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// rawKind tags the shape of an untyped compose value
type rawKind int

const (
	kindAbsent rawKind = iota
	kindString
	kindNumber
	kindBool
	kindSequence
	kindMapping
	kindOther
)

func (k rawKind) String() string {
	switch k {
	case kindAbsent:
		return "null"
	case kindString:
		return "string"
	case kindNumber:
		return "number"
	case kindBool:
		return "bool"
	case kindSequence:
		return "sequence"
	case kindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// rawValue is the tagged form of a value decoded from YAML or JSON.
// For strings, numbers and bools, text holds the scalar's textual form.
type rawValue struct {
	kind rawKind
	text string
	num  float64
	b    bool
	seq  []any
	obj  map[string]any
}

// classify is the only place that inspects the dynamic type of a raw value
func classify(raw any) rawValue {
	switch v := raw.(type) {
	case nil:
		return rawValue{kind: kindAbsent}
	case string:
		return rawValue{kind: kindString, text: v}
	case bool:
		return rawValue{kind: kindBool, b: v, text: strconv.FormatBool(v)}
	case int:
		return rawValue{kind: kindNumber, num: float64(v), text: strconv.Itoa(v)}
	case int64:
		return rawValue{kind: kindNumber, num: float64(v), text: strconv.FormatInt(v, 10)}
	case int32:
		return rawValue{kind: kindNumber, num: float64(v), text: strconv.FormatInt(int64(v), 10)}
	case uint:
		return rawValue{kind: kindNumber, num: float64(v), text: strconv.FormatUint(uint64(v), 10)}
	case uint64:
		return rawValue{kind: kindNumber, num: float64(v), text: strconv.FormatUint(v, 10)}
	case uint32:
		return rawValue{kind: kindNumber, num: float64(v), text: strconv.FormatUint(uint64(v), 10)}
	case float64:
		return rawValue{kind: kindNumber, num: v, text: strconv.FormatFloat(v, 'f', -1, 64)}
	case float32:
		return rawValue{kind: kindNumber, num: float64(v), text: strconv.FormatFloat(float64(v), 'f', -1, 32)}
	case json.Number:
		f, _ := v.Float64()
		return rawValue{kind: kindNumber, num: f, text: v.String()}
	case []any:
		return rawValue{kind: kindSequence, seq: v}
	case []string:
		seq := make([]any, len(v))
		for i, s := range v {
			seq[i] = s
		}
		return rawValue{kind: kindSequence, seq: seq}
	case map[string]any:
		return rawValue{kind: kindMapping, obj: v}
	case map[string]string:
		obj := make(map[string]any, len(v))
		for k, s := range v {
			obj[k] = s
		}
		return rawValue{kind: kindMapping, obj: obj}
	case map[any]any:
		obj := make(map[string]any, len(v))
		for k, val := range v {
			obj[fmt.Sprint(k)] = val
		}
		return rawValue{kind: kindMapping, obj: obj}
	default:
		return rawValue{kind: kindOther, text: fmt.Sprint(v)}
	}
}

// scalar reports whether the value is a string, number or bool
func (v rawValue) scalar() bool {
	return v.kind == kindString || v.kind == kindNumber || v.kind == kindBool
}

// integer returns the value as an int when it is a whole number or a numeric string
func (v rawValue) integer() (int, bool) {
	switch v.kind {
	case kindNumber:
		if v.num != float64(int(v.num)) {
			return 0, false
		}
		return int(v.num), true
	case kindString:
		i, err := strconv.Atoi(strings.TrimSpace(v.text))
		return i, err == nil
	}
	return 0, false
}

// boolean returns the value as a bool, accepting "true"/"false" strings
func (v rawValue) boolean() (bool, bool) {
	switch v.kind {
	case kindBool:
		return v.b, true
	case kindString:
		b, err := strconv.ParseBool(strings.TrimSpace(v.text))
		return b, err == nil
	}
	return false, false
}

// stringify renders a scalar as a string; null becomes ""
func stringify(raw any) string {
	v := classify(raw)
	if v.kind == kindAbsent {
		return ""
	}
	return v.text
}

// sortedKeys returns the keys of a mapping in sorted order so that
// notices are emitted deterministically
func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
