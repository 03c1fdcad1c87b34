package tracewell

import (
	"reflect"
	"strconv"
)

// Decision is returned by a DecisionCallback to explicitly classify one item,
// bypassing automatic structural derivation (§4.4, design note "pass
// decisions explicitly whenever types are statically known").
type Decision struct {
	Outcome Outcome
	Reason  string
	Score   *float64
}

// DecisionCallback classifies item i given its input and (possibly absent,
// nil) output value. Returning nil skips emission for that item.
type DecisionCallback func(index int, input, output interface{}) *Decision

// Identifiable lets a step's item type supply a stable identity without
// reflection or map-key probing.
type Identifiable interface {
	ItemID() string
}

// Scored lets a step's item type supply a score without map-key probing.
type Scored interface {
	Score() float64
}

// asSequence reports whether v is an ordered sequence (slice or array) and
// returns it as a []interface{} for uniform iteration.
func asSequence(v interface{}) ([]interface{}, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	default:
		return nil, false
	}
}

// itemIdentity extracts an item's identity by the first present of
// {Identifiable interface, map field id/itemId/key}, falling back to a
// positional identifier (§4.4).
func itemIdentity(item interface{}, index int) string {
	if item == nil {
		return positionalID(index)
	}
	if id, ok := item.(Identifiable); ok {
		if v := id.ItemID(); v != "" {
			return v
		}
	}
	if m, ok := asStringMap(item); ok {
		for _, key := range []string{"id", "itemId", "key"} {
			if v, ok := m[key]; ok {
				if s, ok := stringify(v); ok {
					return s
				}
			}
		}
	}
	return positionalID(index)
}

func positionalID(index int) string {
	return "item-" + strconv.Itoa(index)
}

// itemScore extracts a numeric score by the first present of {Scored
// interface, map field score/relevanceScore}.
func itemScore(item interface{}) (float64, bool) {
	if item == nil {
		return 0, false
	}
	if s, ok := item.(Scored); ok {
		return s.Score(), true
	}
	if m, ok := asStringMap(item); ok {
		for _, key := range []string{"score", "relevanceScore"} {
			if v, ok := m[key]; ok {
				if f, ok := toFloat(v); ok {
					return f, true
				}
			}
		}
	}
	return 0, false
}

// asStringMap handles both map[string]interface{} and map[string]any-shaped
// values produced by JSON decoding.
func asStringMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func stringify(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case fmtStringer:
		return t.String(), true
	default:
		return "", false
	}
}

type fmtStringer interface {
	String() string
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
