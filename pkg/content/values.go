package content

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// asMap normalizes the map shapes produced by YAML and JSON decoders.
func asMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func asList(raw any) ([]any, bool) {
	switch l := raw.(type) {
	case []any:
		return l, true
	case []map[string]any:
		out := make([]any, 0, len(l))
		for _, m := range l {
			out = append(out, m)
		}
		return out, true
	default:
		return nil, false
	}
}

// normalizeValue turns decoder-specific scalars into plain Go values.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case map[any]any:
		m, _ := asMap(n)
		return normalizeValue(m)
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, val := range n {
			out[k] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(n))
		for _, val := range n {
			out = append(out, normalizeValue(val))
		}
		return out
	default:
		return v
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func toStrings(v any) ([]string, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return l, nil
	case string:
		return []string{l}, nil
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected a string, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list of strings, got %T", v)
	}
}

// single returns the only key of a one-entry map.
func single(m map[string]any) (string, any, error) {
	if len(m) != 1 {
		return "", nil, fmt.Errorf("expected exactly one key, got %d", len(m))
	}
	for k, v := range m {
		return k, v, nil
	}
	return "", nil, nil
}

func decodeMap(raw any, out any) error {
	m, ok := asMap(raw)
	if !ok {
		return fmt.Errorf("expected a map, got %T", raw)
	}
	return mapstructure.Decode(m, out)
}
