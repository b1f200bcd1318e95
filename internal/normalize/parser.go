package normalize

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/guttosm/avpulse/internal/domain/models"
)

// UpstreamError is the remote service reporting a textual error where a
// payload was expected. Message carries the upstream text verbatim.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: %s", e.Message)
}

// RawMap is an order-preserving decoded payload fragment. Values are one of:
// string, float64, bool, nil, []any, or a nested *RawMap.
type RawMap struct {
	keys   []string
	values map[string]any
}

// NewRawMap returns an empty raw map.
func NewRawMap() *RawMap {
	return &RawMap{values: make(map[string]any)}
}

// Put appends key→value, keeping first-seen position on duplicates.
func (m *RawMap) Put(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Keys returns the keys in payload order.
func (m *RawMap) Keys() []string { return m.keys }

// Get returns the value stored under key.
func (m *RawMap) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len reports the number of keys.
func (m *RawMap) Len() int { return len(m.keys) }

// DecodeJSON decodes a JSON payload into raw form, walking tokens so that
// object key order survives (the standard map decode would shuffle it, and
// time-series order is part of the contract). Object keys are passed through
// sanitizeKey, mirroring the identifier-safe naming the serialization layer
// imposes.
func DecodeJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	v, err := decodeValue(dec, tok)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

func decodeValue(dec *json.Decoder, tok json.Token) (any, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewRawMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, want string", keyTok)
				}
				valTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				val, err := decodeValue(dec, valTok)
				if err != nil {
					return nil, err
				}
				m.Put(sanitizeKey(key), val)
			}
			// consume closing '}'
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			var arr []any
			for dec.More() {
				elTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				el, err := decodeValue(dec, elTok)
				if err != nil {
					return nil, err
				}
				arr = append(arr, el)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	default:
		// string, float64, bool, nil
		return tok, nil
	}
}

// ParseResponse normalizes a raw decoded payload into a record.
//
// Rules, per the upstream protocol convention:
//   - nil or non-map input: nothing to normalize, returns an empty record.
//   - a single-field map is a wrapper envelope: the parser drills into its
//     only value. A bare string behind the wrapper is the upstream's generic
//     error envelope and fails with UpstreamError carrying the text verbatim;
//     anything structured is parsed in place of the wrapper.
//   - a multi-field map is a real payload: every name is canonicalized and
//     every value normalized. A field whose canonical name is "TimeSeries"
//     is routed through the series builder instead of plain normalization.
func ParseResponse(raw any) (*models.Record, error) {
	m, ok := raw.(*RawMap)
	if !ok || m.Len() == 0 {
		return models.NewRecord(), nil
	}

	if m.Len() == 1 {
		inner, _ := m.Get(m.Keys()[0])
		if s, ok := inner.(string); ok {
			return nil, &UpstreamError{Message: s}
		}
		return ParseResponse(inner)
	}

	rec := models.NewRecord()
	for _, key := range m.Keys() {
		raw, _ := m.Get(key)
		name := NormalizeName(sanitizeKey(key))
		if strings.EqualFold(name, "TimeSeries") {
			sub, ok := raw.(*RawMap)
			if !ok {
				return nil, fmt.Errorf("field %q: time series value is %T, want object", key, raw)
			}
			series, err := BuildTimeSeries(sub)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			rec.Set(name, models.SeriesValue(series))
			continue
		}
		v, err := normalizeRaw(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		rec.Set(name, v)
	}
	return rec, nil
}

// normalizeRaw applies value normalization to one raw payload value,
// recursing into nested maps through the full parser.
func normalizeRaw(raw any) (models.Value, error) {
	switch v := raw.(type) {
	case string:
		return NormalizeValue(v), nil
	case float64:
		return models.NumberValue(v), nil
	case bool:
		return models.TextValue(fmt.Sprintf("%t", v)), nil
	case nil:
		return models.TextValue(""), nil
	case *RawMap:
		rec, err := ParseResponse(v)
		if err != nil {
			return models.Value{}, err
		}
		return models.RecordValue(rec), nil
	default:
		return models.Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}
