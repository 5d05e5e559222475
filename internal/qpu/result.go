package qpu

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sbinet/npyio/npy"
)

// PubResult is the result of one pub. Data fields are kept raw because the
// runtime encodes arrays in several shapes.
type PubResult struct {
	Data struct {
		Evs  json.RawMessage `json:"evs"`
		Stds json.RawMessage `json:"stds,omitempty"`
	} `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PrimitiveResult is the estimator result payload.
type PrimitiveResult struct {
	Results  []PubResult    `json:"results"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ErrMalformedResult wraps every decoding failure of a result payload.
var ErrMalformedResult = errors.New("malformed result")

// Expectation returns the first expectation value of pub i.
func (r *PrimitiveResult) Expectation(i int) (float64, error) {
	if r == nil {
		return 0, fmt.Errorf("%w: nil result", ErrMalformedResult)
	}
	if i < 0 || i >= len(r.Results) {
		return 0, fmt.Errorf("%w: pub %d not present in %d results", ErrMalformedResult, i, len(r.Results))
	}
	v, err := decodeScalar(r.Results[i].Data.Evs, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: evs: %v", ErrMalformedResult, err)
	}
	return v, nil
}

type encodedValue struct {
	Type  string          `json:"__type__"`
	Value json.RawMessage `json:"__value__"`
}

// decodeScalar accepts a number, a (nested) array whose first element is
// taken, or a runtime-encoded {"__type__", "__value__"} wrapper around
// either or around a base64 .npy payload.
func decodeScalar(raw json.RawMessage, depth int) (float64, error) {
	if depth > 8 {
		return 0, errors.New("value nested too deeply")
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errors.New("missing value")
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return 0, err
		}
		if len(items) == 0 {
			return 0, errors.New("empty array")
		}
		return decodeScalar(items[0], depth+1)
	case '{':
		var enc encodedValue
		if err := json.Unmarshal(raw, &enc); err != nil {
			return 0, err
		}
		if enc.Type == "" || len(enc.Value) == 0 {
			return 0, errors.New("object is not an encoded value")
		}
		switch enc.Type {
		case "ndarray", "float", "complex", "number":
		default:
			return 0, fmt.Errorf("unsupported encoded type %q", enc.Type)
		}
		if bytes.HasPrefix(bytes.TrimSpace(enc.Value), []byte(`"`)) {
			if enc.Type != "ndarray" {
				return 0, fmt.Errorf("binary %s encoding is not supported", enc.Type)
			}
			var payload string
			if err := json.Unmarshal(enc.Value, &payload); err != nil {
				return 0, err
			}
			return decodeNDArray(payload)
		}
		return decodeScalar(enc.Value, depth+1)
	default:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return 0, err
		}
		return v, nil
	}
}

// decodeNDArray reads the first element of a base64 encoded .npy array,
// optionally zlib compressed. Complex values yield their real part.
func decodeNDArray(encoded string) (float64, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return 0, fmt.Errorf("ndarray base64: %w", err)
	}
	if isZlib(raw) {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return 0, fmt.Errorf("ndarray zlib: %w", err)
		}
		defer zr.Close()
		if raw, err = io.ReadAll(zr); err != nil {
			return 0, fmt.Errorf("ndarray zlib: %w", err)
		}
	}

	r, err := npy.NewReader(bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("ndarray header: %w", err)
	}
	for _, dim := range r.Header.Descr.Shape {
		if dim == 0 {
			return 0, errors.New("empty ndarray")
		}
	}

	switch strings.TrimLeft(r.Header.Descr.Type, "<=|") {
	case "f8":
		var vs []float64
		if err := r.Read(&vs); err != nil {
			return 0, fmt.Errorf("ndarray data: %w", err)
		}
		if len(vs) == 0 {
			return 0, errors.New("empty ndarray")
		}
		return vs[0], nil
	case "c16":
		var vs []complex128
		if err := r.Read(&vs); err != nil {
			return 0, fmt.Errorf("ndarray data: %w", err)
		}
		if len(vs) == 0 {
			return 0, errors.New("empty ndarray")
		}
		return real(vs[0]), nil
	default:
		return 0, fmt.Errorf("unsupported ndarray dtype %q", r.Header.Descr.Type)
	}
}

// isZlib reports whether b starts with a zlib stream header.
func isZlib(b []byte) bool {
	if len(b) < 2 || b[0]&0x0f != 8 {
		return false
	}
	return (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}
