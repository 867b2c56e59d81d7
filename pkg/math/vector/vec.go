package vector

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrEmpty     = errors.New("vector is empty")
	ErrNotNumber = errors.New("value is not a floating point number")
	ErrMultiLine = errors.New("vector spans more than one line")
)

// V is a single row of features.
type V []float64

// Parse reads a comma separated row of floats. Whitespace around values and a
// single trailing line break ("\n" or "\r\n") are ignored; any other line
// break is an error. NaN and infinities are rejected.
func Parse(s string) (V, error) {
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	if strings.ContainsAny(s, "\r\n") {
		return nil, ErrMultiLine
	}
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmpty
	}
	fields := strings.Split(s, ",")
	v := make(V, 0, len(fields))
	for i, field := range fields {
		field = strings.TrimSpace(field)
		f, err := strconv.ParseFloat(field, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("position %d %q: %w", i, field, ErrNotNumber)
		}
		v = append(v, f)
	}
	return v, nil
}

func (v V) Dimensions() int {
	return len(v)
}

func (v V) Points() []float64 {
	return v
}

// String formats v back into the comma separated form accepted by Parse.
func (v V) String() string {
	parts := make([]string, len(v))
	for i := range v {
		parts[i] = strconv.FormatFloat(v[i], 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
