// Package dataset reads labeled, headerless CSV files: every column but the
// last is a numeric feature and the last column is the class label.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

var (
	ErrNoRows       = errors.New("dataset has no rows")
	ErrFeatureCount = errors.New("unexpected number of feature columns")
	ErrMalformedRow = errors.New("malformed row")
)

type Dataset struct {
	Features [][]float64
	Labels   []string
}

// Len is the number of rows.
func (d *Dataset) Len() int {
	return len(d.Labels)
}

// Width is the number of feature columns.
func (d *Dataset) Width() int {
	if len(d.Features) == 0 {
		return 0
	}
	return len(d.Features[0])
}

// Subset returns the rows at idx. Rows share backing arrays with d.
func (d *Dataset) Subset(idx []int) *Dataset {
	sub := &Dataset{
		Features: make([][]float64, 0, len(idx)),
		Labels:   make([]string, 0, len(idx)),
	}
	for _, i := range idx {
		sub.Features = append(sub.Features, d.Features[i])
		sub.Labels = append(sub.Labels, d.Labels[i])
	}
	return sub
}

type options struct {
	featureCount int
}

type Option func(*options)

// WithFeatureCount pins the expected number of feature columns. Zero infers it
// from the first row.
func WithFeatureCount(n int) Option {
	return func(o *options) {
		o.featureCount = n
	}
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string, opts ...Option) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return Read(f, opts...)
}

// Read parses every record of r. Any malformed record fails the whole read.
func Read(r io.Reader, opts ...Option) (*Dataset, error) {
	var o options
	for _, f := range opts {
		f(&o)
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true
	if o.featureCount > 0 {
		reader.FieldsPerRecord = o.featureCount + 1
	}

	ds := &Dataset{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				return nil, fmt.Errorf("%v: %w", err, ErrFeatureCount)
			}
			return nil, fmt.Errorf("%v: %w", err, ErrMalformedRow)
		}
		line, _ := reader.FieldPos(0)
		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: need at least one feature and a label: %w", line, ErrMalformedRow)
		}

		features := make([]float64, len(record)-1)
		for i, field := range record[:len(record)-1] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d column %d %q is not a number: %w", line, i+1, field, ErrMalformedRow)
			}
			features[i] = v
		}
		label := strings.TrimSpace(record[len(record)-1])
		if label == "" {
			return nil, fmt.Errorf("line %d: empty label: %w", line, ErrMalformedRow)
		}

		ds.Features = append(ds.Features, features)
		ds.Labels = append(ds.Labels, label)
	}

	if ds.Len() == 0 {
		return nil, ErrNoRows
	}
	return ds, nil
}
