package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownLabel   = errors.New("unknown label")
	ErrUnknownCode    = errors.New("unknown class code")
	ErrDuplicateLabel = errors.New("duplicate label")
	ErrEmptyLabelSet  = errors.New("label set is empty")
)

// LabelSet maps class labels to dense integer codes and back.
type LabelSet struct {
	labels []string
	codes  map[string]int
}

// NewLabelSet uses the order of labels as the code order.
func NewLabelSet(labels []string) (*LabelSet, error) {
	if len(labels) == 0 {
		return nil, ErrEmptyLabelSet
	}
	ls := &LabelSet{
		labels: make([]string, 0, len(labels)),
		codes:  make(map[string]int, len(labels)),
	}
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			return nil, fmt.Errorf("empty label: %w", ErrUnknownLabel)
		}
		if _, ok := ls.codes[label]; ok {
			return nil, fmt.Errorf("%q: %w", label, ErrDuplicateLabel)
		}
		ls.codes[label] = len(ls.labels)
		ls.labels = append(ls.labels, label)
	}
	return ls, nil
}

// DeriveLabelSet builds a set from the distinct values, sorted so that the
// same data always yields the same codes.
func DeriveLabelSet(values []string) (*LabelSet, error) {
	seen := make(map[string]struct{})
	var uniq []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		uniq = append(uniq, v)
	}
	sort.Strings(uniq)
	return NewLabelSet(uniq)
}

func (ls *LabelSet) Len() int {
	return len(ls.labels)
}

// Labels returns a copy of the labels in code order.
func (ls *LabelSet) Labels() []string {
	out := make([]string, len(ls.labels))
	copy(out, ls.labels)
	return out
}

func (ls *LabelSet) Encode(label string) (int, error) {
	code, ok := ls.codes[label]
	if !ok {
		return 0, fmt.Errorf("%q: %w", label, ErrUnknownLabel)
	}
	return code, nil
}

func (ls *LabelSet) Decode(code int) (string, error) {
	if code < 0 || code >= len(ls.labels) {
		return "", fmt.Errorf("%d: %w", code, ErrUnknownCode)
	}
	return ls.labels[code], nil
}

// EncodeAll fails on the first label outside the set.
func (ls *LabelSet) EncodeAll(values []string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		code, err := ls.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out[i] = code
	}
	return out, nil
}
