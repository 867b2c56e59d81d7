// Package artifact reads and writes fitted models.
//
// An artifact file is laid out as
//
//	"DTRE" | version (uint32, big endian) | XDR encoded body | SHA-256(body)
//
// Readers reject any other version, so a change of the body schema must bump
// Version.
package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/davecgh/go-xdr/xdr2"
	"github.com/google/uuid"

	"github.com/go-sod/dtree/internal/dataset"
	"github.com/go-sod/dtree/internal/predictor"
	"github.com/go-sod/dtree/internal/predictor/tree"
	"github.com/go-sod/dtree/internal/util"
)

const (
	Magic          = "DTRE"
	Version uint32 = 1

	headerLen  = len(Magic) + 4
	trailerLen = sha256.Size
)

var (
	ErrBadMagic           = errors.New("not a model artifact")
	ErrUnsupportedVersion = errors.New("unsupported artifact version")
	ErrTruncated          = errors.New("artifact is truncated")
	ErrChecksum           = errors.New("artifact checksum mismatch")
	ErrUnknownKind        = errors.New("unknown model kind")
	ErrCorrupt            = errors.New("artifact body is corrupt")
	ErrLabelMismatch      = errors.New("tree classes do not match the label set")
)

var _ predictor.Predictor = (*Model)(nil)

// Model is a fitted classifier together with everything needed to serve it.
// It is never mutated after construction.
type Model struct {
	RunID        uuid.UUID
	CreatedAt    time.Time
	FeatureNames []string
	Labels       *dataset.LabelSet
	Tree         *tree.Classifier
}

func (m *Model) Features() int {
	return m.Tree.Features()
}

// Predict checks the vector width before the tree is consulted.
func (m *Model) Predict(vec predictor.Vector) (*predictor.Conclusion, error) {
	if vec.Dimensions() != m.Features() {
		return nil, fmt.Errorf("got %d features, expected %d: %w", vec.Dimensions(), m.Features(), predictor.ErrDimMismatch)
	}
	class, err := m.Tree.Predict(vec.Points())
	if err != nil {
		return nil, fmt.Errorf("tree predict: %w", err)
	}
	label, err := m.Labels.Decode(class)
	if err != nil {
		return nil, fmt.Errorf("decode class: %w", err)
	}
	return &predictor.Conclusion{ClassID: class, Label: label}, nil
}

// Names is used when exporting diagrams.
func (m *Model) Names() tree.Names {
	return tree.Names{Features: m.FeatureNames, Classes: m.Labels.Labels()}
}

// body is the XDR schema of Version 1.
type body struct {
	Kind            string
	RunID           string
	CreatedAt       int64
	Features        int32
	FeatureNames    []string
	Labels          []string
	Criterion       string
	MaxDepth        int32
	MinSamplesSplit int32
	MinSamplesLeaf  int32
	Nodes           []tree.Node
}

// Encode writes m in the artifact format.
func Encode(w io.Writer, m *Model) error {
	if m == nil || m.Tree == nil || m.Labels == nil {
		return errors.New("model is incomplete")
	}
	if m.Tree.Classes() != m.Labels.Len() {
		return fmt.Errorf("tree has %d classes, label set has %d: %w", m.Tree.Classes(), m.Labels.Len(), ErrLabelMismatch)
	}
	params := m.Tree.Params()
	b := body{
		Kind:            string(predictor.AlgTypeDecisionTree),
		RunID:           m.RunID.String(),
		CreatedAt:       m.CreatedAt.UnixNano(),
		Features:        int32(m.Tree.Features()),
		FeatureNames:    m.FeatureNames,
		Labels:          m.Labels.Labels(),
		Criterion:       string(params.Criterion),
		MaxDepth:        int32(params.MaxDepth),
		MinSamplesSplit: int32(params.MinSamplesSplit),
		MinSamplesLeaf:  int32(params.MinSamplesLeaf),
		Nodes:           m.Tree.Nodes(),
	}

	buf := util.GetBytesBuffer()
	defer util.PutBytesBuffer(buf)

	buf.WriteString(Magic)
	var version [4]byte
	binary.BigEndian.PutUint32(version[:], Version)
	buf.Write(version[:])
	if _, err := xdr.Marshal(buf, &b); err != nil {
		return fmt.Errorf("xdr marshal: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes()[headerLen:])
	buf.Write(sum[:])

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// Decode reads and verifies an artifact.
func Decode(r io.Reader) (*Model, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	if len(raw) < len(Magic) || string(raw[:len(Magic)]) != Magic {
		return nil, ErrBadMagic
	}
	if len(raw) < headerLen+trailerLen {
		return nil, ErrTruncated
	}
	if v := binary.BigEndian.Uint32(raw[len(Magic):headerLen]); v != Version {
		return nil, fmt.Errorf("version %d, supported %d: %w", v, Version, ErrUnsupportedVersion)
	}
	payload := raw[headerLen : len(raw)-trailerLen]
	sum := sha256.Sum256(payload)
	if !bytes.Equal(sum[:], raw[len(raw)-trailerLen:]) {
		return nil, ErrChecksum
	}

	var b body
	n, err := xdr.Unmarshal(bytes.NewReader(payload), &b)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrCorrupt)
	}
	if n != len(payload) {
		return nil, fmt.Errorf("%d trailing bytes: %w", len(payload)-n, ErrCorrupt)
	}
	return b.model()
}

func (b *body) model() (*Model, error) {
	if b.Kind != string(predictor.AlgTypeDecisionTree) {
		return nil, fmt.Errorf("%q: %w", b.Kind, ErrUnknownKind)
	}
	runID, err := uuid.Parse(b.RunID)
	if err != nil {
		return nil, fmt.Errorf("run id: %v: %w", err, ErrCorrupt)
	}
	labels, err := dataset.NewLabelSet(b.Labels)
	if err != nil {
		return nil, fmt.Errorf("labels: %v: %w", err, ErrCorrupt)
	}
	params := tree.Params{
		Criterion:       tree.Criterion(b.Criterion),
		MaxDepth:        int(b.MaxDepth),
		MinSamplesSplit: int(b.MinSamplesSplit),
		MinSamplesLeaf:  int(b.MinSamplesLeaf),
	}
	classifier, err := tree.FromNodes(params, int(b.Features), labels.Len(), b.Nodes)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrCorrupt)
	}
	if len(b.FeatureNames) != 0 && len(b.FeatureNames) != int(b.Features) {
		return nil, fmt.Errorf("%d feature names for %d features: %w", len(b.FeatureNames), b.Features, ErrCorrupt)
	}
	return &Model{
		RunID:        runID,
		CreatedAt:    time.Unix(0, b.CreatedAt).UTC(),
		FeatureNames: b.FeatureNames,
		Labels:       labels,
		Tree:         classifier,
	}, nil
}
