package dataset

import (
	"io"
	"math/rand"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DefaultDevice is the compute target batches are tagged with when the
// config leaves Device empty.
const DefaultDevice = "cpu"

// SamplerConfig configures a Sampler. Loader and Labeler are required; the
// rest default as documented.
type SamplerConfig struct {
	// Loader resolves a sample path to its input tensor.
	Loader Labeler
	// Labeler resolves a sample path to its label tensor.
	Labeler Labeler
	// BatchSize is the number of samples per batch. Zero means the whole
	// sample collection.
	BatchSize int
	// EpochSize is the number of batches per epoch. Zero means one batch
	// per sample.
	EpochSize int
	// Random selects samples uniformly at random with replacement. When
	// false, batch i covers positions [i*BatchSize, i*BatchSize+BatchSize)
	// of the sample list.
	Random bool
	// ReturnPaths attaches the contributing sample paths to every batch.
	ReturnPaths bool
	// Device is the compute target attached to produced batches, e.g. an
	// accelerator identifier understood by the consuming runtime. Defaults
	// to DefaultDevice.
	Device string
	// Seed seeds random selection. Zero means a time-based seed.
	Seed int64
	// Logger, if set, gets debug output about epoch progress.
	Logger golog.Logger
}

// Batch is one step's worth of stacked samples. Inputs and Labels share
// selection order; Samples is populated only when the sampler was configured
// with ReturnPaths.
type Batch struct {
	Inputs  *tensor.Dense
	Labels  *tensor.Dense
	Samples []string
	Device  string
}

// Sampler draws batches from a fixed sample collection, one epoch at a time.
// It is single-threaded and pull-based: each Next computes its batch inline,
// with no buffering between producer and consumer. Reset starts a fresh
// epoch; nothing else carries over between iteration passes.
type Sampler struct {
	cfg     SamplerConfig
	samples []string
	rnd     *rand.Rand
	step    int
}

// NewSampler validates cfg against the sample collection and returns a
// sampler positioned at the start of an epoch. In sequential mode the
// configured epoch must fit the collection: EpochSize*BatchSize may not
// exceed the number of samples.
func NewSampler(samples []string, cfg SamplerConfig) (*Sampler, error) {
	if len(samples) == 0 {
		return nil, errors.New("no samples to draw from")
	}
	if cfg.Loader == nil {
		return nil, errors.New("sampler needs a loader")
	}
	if cfg.Labeler == nil {
		return nil, errors.New("sampler needs a labeler")
	}
	if cfg.BatchSize < 0 || cfg.EpochSize < 0 {
		return nil, errors.Errorf("batch size %d and epoch size %d must be non-negative", cfg.BatchSize, cfg.EpochSize)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = len(samples)
	}
	if cfg.EpochSize == 0 {
		cfg.EpochSize = len(samples)
	}
	if !cfg.Random && cfg.EpochSize*cfg.BatchSize > len(samples) {
		return nil, errors.Errorf(
			"sequential sampling of %d batches of %d needs %d samples but only %d are available",
			cfg.EpochSize, cfg.BatchSize, cfg.EpochSize*cfg.BatchSize, len(samples))
	}
	if cfg.Device == "" {
		cfg.Device = DefaultDevice
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	owned := make([]string, len(samples))
	copy(owned, samples)
	return &Sampler{
		cfg:     cfg,
		samples: owned,
		rnd:     rand.New(rand.NewSource(seed)),
	}, nil
}

// Reset rewinds the sampler to the start of a fresh epoch.
func (s *Sampler) Reset() {
	s.step = 0
	if s.cfg.Logger != nil {
		s.cfg.Logger.Debug("sampler reset, starting new epoch")
	}
}

// EpochSize reports the number of batches per epoch after defaulting.
func (s *Sampler) EpochSize() int { return s.cfg.EpochSize }

// BatchSize reports the number of samples per batch after defaulting.
func (s *Sampler) BatchSize() int { return s.cfg.BatchSize }

// Next produces the next batch of the current epoch, or io.EOF once
// EpochSize batches have been produced. Any per-sample failure aborts the
// whole batch and surfaces here; there is no skip-and-continue.
func (s *Sampler) Next() (*Batch, error) {
	if s.step >= s.cfg.EpochSize {
		return nil, io.EOF
	}
	b, err := s.sampleBatch()
	if err != nil {
		return nil, err
	}
	s.step++
	return b, nil
}

func (s *Sampler) sampleBatch() (*Batch, error) {
	paths := make([]string, s.cfg.BatchSize)
	xs := make([]*tensor.Dense, s.cfg.BatchSize)
	ys := make([]*tensor.Dense, s.cfg.BatchSize)
	for slot := range paths {
		var path string
		if s.cfg.Random {
			path = s.samples[s.rnd.Intn(len(s.samples))]
		} else {
			path = s.samples[s.step*s.cfg.BatchSize+slot]
		}
		x, err := s.cfg.Loader.Label(path)
		if err != nil {
			return nil, errors.Wrapf(err, "loading sample %q", path)
		}
		y, err := s.cfg.Labeler.Label(path)
		if err != nil {
			return nil, errors.Wrapf(err, "labeling sample %q", path)
		}
		paths[slot], xs[slot], ys[slot] = path, x, y
	}

	inputs, err := stackBatch(xs, paths)
	if err != nil {
		return nil, errors.Wrap(err, "stacking input batch")
	}
	labels, err := stackBatch(ys, paths)
	if err != nil {
		return nil, errors.Wrap(err, "stacking label batch")
	}

	if transform := s.cfg.Loader.Transform(); transform != nil {
		if inputs, err = transform(inputs, paths); err != nil {
			return nil, errors.Wrap(err, "input batch transform")
		}
	}
	if transform := s.cfg.Labeler.Transform(); transform != nil {
		if labels, err = transform(labels, paths); err != nil {
			return nil, errors.Wrap(err, "label batch transform")
		}
	}

	batch := &Batch{Inputs: inputs, Labels: labels, Device: s.cfg.Device}
	if s.cfg.ReturnPaths {
		batch.Samples = paths
	}
	return batch, nil
}

// stackBatch concatenates per-sample tensors of identical shape and dtype
// into one tensor with a new leading batch axis, preserving order. Scalar
// samples stack into a rank-1 batch.
func stackBatch(parts []*tensor.Dense, samples []string) (*tensor.Dense, error) {
	shape := parts[0].Shape()
	dt := parts[0].Dtype()
	for i, p := range parts[1:] {
		if !p.Shape().Eq(shape) {
			return nil, errors.Errorf("sample %q has shape %v, want %v like the rest of the batch",
				samples[i+1], p.Shape(), shape)
		}
		if p.Dtype() != dt {
			return nil, errors.Errorf("sample %q has dtype %v, want %v like the rest of the batch",
				samples[i+1], p.Dtype(), dt)
		}
	}
	outShape := append([]int{len(parts)}, shape...)
	switch dt {
	case tensor.Uint8:
		return stackBacking(parts, outShape, uint8Values)
	case tensor.Int:
		return stackBacking(parts, outShape, intValues)
	case tensor.Float32:
		return stackBacking(parts, outShape, float32Values)
	case tensor.Float64:
		return stackBacking(parts, outShape, float64Values)
	default:
		return nil, errors.Errorf("cannot stack tensors of dtype %v", dt)
	}
}

func stackBacking[T any](parts []*tensor.Dense, shape []int, values func(*tensor.Dense) []T) (*tensor.Dense, error) {
	size := 1
	for _, d := range shape {
		size *= d
	}
	backing := make([]T, 0, size)
	for _, p := range parts {
		backing = append(backing, values(p)...)
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing)), nil
}

// The values helpers tolerate scalar tensors, whose Data() is the bare value
// rather than a slice.

func uint8Values(d *tensor.Dense) []uint8 {
	if v, ok := d.Data().([]uint8); ok {
		return v
	}
	return []uint8{d.Data().(uint8)}
}

func intValues(d *tensor.Dense) []int {
	if v, ok := d.Data().([]int); ok {
		return v
	}
	return []int{d.Data().(int)}
}

func float32Values(d *tensor.Dense) []float32 {
	if v, ok := d.Data().([]float32); ok {
		return v
	}
	return []float32{d.Data().(float32)}
}

func float64Values(d *tensor.Dense) []float64 {
	if v, ok := d.Data().([]float64); ok {
		return v
	}
	return []float64{d.Data().(float64)}
}
