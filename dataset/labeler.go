package dataset

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
	"gopkg.in/yaml.v2"
	"gorgonia.org/tensor"
)

// BatchTransform rewrites a whole stacked batch. The sampler applies it after
// stacking, with the paths of the samples that produced the batch, so a
// transform can use cross-sample context (e.g. resize everything to a common
// shape).
type BatchTransform func(batch *tensor.Dense, samples []string) (*tensor.Dense, error)

// A Labeler resolves a sample reference to a tensor. The same contract serves
// both sides of a batch: an input loader decoding the sample itself, and a
// label resolver deriving the target from the sample's path. Transform
// returns the batch transform the sampler should apply, or nil.
type Labeler interface {
	Label(sample string) (*tensor.Dense, error)
	Transform() BatchTransform
}

// ClassificationLabeler maps a sample to the index of its parent directory
// within the class set observed when the labeler was built. The class set is
// fixed at construction; resolving a sample from a different set fails.
type ClassificationLabeler struct {
	classes   []string
	index     map[string]int
	oneHot    bool
	transform BatchTransform
}

// NewClassificationLabeler derives the sorted, de-duplicated class set from
// the parent directories of the given sample paths. With oneHot set, labels
// are float32 one-hot vectors instead of scalar indices.
func NewClassificationLabeler(samples []string, oneHot bool, transform BatchTransform) *ClassificationLabeler {
	seen := map[string]bool{}
	var classes []string
	for _, s := range samples {
		c := sampleClass(s)
		if !seen[c] {
			seen[c] = true
			classes = append(classes, c)
		}
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &ClassificationLabeler{classes: classes, index: index, oneHot: oneHot, transform: transform}
}

// Classes returns the fixed class ordering label indices refer to.
func (l *ClassificationLabeler) Classes() []string {
	out := make([]string, len(l.classes))
	copy(out, l.classes)
	return out
}

func (l *ClassificationLabeler) Label(sample string) (*tensor.Dense, error) {
	class := sampleClass(sample)
	idx, ok := l.index[class]
	if !ok {
		return nil, errors.Errorf("sample %q has class %q which is not among the %d classes this labeler was built from",
			sample, class, len(l.classes))
	}
	if l.oneHot {
		hot := make([]float32, len(l.classes))
		hot[idx] = 1
		return tensor.New(tensor.WithShape(len(hot)), tensor.WithBacking(hot)), nil
	}
	return tensor.New(tensor.FromScalar(idx)), nil
}

func (l *ClassificationLabeler) Transform() BatchTransform { return l.transform }

// LocalizationLabeler maps a sample to a fixed-length float32 coordinate
// vector, either parsed out of the file name (underscore-delimited numbers)
// or looked up in a coordinate table keyed by "{folder}/{stem}".
type LocalizationLabeler struct {
	locations map[string][]string
	transform BatchTransform
}

// NewLocalizationLabeler returns a labeler that parses coordinates directly
// from sample file names.
func NewLocalizationLabeler(transform BatchTransform) *LocalizationLabeler {
	return &LocalizationLabeler{transform: transform}
}

// NewLocalizationLabelerFromTable loads a YAML coordinate table mapping
// "{folder}/{stem}" keys to lists of numeric strings. Lookup then replaces
// file-name parsing entirely.
func NewLocalizationLabelerFromTable(path string, transform BatchTransform) (*LocalizationLabeler, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read coordinate table %q", path)
	}
	locations := map[string][]string{}
	if err := yaml.Unmarshal(data, &locations); err != nil {
		return nil, errors.Wrapf(err, "cannot parse coordinate table %q", path)
	}
	return &LocalizationLabeler{locations: locations, transform: transform}, nil
}

func (l *LocalizationLabeler) Label(sample string) (*tensor.Dense, error) {
	stem := sampleStem(sample)
	var raw []string
	if l.locations != nil {
		key := sampleClass(sample) + "/" + stem
		entry, ok := l.locations[key]
		if !ok {
			return nil, errors.Errorf("no coordinate table entry for %q (sample %q)", key, sample)
		}
		raw = entry
	} else {
		raw = strings.Split(stem, "_")
	}
	coords := make([]float32, len(raw))
	for i, tok := range raw {
		v, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "sample %q: coordinate %q is not numeric", sample, tok)
		}
		coords[i] = float32(v)
	}
	return tensor.New(tensor.WithShape(len(coords)), tensor.WithBacking(coords)), nil
}

func (l *LocalizationLabeler) Transform() BatchTransform { return l.transform }

// ArrayMapLabeler maps a sample to a precomputed array stored by convention
// at {basePath}/{folder}/{stem}.npy. A missing file is an error, there is no
// fallback.
type ArrayMapLabeler struct {
	basePath  string
	transform BatchTransform
}

// NewArrayMapLabeler returns a labeler rooted at basePath.
func NewArrayMapLabeler(basePath string, transform BatchTransform) *ArrayMapLabeler {
	return &ArrayMapLabeler{basePath: basePath, transform: transform}
}

func (l *ArrayMapLabeler) Label(sample string) (*tensor.Dense, error) {
	path := filepath.Join(l.basePath, sampleClass(sample), sampleStem(sample)+".npy")
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open array map for sample %q", sample)
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	d := new(tensor.Dense)
	if err := d.ReadNpy(f); err != nil {
		return nil, errors.Wrapf(err, "cannot parse array map %q", path)
	}
	return d, nil
}

func (l *ArrayMapLabeler) Transform() BatchTransform { return l.transform }

// ImageLoader decodes the image at the sample path into an (H, W, 3) uint8
// RGB tensor. It serves both as the input loader and, for image-to-image
// tasks, as a raw-image labeler.
type ImageLoader struct {
	transform BatchTransform
}

// NewImageLoader returns an image decoding loader.
func NewImageLoader(transform BatchTransform) *ImageLoader {
	return &ImageLoader{transform: transform}
}

func (l *ImageLoader) Label(sample string) (*tensor.Dense, error) {
	img, err := imaging.Open(sample)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode image %q", sample)
	}
	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	backing := make([]uint8, h*w*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := nrgba.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			dst := (y*w + x) * 3
			copy(backing[dst:dst+3], nrgba.Pix[src:src+3])
		}
	}
	return tensor.New(tensor.WithShape(h, w, 3), tensor.WithBacking(backing)), nil
}

func (l *ImageLoader) Transform() BatchTransform { return l.transform }
