// Package dataset turns a directory of image/video samples into batched
// tensors for supervised training.
//
// Sample discovery produces a flat list of file paths, either by scanning a
// root directory laid out as one sub-directory per class or by reading a YAML
// manifest. A pair of Labelers then resolves each path to an input tensor and
// a label tensor, and a Sampler stacks them into batches.
package dataset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// DefaultExtensions is the extension allow-list used when none is given.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".mp4", ".avi", ".webm"}

// Sample is one discovered dataset entry: a file path paired with the index
// of the class directory it was found under.
type Sample struct {
	Path       string
	ClassIndex int
}

// FindClasses returns the sorted names of the immediate sub-directories of
// root, along with a name to index map for that ordering.
func FindClasses(root string) ([]string, map[string]int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot scan dataset root %q", root)
	}
	var classes []string
	for _, e := range entries {
		if e.IsDir() {
			classes = append(classes, e.Name())
		}
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return classes, index, nil
}

// Samples scans root for class sub-directories and returns every file inside
// them whose extension is in the allow-list, paired with its class index.
// A nil extension list means DefaultExtensions. The result is deterministic:
// classes in sorted order, files sorted within each class.
func Samples(root string, extensions []string) ([]Sample, error) {
	if extensions == nil {
		extensions = DefaultExtensions
	}
	classes, index, err := FindClasses(root)
	if err != nil {
		return nil, err
	}
	var samples []Sample
	for _, class := range classes {
		dir := filepath.Join(root, class)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot scan class directory %q", dir)
		}
		for _, e := range entries {
			if e.IsDir() || !hasExtension(e.Name(), extensions) {
				continue
			}
			samples = append(samples, Sample{
				Path:       filepath.Join(dir, e.Name()),
				ClassIndex: index[class],
			})
		}
	}
	return samples, nil
}

// SamplePaths strips the class indices off a sample list.
func SamplePaths(samples []Sample) []string {
	paths := make([]string, len(samples))
	for i, s := range samples {
		paths[i] = s.Path
	}
	return paths
}

// LoadManifest reads a YAML list of relative sample paths. If prepend is
// non-empty it is joined onto every entry.
func LoadManifest(path, prepend string) ([]string, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read manifest %q", path)
	}
	var entries []string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(err, "cannot parse manifest %q", path)
	}
	if prepend == "" {
		return entries, nil
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = filepath.Join(prepend, e)
	}
	return paths, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := filepath.Ext(name)
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// sampleClass is the name of the directory a sample sits in.
func sampleClass(sample string) string {
	return filepath.Base(filepath.Dir(sample))
}

// sampleStem is the sample's file name without its extension.
func sampleStem(sample string) string {
	base := filepath.Base(sample)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
