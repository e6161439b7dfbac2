package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func makeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, contents := range files {
		path := filepath.Join(root, name)
		test.That(t, os.MkdirAll(filepath.Dir(path), 0o750), test.ShouldBeNil)
		test.That(t, os.WriteFile(path, []byte(contents), 0o640), test.ShouldBeNil)
	}
	return root
}

func TestFindClasses(t *testing.T) {
	root := makeTree(t, map[string]string{
		"catB/b1.png":  "",
		"catA/a1.png":  "",
		"zebra/z1.png": "",
		"loose.png":    "",
	})

	classes, index, err := FindClasses(root)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, classes, test.ShouldResemble, []string{"catA", "catB", "zebra"})
	test.That(t, index, test.ShouldResemble, map[string]int{"catA": 0, "catB": 1, "zebra": 2})

	_, _, err = FindClasses(filepath.Join(root, "missing"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSamples(t *testing.T) {
	root := makeTree(t, map[string]string{
		"catB/b1.jpg":       "",
		"catA/a2.png":       "",
		"catA/a1.png":       "",
		"catA/notes.txt":    "",
		"catA/nested/x.png": "",
		"loose.png":         "",
	})

	samples, err := Samples(root, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, samples, test.ShouldResemble, []Sample{
		{filepath.Join(root, "catA", "a1.png"), 0},
		{filepath.Join(root, "catA", "a2.png"), 0},
		{filepath.Join(root, "catB", "b1.jpg"), 1},
	})

	test.That(t, SamplePaths(samples), test.ShouldResemble, []string{
		filepath.Join(root, "catA", "a1.png"),
		filepath.Join(root, "catA", "a2.png"),
		filepath.Join(root, "catB", "b1.jpg"),
	})

	onlyJpg, err := Samples(root, []string{".jpg"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, onlyJpg, test.ShouldHaveLength, 1)
	test.That(t, onlyJpg[0].ClassIndex, test.ShouldEqual, 1)
}

func TestLoadManifest(t *testing.T) {
	root := makeTree(t, map[string]string{
		"split.yaml": "- catA/a1.png\n- catB/b1.png\n",
		"bad.yaml":   "{ not a list",
	})

	entries, err := LoadManifest(filepath.Join(root, "split.yaml"), "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, entries, test.ShouldResemble, []string{"catA/a1.png", "catB/b1.png"})

	prefixed, err := LoadManifest(filepath.Join(root, "split.yaml"), "/data/real_rgb")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, prefixed, test.ShouldResemble, []string{
		filepath.Join("/data/real_rgb", "catA/a1.png"),
		filepath.Join("/data/real_rgb", "catB/b1.png"),
	})

	_, err = LoadManifest(filepath.Join(root, "missing.yaml"), "")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = LoadManifest(filepath.Join(root, "bad.yaml"), "")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot parse manifest")
}
