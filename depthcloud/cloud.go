package depthcloud

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gorgonia.org/tensor"
)

// PointCloud is an ordered collection of 3-D points. Order is meaningful:
// clouds projected from a depth map keep pixel scan order.
type PointCloud struct {
	points []r3.Vector
}

// NewPointCloud returns an empty cloud.
func NewPointCloud() *PointCloud {
	return NewPointCloudWithPrealloc(0)
}

// NewPointCloudWithPrealloc returns an empty cloud with capacity for size points.
func NewPointCloudWithPrealloc(size int) *PointCloud {
	return &PointCloud{points: make([]r3.Vector, 0, size)}
}

// Size returns the number of points.
func (pc *PointCloud) Size() int { return len(pc.points) }

// At returns the i-th point.
func (pc *PointCloud) At(i int) r3.Vector { return pc.points[i] }

// Add appends a point.
func (pc *PointCloud) Add(p r3.Vector) { pc.points = append(pc.points, p) }

// Iterate calls fn on every point in order until it returns false.
func (pc *PointCloud) Iterate(fn func(p r3.Vector) bool) {
	for _, p := range pc.points {
		if !fn(p) {
			return
		}
	}
}

// CloudFromDepth projects a depth map through the camera intrinsics into a
// point cloud. Pixels with zero, negative or non-finite depth are dropped,
// so a masked map projects to a smaller cloud than the raw one.
func CloudFromDepth(params *Intrinsics, dm *DepthMap) (*PointCloud, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	if dm == nil {
		return nil, errors.New("no depth map to project")
	}
	if params.Width != dm.Width() || params.Height != dm.Height() {
		return nil, errors.Errorf("depth map dimensions don't match intrinsics, Depth(%d,%d) != Intrinsics(%d,%d)",
			dm.Width(), dm.Height(), params.Width, params.Height)
	}
	pc := NewPointCloudWithPrealloc(dm.Width() * dm.Height())
	for y := 0; y < dm.Height(); y++ {
		for x := 0; x < dm.Width(); x++ {
			z := dm.GetDepth(x, y)
			if z <= 0 || math.IsInf(z, 0) || math.IsNaN(z) {
				continue
			}
			px, py, pz := params.PixelToPoint(float64(x), float64(y), z)
			pc.Add(r3.Vector{X: px, Y: py, Z: pz})
		}
	}
	return pc, nil
}

// ToTensor copies the cloud into an (N, 3) float64 tensor.
func (pc *PointCloud) ToTensor() *tensor.Dense {
	backing := make([]float64, 0, len(pc.points)*3)
	for _, p := range pc.points {
		backing = append(backing, p.X, p.Y, p.Z)
	}
	return tensor.New(tensor.WithShape(len(pc.points), 3), tensor.WithBacking(backing))
}

// CloudFromTensor builds a cloud from an (N, 3) float tensor.
func CloudFromTensor(d *tensor.Dense) (*PointCloud, error) {
	shape := d.Shape()
	if len(shape) != 2 || shape[1] != 3 {
		return nil, errors.Errorf("need an (N, 3) tensor for a point cloud, got shape %v", shape)
	}
	var data []float64
	switch v := d.Data().(type) {
	case []float64:
		data = v
	case []float32:
		data = make([]float64, len(v))
		for i, f := range v {
			data[i] = float64(f)
		}
	default:
		return nil, errors.Errorf("cannot build a point cloud from dtype %v", d.Dtype())
	}
	pc := NewPointCloudWithPrealloc(shape[0])
	for i := 0; i < shape[0]; i++ {
		pc.Add(r3.Vector{X: data[i*3], Y: data[i*3+1], Z: data[i*3+2]})
	}
	return pc, nil
}

// ToPCD writes the cloud as an ASCII PCD, readable by standard viewers.
func (pc *PointCloud) ToPCD(out io.Writer) error {
	w := bufio.NewWriter(out)
	_, err := fmt.Fprintf(w, "VERSION .7\n"+
		"FIELDS x y z\n"+
		"SIZE 4 4 4\n"+
		"TYPE F F F\n"+
		"COUNT 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA ascii\n",
		pc.Size(),
		1,
		pc.Size())
	if err != nil {
		return err
	}
	for _, p := range pc.points {
		if _, err := fmt.Fprintf(w, "%f %f %f\n", p.X, p.Y, p.Z); err != nil {
			return err
		}
	}
	return w.Flush()
}

// WritePCDFile writes the cloud to path in ASCII PCD format.
func (pc *PointCloud) WritePCDFile(path string, logger golog.Logger) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create PCD file %q", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if err := pc.ToPCD(f); err != nil {
		return errors.Wrapf(err, "cannot write PCD file %q", path)
	}
	logger.Debugf("wrote %d points to %s", pc.Size(), path)
	return nil
}
