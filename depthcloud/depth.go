// Package depthcloud projects simulated tactile sensor depth maps into 3-D
// point clouds. It covers the small amount of geometry the sensor assets
// need: a float depth map with bilinear resizing, pinhole camera intrinsics
// derived from a field of view, a circular aperture mask, and point cloud
// containers with npy and PCD interchange.
package depthcloud

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DepthMap is a dense 2-D grid of depth readings, row-major, in whatever
// unit the producing sensor uses (the simulation assets are in meters).
type DepthMap struct {
	width  int
	height int
	data   []float64
}

// NewEmptyDepthMap returns a zeroed depth map of the given size.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{width: width, height: height, data: make([]float64, width*height)}
}

// Width returns the number of columns.
func (dm *DepthMap) Width() int { return dm.width }

// Height returns the number of rows.
func (dm *DepthMap) Height() int { return dm.height }

// GetDepth returns the depth at (x, y).
func (dm *DepthMap) GetDepth(x, y int) float64 {
	return dm.data[y*dm.width+x]
}

// Set stores a depth at (x, y).
func (dm *DepthMap) Set(x, y int, z float64) {
	dm.data[y*dm.width+x] = z
}

// Resize returns a new depth map bilinearly interpolated to the given size.
func (dm *DepthMap) Resize(width, height int) *DepthMap {
	out := NewEmptyDepthMap(width, height)
	scaleX := float64(dm.width) / float64(width)
	scaleY := float64(dm.height) / float64(height)
	for y := 0; y < height; y++ {
		srcY := (float64(y)+0.5)*scaleY - 0.5
		y0 := int(math.Floor(srcY))
		fy := srcY - float64(y0)
		y0 = clampInt(y0, 0, dm.height-1)
		y1 := clampInt(y0+1, 0, dm.height-1)
		for x := 0; x < width; x++ {
			srcX := (float64(x)+0.5)*scaleX - 0.5
			x0 := int(math.Floor(srcX))
			fx := srcX - float64(x0)
			x0 = clampInt(x0, 0, dm.width-1)
			x1 := clampInt(x0+1, 0, dm.width-1)

			top := dm.GetDepth(x0, y0)*(1-fx) + dm.GetDepth(x1, y0)*fx
			bottom := dm.GetDepth(x0, y1)*(1-fx) + dm.GetDepth(x1, y1)*fx
			out.Set(x, y, top*(1-fy)+bottom*fy)
		}
	}
	return out
}

// ApplyMask multiplies the map elementwise with a mask of the same size and
// returns the result as a new map.
func (dm *DepthMap) ApplyMask(mask *DepthMap) (*DepthMap, error) {
	if mask.width != dm.width || mask.height != dm.height {
		return nil, errors.Errorf("mask dimensions (%d, %d) don't match depth map (%d, %d)",
			mask.width, mask.height, dm.width, dm.height)
	}
	out := NewEmptyDepthMap(dm.width, dm.height)
	for i, v := range dm.data {
		out.data[i] = v * mask.data[i]
	}
	return out, nil
}

// CircleMask returns a map holding 1.0 inside the centered inscribed circle
// and 0.0 outside of it, matching the circular aperture of the sensor.
func CircleMask(width, height int) *DepthMap {
	mask := NewEmptyDepthMap(width, height)
	cx := float64(width-1) / 2
	cy := float64(height-1) / 2
	radius := math.Min(float64(width), float64(height)) / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			if math.Sqrt(dx*dx+dy*dy) <= radius {
				mask.Set(x, y, 1)
			}
		}
	}
	return mask
}

// ToTensor copies the map into an (H, W) float64 tensor.
func (dm *DepthMap) ToTensor() *tensor.Dense {
	backing := make([]float64, len(dm.data))
	copy(backing, dm.data)
	return tensor.New(tensor.WithShape(dm.height, dm.width), tensor.WithBacking(backing))
}

// DepthMapFromTensor builds a depth map from a rank-2 float tensor.
func DepthMapFromTensor(d *tensor.Dense) (*DepthMap, error) {
	shape := d.Shape()
	if len(shape) != 2 {
		return nil, errors.Errorf("need a rank-2 tensor for a depth map, got shape %v", shape)
	}
	height, width := shape[0], shape[1]
	dm := NewEmptyDepthMap(width, height)
	switch data := d.Data().(type) {
	case []float64:
		copy(dm.data, data)
	case []float32:
		for i, v := range data {
			dm.data[i] = float64(v)
		}
	default:
		return nil, errors.Errorf("cannot build a depth map from dtype %v", d.Dtype())
	}
	return dm, nil
}

// ReadDepthMapNpy loads a depth map from a .npy file.
func ReadDepthMapNpy(path string) (*DepthMap, error) {
	d, err := ReadTensorNpy(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading depth map")
	}
	return DepthMapFromTensor(d)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
