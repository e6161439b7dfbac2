package dataset

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ResizeTransform returns a batch transform that resizes every image in a
// (B, H, W, 3) uint8 batch to the given size with bilinear interpolation.
// Use it as the loader transform when samples come in mixed resolutions.
func ResizeTransform(width, height int) BatchTransform {
	return func(batch *tensor.Dense, samples []string) (*tensor.Dense, error) {
		b, h, w, err := imageBatchDims(batch)
		if err != nil {
			return nil, err
		}
		data := batch.Data().([]uint8)
		out := make([]uint8, b*height*width*3)
		for i := 0; i < b; i++ {
			img := image.NewNRGBA(image.Rect(0, 0, w, h))
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					src := (i*h*w + y*w + x) * 3
					dst := img.PixOffset(x, y)
					copy(img.Pix[dst:dst+3], data[src:src+3])
					img.Pix[dst+3] = 0xFF
				}
			}
			resized := resize.Resize(uint(width), uint(height), img, resize.Bilinear)
			nrgba, ok := resized.(*image.NRGBA)
			if !ok {
				nrgba = imaging.Clone(resized)
			}
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					src := nrgba.PixOffset(x, y)
					dst := (i*height*width + y*width + x) * 3
					copy(out[dst:dst+3], nrgba.Pix[src:src+3])
				}
			}
		}
		return tensor.New(tensor.WithShape(b, height, width, 3), tensor.WithBacking(out)), nil
	}
}

// NormalizeTransform returns a batch transform that converts a (B, H, W, C)
// uint8 batch to a (B, C, H, W) float32 batch scaled into [0, 1], the layout
// most model runtimes expect.
func NormalizeTransform() BatchTransform {
	return func(batch *tensor.Dense, samples []string) (*tensor.Dense, error) {
		shape := batch.Shape()
		if len(shape) != 4 {
			return nil, errors.Errorf("need a (B, H, W, C) batch, got shape %v", shape)
		}
		if batch.Dtype() != tensor.Uint8 {
			return nil, errors.Errorf("need a uint8 batch, got %v", batch.Dtype())
		}
		b, h, w, c := shape[0], shape[1], shape[2], shape[3]
		data := batch.Data().([]uint8)
		out := make([]float32, len(data))
		for i := 0; i < b; i++ {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					for ch := 0; ch < c; ch++ {
						src := ((i*h+y)*w+x)*c + ch
						dst := ((i*c+ch)*h+y)*w + x
						out[dst] = float32(data[src]) / 255
					}
				}
			}
		}
		return tensor.New(tensor.WithShape(b, c, h, w), tensor.WithBacking(out)), nil
	}
}

func imageBatchDims(batch *tensor.Dense) (b, h, w int, err error) {
	shape := batch.Shape()
	if len(shape) != 4 || shape[3] != 3 {
		return 0, 0, 0, errors.Errorf("need a (B, H, W, 3) batch, got shape %v", shape)
	}
	if batch.Dtype() != tensor.Uint8 {
		return 0, 0, 0, errors.Errorf("need a uint8 batch, got %v", batch.Dtype())
	}
	return shape[0], shape[1], shape[2], nil
}
