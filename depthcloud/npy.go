package depthcloud

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// ReadTensorNpy loads a tensor from a .npy file.
func ReadTensorNpy(path string) (*tensor.Dense, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %q", path)
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	d := new(tensor.Dense)
	if err := d.ReadNpy(f); err != nil {
		return nil, errors.Wrapf(err, "cannot parse npy file %q", path)
	}
	return d, nil
}

// WriteTensorNpy saves a tensor to a .npy file.
func WriteTensorNpy(path string, d *tensor.Dense) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create %q", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if err := d.WriteNpy(f); err != nil {
		return errors.Wrapf(err, "cannot write npy file %q", path)
	}
	return nil
}

// MatrixToTensor copies a gonum matrix into a float64 tensor of the same
// dimensions, for npy interchange.
func MatrixToTensor(m mat.Matrix) *tensor.Dense {
	rows, cols := m.Dims()
	backing := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			backing = append(backing, m.At(i, j))
		}
	}
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing))
}
