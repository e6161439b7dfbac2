// Package main generates the reference point cloud assets for a simulated
// tactile sensor: it projects a background depth map through pinhole
// intrinsics derived from the sensor's field of view and writes the camera
// matrix plus the raw and aperture-masked clouds as npy files.
package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/edaniels/golog"
	"gorgonia.org/tensor"

	"github.com/zk-yue/geltip-simulation/depthcloud"
)

var logger = golog.NewDevelopmentLogger("cloudgen")

func main() {
	if err := realMain(); err != nil {
		logger.Fatal(err)
	}
}

func realMain() error {
	assets := flag.String("assets", "experimental_setup/geltip/sim_assets", "sensor asset directory")
	depthName := flag.String("depth", "bkg.npy", "background depth map file inside the asset directory")
	width := flag.Int("width", 160, "cloud width in pixels")
	height := flag.Int("height", 120, "cloud height in pixels")
	fov := flag.Float64("fov", 90, "camera field of view in degrees")
	writePCD := flag.Bool("pcd", false, "also write the masked cloud as an ASCII PCD for viewing")
	flag.Parse()

	dm, err := depthcloud.ReadDepthMapNpy(filepath.Join(*assets, *depthName))
	if err != nil {
		return err
	}
	dm = dm.Resize(*width, *height)

	params, err := depthcloud.NewIntrinsicsFromFOV(*width, *height, *fov)
	if err != nil {
		return err
	}

	raw, err := depthcloud.CloudFromDepth(params, dm)
	if err != nil {
		return err
	}

	masked, err := dm.ApplyMask(depthcloud.CircleMask(*width, *height))
	if err != nil {
		return err
	}
	clean, err := depthcloud.CloudFromDepth(params, masked)
	if err != nil {
		return err
	}
	logger.Infof("projected %d raw points, %d inside the aperture", raw.Size(), clean.Size())

	prefix := fmt.Sprintf("%dx%d", *width, *height)
	outputs := []struct {
		name string
		data *tensor.Dense
	}{
		{prefix + "_camera_matrix.npy", depthcloud.MatrixToTensor(params.Matrix())},
		{prefix + "_ref_cloud.npy", raw.ToTensor()},
		{prefix + "_ref_cloud_clean.npy", clean.ToTensor()},
	}
	for _, out := range outputs {
		path := filepath.Join(*assets, out.name)
		if err := depthcloud.WriteTensorNpy(path, out.data); err != nil {
			return err
		}
		logger.Infof("wrote %s", path)
	}

	if *writePCD {
		path := filepath.Join(*assets, prefix+"_ref_cloud_clean.pcd")
		if err := clean.WritePCDFile(path, logger); err != nil {
			return err
		}
		logger.Infof("wrote %s, open it with any PCD viewer", path)
	}
	return nil
}
