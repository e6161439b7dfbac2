package depthcloud

import (
	"testing"

	"go.viam.com/test"
)

func TestNewIntrinsicsFromFOV(t *testing.T) {
	params, err := NewIntrinsicsFromFOV(160, 120, 90)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, params.CheckValid(), test.ShouldBeNil)
	// tan(45°) == 1, so the focal length is half the width
	test.That(t, params.Fx, test.ShouldAlmostEqual, 80, 1e-9)
	test.That(t, params.Fy, test.ShouldAlmostEqual, 80, 1e-9)
	test.That(t, params.Ppx, test.ShouldEqual, 79.5)
	test.That(t, params.Ppy, test.ShouldEqual, 59.5)

	_, err = NewIntrinsicsFromFOV(0, 120, 90)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewIntrinsicsFromFOV(160, 120, 0)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewIntrinsicsFromFOV(160, 120, 180)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCheckValid(t *testing.T) {
	var nilParams *Intrinsics
	test.That(t, nilParams.CheckValid(), test.ShouldNotBeNil)

	bad := &Intrinsics{Width: 160, Height: 120, Fx: 0, Fy: 80, Ppx: 79.5, Ppy: 59.5}
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)

	bad = &Intrinsics{Width: 160, Height: 120, Fx: 80, Fy: 80, Ppx: -1, Ppy: 59.5}
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)
}

func TestProjectionRoundTrip(t *testing.T) {
	params, err := NewIntrinsicsFromFOV(160, 120, 90)
	test.That(t, err, test.ShouldBeNil)

	// the principal point projects onto the optical axis
	x, y, z := params.PixelToPoint(params.Ppx, params.Ppy, 2)
	test.That(t, x, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, y, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, z, test.ShouldEqual, 2.0)

	px, py := params.PointToPixel(params.PixelToPoint(40, 30, 1.5))
	test.That(t, px, test.ShouldEqual, 40.0)
	test.That(t, py, test.ShouldEqual, 30.0)

	// zero depth is flagged with out-of-bounds coordinates
	px, py = params.PointToPixel(1, 1, 0)
	test.That(t, px, test.ShouldEqual, -1.0)
	test.That(t, py, test.ShouldEqual, -1.0)
}

func TestCameraMatrix(t *testing.T) {
	params, err := NewIntrinsicsFromFOV(160, 120, 90)
	test.That(t, err, test.ShouldBeNil)

	m := params.Matrix()
	test.That(t, m.At(0, 0), test.ShouldAlmostEqual, 80, 1e-9)
	test.That(t, m.At(1, 1), test.ShouldAlmostEqual, 80, 1e-9)
	test.That(t, m.At(0, 2), test.ShouldEqual, 79.5)
	test.That(t, m.At(1, 2), test.ShouldEqual, 59.5)
	test.That(t, m.At(2, 2), test.ShouldEqual, 1.0)
	test.That(t, m.At(1, 0), test.ShouldEqual, 0.0)
}
