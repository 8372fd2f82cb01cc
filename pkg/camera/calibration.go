package camera

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Calibration holds the intrinsic parameters of the scene camera: a 3x3
// camera matrix in row-major order and five distortion coefficients
// (k1, k2, p1, p2, k3).
type Calibration struct {
	matrix [9]float64
	dist   [5]float64
}

// NewCalibration validates and builds a calibration. Focal lengths must be
// positive; everything else is taken as calibrated.
func NewCalibration(matrix [9]float64, dist [5]float64) (Calibration, error) {
	if matrix[0] <= 0 || matrix[4] <= 0 {
		return Calibration{}, fmt.Errorf("invalid calibration: focal lengths fx=%v fy=%v must be positive", matrix[0], matrix[4])
	}
	return Calibration{matrix: matrix, dist: dist}, nil
}

// FocalX returns the fx entry of the camera matrix.
func (c Calibration) FocalX() float64 { return c.matrix[0] }

// FocalY returns the fy entry of the camera matrix.
func (c Calibration) FocalY() float64 { return c.matrix[4] }

// PrincipalPoint returns (cx, cy).
func (c Calibration) PrincipalPoint() (float64, float64) {
	return c.matrix[2], c.matrix[5]
}

// cameraMat builds the 3x3 CV_64F camera matrix. Caller must Close it.
func (c Calibration) cameraMat() gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.SetDoubleAt(i, j, c.matrix[i*3+j])
		}
	}
	return m
}

// distMat builds the 1x5 CV_64F distortion vector. Caller must Close it.
func (c Calibration) distMat() gocv.Mat {
	m := gocv.NewMatWithSize(1, 5, gocv.MatTypeCV64F)
	for i, v := range c.dist {
		m.SetDoubleAt(0, i, v)
	}
	return m
}
