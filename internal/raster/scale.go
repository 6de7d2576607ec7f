package raster

import "fmt"

const scaleEpsilon = 1e-8

// ScaleMinMax maps values from the fixed range [lo, hi] onto [0, 1]. Values
// outside the range are clipped first. The range must describe the
// radiometric resolution of the sensor, not the storage type: a 16-bit
// container holding 11-bit data is scaled with hi = 2047.
func ScaleMinMax[T Number](a *Array[T], lo, hi float64) (*Array[float32], error) {
	if hi <= lo {
		return nil, fmt.Errorf("invalid scale range [%g, %g]", lo, hi)
	}

	out := New[float32](a.rows, a.cols, a.bands)
	flo := float32(lo)
	den := float32(hi - lo + scaleEpsilon)
	for i, v := range a.data {
		f := float64(v)
		if f < lo {
			f = lo
		} else if f > hi {
			f = hi
		}
		out.data[i] = (float32(f) - flo) / den
	}
	return out, nil
}
