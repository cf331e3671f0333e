package tape

const (
	satBypassEps  = 0.001
	satDriveRange = 5.0

	// Different curvature for the two polarities; the mismatch produces the
	// dominant 2nd-harmonic character of tape saturation.
	satPositiveCurve = 1.25
	satNegativeCurve = 0.85
)

// saturate applies the asymmetric record-head soft clip. Each polarity is
// normalised to unity small-signal gain, so quiet material passes through
// untouched at any drive.
func saturate(x, amount float64) float64 {
	if amount < satBypassEps {
		return x
	}

	drive := 1 + amount*satDriveRange
	d := x * drive
	if d >= 0 {
		return tanhShape(d*satPositiveCurve) / (drive * satPositiveCurve)
	}
	return tanhShape(d*satNegativeCurve) / (drive * satNegativeCurve)
}
