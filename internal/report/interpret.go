package report

import "math"

// Stars returns the conventional significance marker for p.
func Stars(p float64) string {
	switch {
	case math.IsNaN(p):
		return "ns"
	case p < 0.001:
		return "***"
	case p < 0.01:
		return "**"
	case p < 0.05:
		return "*"
	default:
		return "ns"
	}
}

// EtaLabel names the magnitude of a partial η².
func EtaLabel(es float64) string {
	switch {
	case es >= 0.14:
		return "large"
	case es >= 0.06:
		return "medium"
	case es >= 0.01:
		return "small"
	default:
		return "negligible"
	}
}

// DeltaLabel names the magnitude of a Cliff's δ.
func DeltaLabel(delta float64) string {
	d := math.Abs(delta)
	switch {
	case d < 0.147:
		return "negligible"
	case d < 0.33:
		return "small"
	case d < 0.474:
		return "medium"
	default:
		return "large"
	}
}
