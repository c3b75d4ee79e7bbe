package repository

// Resolution is the candle period width used when bucketing a daily series.
type Resolution string

const (
	Res3D Resolution = "3D"
	Res1W Resolution = "1W"
	Res2W Resolution = "2W"
	Res1M Resolution = "1M"
)

// Days returns the period width in calendar days.
func (r Resolution) Days() int {
	switch r {
	case Res3D:
		return 3
	case Res1W:
		return 7
	case Res2W:
		return 14
	case Res1M:
		return 30
	default:
		return 0
	}
}

// IsValidResolution returns true if r is a supported resolution.
func IsValidResolution(r Resolution) bool {
	switch r {
	case Res3D, Res1W, Res2W, Res1M:
		return true
	default:
		return false
	}
}

// DefaultResolution returns the default resolution.
func DefaultResolution() Resolution { return Res3D }

// NormalizeResolution converts raw string to a valid resolution (or default).
func NormalizeResolution(s string) Resolution {
	if s == "" {
		return DefaultResolution()
	}
	r := Resolution(s)
	if IsValidResolution(r) {
		return r
	}
	return DefaultResolution()
}
