package ledger

import "strconv"

// Spots is an exact fractional count of contract spots.  A spot is
// worth the deal's max_seconds_per_spot airing seconds, so fractional
// consumption (a 15 second airing against a 30 second spot) is the
// norm.  The value is kept as an integer number of airing seconds over
// a fixed per-spot divisor; all arithmetic stays integral so repeated
// addition and subtraction never drifts the way floating decimals do.
// Floats appear only in String, which is display-only.
type Spots struct {
	seconds int64 // numerator, in airing seconds
	perSpot int64 // divisor, the deal's max seconds per spot
}

// SpotsFromSeconds builds a Spots value from raw airing seconds against
// the given per-spot divisor.
func SpotsFromSeconds(seconds int64, perSpot uint32) Spots {
	return Spots{seconds: seconds, perSpot: int64(perSpot)}
}

// SpotsFromCount builds a whole number of spots against the given
// per-spot divisor.
func SpotsFromCount(count uint32, perSpot uint32) Spots {
	return Spots{seconds: int64(count) * int64(perSpot), perSpot: int64(perSpot)}
}

// Seconds returns the value expressed in airing seconds.
func (s Spots) Seconds() int64 { return s.seconds }

// Add returns s + o.  Both values must share the same per-spot divisor,
// which holds for any values derived from one deal.
func (s Spots) Add(o Spots) Spots {
	return Spots{seconds: s.seconds + o.seconds, perSpot: s.perSpot}
}

// Sub returns s - o.  Both values must share the same per-spot divisor.
func (s Spots) Sub(o Spots) Spots {
	return Spots{seconds: s.seconds - o.seconds, perSpot: s.perSpot}
}

// Cmp compares s against o, returning -1, 0 or 1.  Both values must
// share the same per-spot divisor.
func (s Spots) Cmp(o Spots) int {
	switch {
	case s.seconds < o.seconds:
		return -1
	case s.seconds > o.seconds:
		return 1
	default:
		return 0
	}
}

// Negative reports whether the value is below zero spots.
func (s Spots) Negative() bool { return s.seconds < 0 }

// String renders the value as a decimal spot count for messages shown
// to operators, e.g. "4", "2.5" or "0.3333".  At most four decimals
// are kept; trailing zeros are trimmed.
func (s Spots) String() string {
	if s.perSpot == 0 {
		return "0"
	}
	if s.seconds%s.perSpot == 0 {
		return strconv.FormatInt(s.seconds/s.perSpot, 10)
	}
	v := strconv.FormatFloat(float64(s.seconds)/float64(s.perSpot), 'f', 4, 64)
	for len(v) > 0 && v[len(v)-1] == '0' {
		v = v[:len(v)-1]
	}
	if len(v) > 0 && v[len(v)-1] == '.' {
		v = v[:len(v)-1]
	}
	return v
}
