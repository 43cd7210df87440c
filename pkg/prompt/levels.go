package prompt

import "math"

// Intensity level phrases, ordered from weakest to strongest. A slider value
// in [0,1] is quantized onto these with index = floor(value * (N-1)).
var defaultGlitchLevels = []string{
	"clean signal, no glitch artifacts",
	"subtle glitch accents, faint scanlines and slight pixel drift",
	"moderate glitch distortion, visible databending traces",
	"heavy glitch corruption, datamosh smears and chromatic aberration",
	"total signal breakdown, screaming pixel chaos, corrupted datastream",
}

var defaultChaosLevels = []string{
	"calm, ordered composition",
	"restless undercurrent, a touch of disorder",
	"unstable energy, jagged off-balance composition",
	"frenzied, overloaded, anarchic composition",
	"absolute chaos, everything burning at once",
}

// quantize maps value in [0,1] to an index into a level table of size n.
// Out-of-range values clamp to the nearest valid index; NaN maps to 0.
func quantize(value float64, n int) int {
	if n <= 1 {
		return 0
	}
	idx := int(math.Floor(value * float64(n-1)))
	if math.IsNaN(value) || idx < 0 {
		return 0
	}
	if idx > n-1 {
		return n - 1
	}
	return idx
}

func levelPhrase(value float64, levels []string) string {
	if len(levels) == 0 {
		return ""
	}
	return levels[quantize(value, len(levels))]
}
