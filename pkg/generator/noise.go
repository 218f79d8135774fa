package generator

import (
	"math"
	"strconv"
)

const (
	saltTemperature = 0x5DEECE66D
	saltHumidity    = 0x2545F4914F6CDD1D
	saltContinent   = 0x9E3779B97F4A7C15
	saltElevation   = 0x3C6EF372FE94F82B
)

// SeedValue turns a textual seed into its numeric form: integers are used as
// is, anything else is hashed the way Java hashes strings.
func SeedValue(seed string) int64 {
	if v, err := strconv.ParseInt(seed, 10, 64); err == nil {
		return v
	}
	var h int32
	for _, r := range seed {
		h = 31*h + int32(r)
	}
	return int64(h)
}

func mix(v uint64) uint64 {
	v ^= v >> 30
	v *= 0xBF58476D1CE4E5B9
	v ^= v >> 27
	v *= 0x94D049BB133111EB
	v ^= v >> 31
	return v
}

func hash3(seed int64, x, z int, salt uint64) uint64 {
	h := mix(uint64(seed) ^ salt)
	h = mix(h ^ uint64(int64(x))*0x9E3779B97F4A7C15)
	return mix(h ^ uint64(int64(z))*0xC2B2AE3D27D4EB4F)
}

func unit(h uint64) float64 {
	return float64(h>>11) / float64(1<<53)
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

// valueNoise returns a smooth value in [0,1) over a lattice of the given
// scale in blocks.
func valueNoise(seed int64, x, z, scale int, salt uint64) float64 {
	fx := float64(x) / float64(scale)
	fz := float64(z) / float64(scale)
	x0, z0 := int(math.Floor(fx)), int(math.Floor(fz))
	tx, tz := smooth(fx-float64(x0)), smooth(fz-float64(z0))

	v00 := unit(hash3(seed, x0, z0, salt))
	v10 := unit(hash3(seed, x0+1, z0, salt))
	v01 := unit(hash3(seed, x0, z0+1, salt))
	v11 := unit(hash3(seed, x0+1, z0+1, salt))

	top := v00 + (v10-v00)*tx
	bottom := v01 + (v11-v01)*tx
	return top + (bottom-top)*tz
}
