package generator

import (
	"fmt"
	"slices"

	"seedfinder/internal/domain"
)

// structureType describes where one kind of structure may generate. Every
// region of spacing x spacing blocks holds at most one attempt.
type structureType struct {
	spacing    int
	separation int
	salt       uint64
	dimension  int
	biomes     []string
}

var structureTypes = map[string]structureType{
	"village":        {spacing: 512, separation: 128, salt: 10387312, biomes: []string{"plains", "desert", "savanna", "taiga", "snowy_plains"}},
	"desert_pyramid": {spacing: 512, separation: 128, salt: 14357617, biomes: []string{"desert"}},
	"jungle_temple":  {spacing: 512, separation: 128, salt: 14357619, biomes: []string{"jungle"}},
	"swamp_hut":      {spacing: 512, separation: 128, salt: 14357620, biomes: []string{"swamp"}},
	"ocean_monument": {spacing: 512, separation: 80, salt: 10387313, biomes: []string{"ocean"}},
	"fortress":       {spacing: 432, separation: 64, salt: 30084232, dimension: domain.DimensionNether},
	"bastion":        {spacing: 432, separation: 64, salt: 30084233, dimension: domain.DimensionNether, biomes: []string{"nether_wastes", "crimson_forest", "warped_forest", "soul_sand_valley"}},
	"end_city":       {spacing: 320, separation: 176, salt: 10387313 ^ 0xE17D, dimension: domain.DimensionEnd, biomes: []string{"end_highlands", "end_midlands"}},
}

// StructureTypes lists the supported structure names in sorted order.
func StructureTypes() []string {
	names := make([]string, 0, len(structureTypes))
	for name := range structureTypes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func lookupStructure(name string, dimension int) (structureType, error) {
	st, ok := structureTypes[name]
	if !ok {
		return st, fmt.Errorf("unknown structure type %q", name)
	}
	if st.dimension != dimension {
		return st, fmt.Errorf("structure %q does not generate in dimension %d", name, dimension)
	}
	return st, nil
}

// attempt returns the structure position of region (rx, rz) and whether the
// biome there lets it generate.
func (st structureType) attempt(seed int64, rx, rz int) (domain.Pos, bool) {
	h := hash3(seed, rx, rz, st.salt)
	span := uint64(st.spacing - st.separation)
	pos := domain.Pos{
		X: rx*st.spacing + int(h%span),
		Z: rz*st.spacing + int((h>>32)%span),
	}
	if len(st.biomes) == 0 {
		return pos, true
	}
	biome := BiomeAt(seed, st.dimension, pos.X, pos.Z, 64)
	return pos, slices.Contains(st.biomes, biome)
}

// nearWithin reports whether a structure of this type generates within
// radius blocks of (x, z).
func (st structureType) nearWithin(seed int64, x, z, radius int) bool {
	r2 := radius * radius
	for rx := floorDiv(x-radius, st.spacing); rx <= floorDiv(x+radius, st.spacing); rx++ {
		for rz := floorDiv(z-radius, st.spacing); rz <= floorDiv(z+radius, st.spacing); rz++ {
			pos, ok := st.attempt(seed, rx, rz)
			if !ok {
				continue
			}
			dx, dz := pos.X-x, pos.Z-z
			if dx*dx+dz*dz <= r2 {
				return true
			}
		}
	}
	return false
}

// StructuresInRegions lists every generating structure in the square of
// regions [-RegionsRange, RegionsRange] around the origin.
func (g *Generator) StructuresInRegions(req domain.RegionStructuresRequest) (domain.RegionStructuresResult, error) {
	st, err := lookupStructure(req.StructType, req.Dimension)
	if err != nil {
		return domain.RegionStructuresResult{}, err
	}
	seed := SeedValue(req.Seed)
	positions := []domain.Pos{}
	for rx := -req.RegionsRange; rx <= req.RegionsRange; rx++ {
		for rz := -req.RegionsRange; rz <= req.RegionsRange; rz++ {
			if pos, ok := st.attempt(seed, rx, rz); ok {
				positions = append(positions, pos)
			}
		}
	}
	return domain.RegionStructuresResult{Positions: positions}, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
