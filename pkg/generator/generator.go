package generator

import (
	"context"
	"maps"
	"math"
	"math/rand"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"seedfinder/internal/domain"
)

// AreaScale is the number of blocks covered by one cell of a rendered area.
const AreaScale = 4

// DefaultPalette is used when no palette file is configured.
var DefaultPalette = domain.Palette{
	"ocean":             0x000070,
	"plains":            0x8DB360,
	"desert":            0xFA9418,
	"forest":            0x056621,
	"taiga":             0x0B6659,
	"snowy_plains":      0xFFFFFF,
	"jungle":            0x537B09,
	"savanna":           0xBDB25F,
	"swamp":             0x07F9B2,
	"mountains":         0x606060,
	"nether_wastes":     0xBF3B3B,
	"crimson_forest":    0xDD0808,
	"warped_forest":     0x49907B,
	"soul_sand_valley":  0x5E3830,
	"basalt_deltas":     0x403636,
	"the_end":           0x8080FF,
	"end_highlands":     0xB5B2FF,
	"end_midlands":      0x9C99E5,
	"small_end_islands": 0x4B4BAB,
}

type Generator struct {
	logger  *zap.Logger
	palette domain.Palette
}

func New(logger *zap.Logger, palette domain.Palette) *Generator {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &Generator{logger: logger, palette: palette}
}

func (g *Generator) Colors() domain.Palette {
	return maps.Clone(g.palette)
}

// BiomeAt classifies the block column at (x, z). yHeight only matters in the
// overworld, where high sampling heights turn cold land into mountains.
func BiomeAt(seed int64, dimension, x, z, yHeight int) string {
	t := valueNoise(seed, x, z, 256, saltTemperature)
	h := valueNoise(seed, x, z, 256, saltHumidity)
	return classify(seed, dimension, x, z, yHeight, t, h)
}

func classify(seed int64, dimension, x, z, yHeight int, t, h float64) string {
	switch dimension {
	case domain.DimensionNether:
		switch {
		case t > 0.65:
			return "crimson_forest"
		case t < 0.3:
			return "warped_forest"
		case h > 0.7:
			return "soul_sand_valley"
		case h < 0.25:
			return "basalt_deltas"
		}
		return "nether_wastes"

	case domain.DimensionEnd:
		if x*x+z*z < 1000*1000 {
			return "the_end"
		}
		switch {
		case h > 0.6:
			return "end_highlands"
		case h > 0.4:
			return "end_midlands"
		}
		return "small_end_islands"
	}

	if valueNoise(seed, x, z, 512, saltContinent) < 0.3 {
		return "ocean"
	}
	if yHeight >= 128 && valueNoise(seed, x, z, 128, saltElevation) > 0.6 {
		return "mountains"
	}
	switch {
	case t < 0.2:
		return "snowy_plains"
	case t < 0.4:
		if h > 0.5 {
			return "taiga"
		}
		return "plains"
	case t < 0.65:
		switch {
		case h > 0.75:
			return "swamp"
		case h > 0.45:
			return "forest"
		}
		return "plains"
	}
	switch {
	case h > 0.6:
		return "jungle"
	case h > 0.35:
		return "savanna"
	}
	return "desert"
}

// Area renders WidthY rows of WidthX cells starting at (StartX, StartY), in
// cell units of AreaScale blocks.
func (g *Generator) Area(ctx context.Context, req domain.AreaRequest) (domain.ColorGrid, error) {
	if req.WidthX <= 0 || req.WidthY <= 0 {
		return domain.ColorGrid{}, nil
	}
	seed := SeedValue(req.Seed)

	// Климатические поля считаем целиком, затем классифицируем по точкам
	temperature := mat.NewDense(req.WidthY, req.WidthX, nil)
	humidity := mat.NewDense(req.WidthY, req.WidthX, nil)
	for i := range req.WidthY {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		z := (req.StartY + i) * AreaScale
		for j := range req.WidthX {
			x := (req.StartX + j) * AreaScale
			temperature.Set(i, j, valueNoise(seed, x, z, 256, saltTemperature))
			humidity.Set(i, j, valueNoise(seed, x, z, 256, saltHumidity))
		}
	}

	grid := make(domain.ColorGrid, req.WidthY)
	for i := range req.WidthY {
		grid[i] = make([]uint32, req.WidthX)
		z := (req.StartY + i) * AreaScale
		for j := range req.WidthX {
			x := (req.StartX + j) * AreaScale
			biome := classify(seed, req.Dimension, x, z, req.YHeight, temperature.At(i, j), humidity.At(i, j))
			grid[i][j] = g.palette[biome]
		}
	}

	g.logger.Debug("Area rendered",
		zap.String("seed", req.Seed),
		zap.Int("rows", req.WidthY),
		zap.Int("cols", req.WidthX),
		zap.Float64("max_temperature", mat.Max(temperature)))
	return grid, nil
}

var spawnBlocked = map[string]bool{
	"ocean":     true,
	"mountains": true,
}

// Spawn walks outward from the origin in chunk steps and returns the centre
// of the first chunk whose biome can host the world spawn.
func (g *Generator) Spawn(req domain.SpawnRequest) domain.SpawnResult {
	seed := SeedValue(req.Seed)
	for radius := 0; radius <= 16; radius++ {
		for dx := -radius; dx <= radius; dx++ {
			for dz := -radius; dz <= radius; dz++ {
				if max(abs(dx), abs(dz)) != radius {
					continue
				}
				x, z := dx*16+8, dz*16+8
				if !spawnBlocked[BiomeAt(seed, domain.DimensionOverworld, x, z, 64)] {
					return domain.SpawnResult{X: x, Z: z}
				}
			}
		}
	}
	return domain.SpawnResult{X: 8, Z: 8}
}

var strongholdRings = []int{3, 6, 10, 15, 21, 28, 36, 9}

// Strongholds places the first HowMany strongholds on concentric rings
// around the origin.
func (g *Generator) Strongholds(req domain.StrongholdRequest) domain.StrongholdResult {
	rng := rand.New(rand.NewSource(SeedValue(req.Seed)))
	positions := make([]domain.Pos, 0, max(0, req.HowMany))
	angle := rng.Float64() * 2 * math.Pi
	for ring, count := range strongholdRings {
		inner := 1280.0 + float64(ring)*3072.0
		for range count {
			if len(positions) >= req.HowMany {
				return domain.StrongholdResult{Positions: positions}
			}
			dist := inner + rng.Float64()*1536.0
			positions = append(positions, domain.Pos{
				X: int(math.Round(math.Cos(angle) * dist)),
				Z: int(math.Round(math.Sin(angle) * dist)),
			})
			angle += 2 * math.Pi / float64(count)
		}
		angle += rng.Float64() * math.Pi / float64(count)
	}
	return domain.StrongholdResult{Positions: positions}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
