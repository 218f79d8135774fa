package generator

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"seedfinder/internal/domain"
)

// DefaultSearchSpan bounds a partition whose request carries no seed count.
const DefaultSearchSpan int64 = 1_000_000

// checkEvery is how many candidate seeds are tried between cancellation checks.
const checkEvery = 256

// FindBiomes scans the request's seed partition for the first seed whose
// area contains every requested biome.
func (g *Generator) FindBiomes(ctx context.Context, req domain.BiomeSearchRequest) (domain.SeedResult, error) {
	if err := validateBiomes(req.Biomes); err != nil {
		return domain.SeedResult{}, err
	}
	return g.scan(ctx, req.StartingSeed, req.SeedCount, func(seed int64) bool {
		return containsBiomes(seed, req.Dimension, req.X, req.Z, req.WidthX, req.WidthZ, req.YHeight, req.Biomes)
	})
}

// FindStructures scans for the first seed with a structure of the requested
// type within Range blocks of (X, Z).
func (g *Generator) FindStructures(ctx context.Context, req domain.StructureSearchRequest) (domain.SeedResult, error) {
	st, err := lookupStructure(req.StructType, req.Dimension)
	if err != nil {
		return domain.SeedResult{}, err
	}
	return g.scan(ctx, req.StartingSeed, req.SeedCount, func(seed int64) bool {
		return st.nearWithin(seed, req.X, req.Z, req.Range)
	})
}

// FindBiomesWithStructures needs both: the structure within Range and every
// biome inside the square of side 2*Range around (X, Z).
func (g *Generator) FindBiomesWithStructures(ctx context.Context, req domain.CombinedSearchRequest) (domain.SeedResult, error) {
	st, err := lookupStructure(req.StructType, req.Dimension)
	if err != nil {
		return domain.SeedResult{}, err
	}
	if err := validateBiomes(req.Biomes); err != nil {
		return domain.SeedResult{}, err
	}
	side := 2 * req.Range
	return g.scan(ctx, req.StartingSeed, req.SeedCount, func(seed int64) bool {
		return st.nearWithin(seed, req.X, req.Z, req.Range) &&
			containsBiomes(seed, req.Dimension, req.X-req.Range, req.Z-req.Range, side, side, req.YHeight, req.Biomes)
	})
}

func (g *Generator) scan(ctx context.Context, start, count int64, match func(seed int64) bool) (domain.SeedResult, error) {
	if count <= 0 {
		count = DefaultSearchSpan
	}
	end := start + count
	if end < start {
		end = math.MaxInt64
	}
	for seed := start; seed < end; seed++ {
		if (seed-start)%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return domain.SeedResult{}, err
			}
		}
		if match(seed) {
			g.logger.Debug("Seed found",
				zap.Int64("seed", seed),
				zap.Int64("tried", seed-start+1))
			return domain.SeedResult{Seed: seed, Found: true}, nil
		}
	}
	return domain.SeedResult{}, nil
}

// containsBiomes samples the block rectangle starting at (x, z) on a coarse
// grid and reports whether every wanted biome shows up.
func containsBiomes(seed int64, dimension, x, z, widthX, widthZ, yHeight int, wanted []string) bool {
	missing := make(map[string]bool, len(wanted))
	for _, b := range wanted {
		missing[b] = true
	}
	step := max(16, max(widthX, widthZ)/32)
	for dz := 0; dz <= widthZ; dz += step {
		for dx := 0; dx <= widthX; dx += step {
			delete(missing, BiomeAt(seed, dimension, x+dx, z+dz, yHeight))
			if len(missing) == 0 {
				return true
			}
		}
	}
	return false
}

func validateBiomes(biomes []string) error {
	if len(biomes) == 0 {
		return fmt.Errorf("no biomes requested: %w", domain.ErrInvalidRequest)
	}
	for _, b := range biomes {
		if _, ok := DefaultPalette[b]; !ok {
			return fmt.Errorf("unknown biome %q: %w", b, domain.ErrInvalidRequest)
		}
	}
	return nil
}
