package generator

import (
	"context"
	"math"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"seedfinder/internal/domain"
)

func newTestGenerator() *Generator {
	return New(zap.NewNop(), nil)
}

func TestSeedValue(t *testing.T) {
	assert.Equal(t, int64(123), SeedValue("123"))
	assert.Equal(t, int64(-42), SeedValue("-42"))
	// "a" hashes like Java's String.hashCode.
	assert.Equal(t, int64(97), SeedValue("a"))
	assert.Equal(t, int64(99162322), SeedValue("hello"))
}

func TestAreaIsDeterministic(t *testing.T) {
	g := newTestGenerator()
	req := domain.AreaRequest{Version: "1.20", Seed: "123", StartX: -8, StartY: 4, WidthX: 16, WidthY: 8, YHeight: 64}

	first, err := g.Area(context.Background(), req)
	require.NoError(t, err)
	second, err := g.Area(context.Background(), req)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Area() not deterministic (-first +second):\n%s", diff)
	}
	require.Len(t, first, 8)
	colors := make([]uint32, 0, len(DefaultPalette))
	for _, c := range DefaultPalette {
		colors = append(colors, c)
	}
	for _, row := range first {
		require.Len(t, row, 16)
		for _, c := range row {
			assert.True(t, slices.Contains(colors, c), "color %06X not in palette", c)
		}
	}
}

func TestAreaHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestGenerator().Area(ctx, domain.AreaRequest{Seed: "1", WidthX: 4, WidthY: 4})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEndCentreIsTheEnd(t *testing.T) {
	assert.Equal(t, "the_end", BiomeAt(1, domain.DimensionEnd, 10, -10, 64))
}

func TestSpawnIsChunkCentreOnLand(t *testing.T) {
	g := newTestGenerator()
	res := g.Spawn(domain.SpawnRequest{Version: "1.20", Seed: "123"})
	assert.Equal(t, 0, ((res.X-8)%16+16)%16)
	assert.Equal(t, 0, ((res.Z-8)%16+16)%16)
	assert.Equal(t, res, g.Spawn(domain.SpawnRequest{Version: "1.20", Seed: "123"}))
}

func TestStrongholdsFirstRing(t *testing.T) {
	res := newTestGenerator().Strongholds(domain.StrongholdRequest{Seed: "123", HowMany: 3})
	require.Len(t, res.Positions, 3)
	for _, p := range res.Positions {
		d := math.Hypot(float64(p.X), float64(p.Z))
		assert.GreaterOrEqual(t, d, 1279.0)
		assert.LessOrEqual(t, d, 2817.0)
	}
	assert.Empty(t, newTestGenerator().Strongholds(domain.StrongholdRequest{Seed: "1", HowMany: 0}).Positions)
}

func TestStructuresInRegions(t *testing.T) {
	g := newTestGenerator()
	res, err := g.StructuresInRegions(domain.RegionStructuresRequest{StructType: "fortress", Seed: "5", RegionsRange: 1, Dimension: domain.DimensionNether})
	require.NoError(t, err)
	// Fortresses ignore biomes, so every region has one.
	require.Len(t, res.Positions, 9)
	again, err := g.StructuresInRegions(domain.RegionStructuresRequest{StructType: "fortress", Seed: "5", RegionsRange: 1, Dimension: domain.DimensionNether})
	require.NoError(t, err)
	if diff := cmp.Diff(res, again); diff != "" {
		t.Errorf("StructuresInRegions() mismatch (-want +got):\n%s", diff)
	}
	for _, p := range res.Positions {
		assert.LessOrEqual(t, p.X, 432+432-64)
		assert.GreaterOrEqual(t, p.X, -432)
	}

	_, err = g.StructuresInRegions(domain.RegionStructuresRequest{StructType: "fortress", Dimension: domain.DimensionOverworld})
	assert.Error(t, err)
	_, err = g.StructuresInRegions(domain.RegionStructuresRequest{StructType: "castle"})
	assert.Error(t, err)
}

func TestFindStructuresWithinPartition(t *testing.T) {
	g := newTestGenerator()
	req := domain.StructureSearchRequest{StructType: "fortress", Range: 600, StartingSeed: 1000, SeedCount: 100, Dimension: domain.DimensionNether}

	res, err := g.FindStructures(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.GreaterOrEqual(t, res.Seed, int64(1000))
	assert.Less(t, res.Seed, int64(1100))
}

func TestFindStructuresExhaustsPartition(t *testing.T) {
	// End cities never generate inside the central island.
	req := domain.StructureSearchRequest{StructType: "end_city", Range: 100, SeedCount: 50, Dimension: domain.DimensionEnd}
	res, err := newTestGenerator().FindStructures(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.SeedResult{}, res)
}

func TestFindBiomes(t *testing.T) {
	g := newTestGenerator()
	req := domain.BiomeSearchRequest{Biomes: []string{"plains"}, WidthX: 2048, WidthZ: 2048, YHeight: 64, SeedCount: 1000}

	res, err := g.FindBiomes(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.True(t, containsBiomes(res.Seed, 0, 0, 0, 2048, 2048, 64, []string{"plains"}))

	_, err = g.FindBiomes(context.Background(), domain.BiomeSearchRequest{Biomes: []string{"volcano"}})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = g.FindBiomes(context.Background(), domain.BiomeSearchRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestSearchStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := domain.CombinedSearchRequest{StructType: "end_city", Biomes: []string{"the_end"}, Range: 100, Dimension: domain.DimensionEnd}
	_, err := newTestGenerator().FindBiomesWithStructures(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, -1, floorDiv(-1, 512))
	assert.Equal(t, 0, floorDiv(511, 512))
	assert.Equal(t, -2, floorDiv(-513, 512))
	assert.Equal(t, 1, floorDiv(512, 512))
}

func TestSearchPartitionAtTopOfSeedSpace(t *testing.T) {
	req := domain.StructureSearchRequest{
		StructType:   "fortress",
		Range:        600,
		StartingSeed: math.MaxInt64 - 10,
		SeedCount:    DefaultSearchSpan,
		Dimension:    domain.DimensionNether,
	}
	res, err := newTestGenerator().FindStructures(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.GreaterOrEqual(t, res.Seed, req.StartingSeed)
}
