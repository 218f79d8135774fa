package main

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"seedfinder/internal/app"
	"seedfinder/internal/domain"
)

type jobRunner struct {
	logger *zap.Logger
	queue  *app.Queue
	writer domain.GridWriter
	outDir string
}

func newJobRunner(logger *zap.Logger, queue *app.Queue, writer domain.GridWriter, outDir string) *jobRunner {
	return &jobRunner{logger: logger, queue: queue, writer: writer, outDir: outDir}
}

// submit hands job to the queue; done runs once its result has been handled.
func (r *jobRunner) submit(job domain.Job, done func()) error {
	log := r.logger.With(zap.String("job", job.Name), zap.String("kind", job.Kind))
	onSeed := func(res domain.SeedResult) {
		defer done()
		if !res.Found {
			log.Info("No matching seed in searched range", zap.Int64("from", job.StartSeed))
			return
		}
		log.Info("Seed found", zap.Int64("seed", res.Seed))
	}

	switch job.Kind {
	case "area":
		req := domain.AreaRequest{
			Version:   job.Version,
			Seed:      job.Seed,
			StartX:    job.X,
			StartY:    job.Z,
			WidthX:    job.WidthX,
			WidthY:    job.WidthZ,
			Dimension: job.Dimension,
			YHeight:   job.YHeight,
		}
		return r.queue.SubmitAreaRender(req, func(grid domain.ColorGrid) {
			defer done()
			filename := filepath.Join(r.outDir, job.Name+".txt")
			if err := r.writer.WriteGrid(filename, req, grid); err != nil {
				log.Error("Failed to write area", zap.String("file", filename), zap.Error(err))
				return
			}
			log.Info("Area written", zap.String("file", filename))
		}, job.Force)

	case "spawn":
		return r.queue.SubmitSpawnLookup(domain.SpawnRequest{Version: job.Version, Seed: job.Seed}, func(x, z int) {
			defer done()
			log.Info("Spawn point", zap.Int("x", x), zap.Int("z", z))
		})

	case "strongholds":
		req := domain.StrongholdRequest{Version: job.Version, Seed: job.Seed, HowMany: job.HowMany}
		return r.queue.SubmitStrongholdLookup(req, func(res domain.StrongholdResult) {
			defer done()
			log.Info("Strongholds", zap.Any("positions", res.Positions))
		})

	case "regions":
		req := domain.RegionStructuresRequest{
			Version:      job.Version,
			StructType:   job.StructType,
			Seed:         job.Seed,
			RegionsRange: job.Range,
			Dimension:    job.Dimension,
		}
		return r.queue.SubmitRegionStructureLookup(req, func(res domain.RegionStructuresResult) {
			defer done()
			log.Info("Structures in regions", zap.Int("count", len(res.Positions)), zap.Any("positions", res.Positions))
		})

	case "biomes":
		req := domain.BiomeSearchRequest{
			Version:      job.Version,
			Biomes:       job.Biomes,
			X:            job.X,
			Z:            job.Z,
			WidthX:       job.WidthX,
			WidthZ:       job.WidthZ,
			StartingSeed: job.StartSeed,
			Dimension:    job.Dimension,
			YHeight:      job.YHeight,
		}
		return r.queue.SubmitBiomeSearch(req, job.Threads, onSeed)

	case "structures":
		req := domain.StructureSearchRequest{
			Version:      job.Version,
			StructType:   job.StructType,
			X:            job.X,
			Z:            job.Z,
			Range:        job.Range,
			StartingSeed: job.StartSeed,
			Dimension:    job.Dimension,
		}
		return r.queue.SubmitStructureSearch(req, job.Threads, onSeed)

	case "combined":
		req := domain.CombinedSearchRequest{
			Version:      job.Version,
			StructType:   job.StructType,
			Biomes:       job.Biomes,
			X:            job.X,
			Z:            job.Z,
			Range:        job.Range,
			StartingSeed: job.StartSeed,
			Dimension:    job.Dimension,
			YHeight:      job.YHeight,
		}
		return r.queue.SubmitCombinedSearch(req, job.Threads, onSeed)
	}
	return fmt.Errorf("unknown job kind %q: %w", job.Kind, domain.ErrInvalidRequest)
}
