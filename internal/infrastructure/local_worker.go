package infrastructure

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"seedfinder/internal/domain"
	"seedfinder/pkg/generator"
)

var (
	ErrWorkerTerminated = errors.New("worker terminated")
	ErrInboxFull        = errors.New("worker inbox full")
)

const inboxSize = 8

// LocalSpawner starts workers as goroutines in this process.
type LocalSpawner struct {
	logger      *zap.Logger
	reader      domain.PaletteReader
	paletteFile string
}

func NewLocalSpawner(logger *zap.Logger, reader domain.PaletteReader, paletteFile string) *LocalSpawner {
	return &LocalSpawner{logger: logger, reader: reader, paletteFile: paletteFile}
}

func (s *LocalSpawner) Spawn(name string) domain.Worker {
	return StartLocalWorker(s.logger.With(zap.String("worker", name)), name, s.reader, s.paletteFile)
}

// LocalWorker runs one generator on its own goroutine. Requests are served
// one at a time in arrival order.
type LocalWorker struct {
	name        string
	logger      *zap.Logger
	reader      domain.PaletteReader
	paletteFile string
	inbox       chan domain.Message
	out         chan domain.Message
	ctx         context.Context
	stop        context.CancelFunc

	gen    *generator.Generator
	loaded string

	mu         sync.Mutex
	cancelUpTo uint64
	current    uint64
	cancelCur  context.CancelFunc
}

func StartLocalWorker(logger *zap.Logger, name string, reader domain.PaletteReader, paletteFile string) *LocalWorker {
	ctx, stop := context.WithCancel(context.Background())
	w := &LocalWorker{
		name:        name,
		logger:      logger,
		reader:      reader,
		paletteFile: paletteFile,
		inbox:       make(chan domain.Message, inboxSize),
		out:         make(chan domain.Message, inboxSize),
		ctx:         ctx,
		stop:        stop,
	}
	go w.run()
	return w
}

func (w *LocalWorker) Name() string {
	return w.name
}

func (w *LocalWorker) Post(msg domain.Message) error {
	if w.ctx.Err() != nil {
		return ErrWorkerTerminated
	}
	select {
	case w.inbox <- msg:
		return nil
	default:
		return ErrInboxFull
	}
}

func (w *LocalWorker) Messages() <-chan domain.Message {
	return w.out
}

func (w *LocalWorker) Cancel(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id > w.cancelUpTo {
		w.cancelUpTo = id
	}
	if w.cancelCur != nil && w.current <= id {
		w.cancelCur()
	}
}

func (w *LocalWorker) Terminate() {
	w.stop()
}

func (w *LocalWorker) run() {
	defer close(w.out)

	palette := generator.DefaultPalette
	if w.paletteFile != "" && w.reader != nil {
		p, err := w.reader.ReadPalette(w.paletteFile)
		if err != nil {
			w.logger.Warn("Falling back to default palette", zap.Error(err))
		} else {
			palette = p
		}
	}
	w.gen = generator.New(w.logger, palette)
	if !w.emit(domain.Message{Kind: domain.KindLoadingDone}) {
		return
	}

	for {
		select {
		case <-w.ctx.Done():
			return
		case msg := <-w.inbox:
			w.serve(msg)
		}
	}
}

func (w *LocalWorker) serve(msg domain.Message) {
	ctx, ok := w.begin(msg.ID)
	if !ok {
		w.logger.Debug("Skipping cancelled request", zap.Uint64("id", msg.ID))
		return
	}
	defer w.end()

	reply, payload, err := w.handle(ctx, msg)
	if ctx.Err() != nil {
		w.logger.Debug("Request cancelled", zap.String("kind", string(msg.Kind)), zap.Uint64("id", msg.ID))
		return
	}
	if err != nil {
		// A failed request still completes so the queue can reuse the worker.
		w.logger.Warn("Request failed", zap.String("kind", string(msg.Kind)), zap.Error(err))
	}
	if reply == "" {
		return
	}
	out, err := domain.NewMessage(reply, msg.ID, payload)
	if err != nil {
		w.logger.Error("Failed to encode reply", zap.Error(err))
		out = domain.Message{Kind: reply, ID: msg.ID}
	}
	w.emit(out)
}

func (w *LocalWorker) begin(id uint64) (context.Context, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id != 0 && id <= w.cancelUpTo {
		return nil, false
	}
	ctx, cancel := context.WithCancel(w.ctx)
	w.current = id
	w.cancelCur = cancel
	return ctx, true
}

func (w *LocalWorker) end() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelCur != nil {
		w.cancelCur()
	}
	w.current = 0
	w.cancelCur = nil
}

// handle runs one request and returns the reply kind and payload. An unknown
// request kind yields no reply.
func (w *LocalWorker) handle(ctx context.Context, msg domain.Message) (domain.Kind, any, error) {
	reply, ok := domain.ReplyKind(msg.Kind)
	if !ok {
		return "", nil, &domain.KindError{Kind: msg.Kind, Err: domain.ErrUnknownKind}
	}

	switch msg.Kind {
	case domain.KindGetColors:
		return reply, domain.ColorsResult{Colors: w.gen.Colors()}, nil

	case domain.KindGetArea:
		var req domain.AreaRequest
		if err := msg.Decode(&req); err != nil {
			return reply, domain.AreaResult{}, err
		}
		w.useSeed(req.Version, req.Seed)
		grid, err := w.gen.Area(ctx, req)
		return reply, domain.AreaResult{AreaRequest: req, Colors: grid}, err

	case domain.KindGetSpawn:
		var req domain.SpawnRequest
		if err := msg.Decode(&req); err != nil {
			return reply, domain.SpawnResult{}, err
		}
		w.useSeed(req.Version, req.Seed)
		return reply, w.gen.Spawn(req), nil

	case domain.KindGetStrongholds:
		var req domain.StrongholdRequest
		if err := msg.Decode(&req); err != nil {
			return reply, domain.StrongholdResult{}, err
		}
		w.useSeed(req.Version, req.Seed)
		return reply, w.gen.Strongholds(req), nil

	case domain.KindGetStructuresInRegions:
		var req domain.RegionStructuresRequest
		if err := msg.Decode(&req); err != nil {
			return reply, domain.RegionStructuresResult{}, err
		}
		w.useSeed(req.Version, req.Seed)
		res, err := w.gen.StructuresInRegions(req)
		return reply, res, err

	case domain.KindGetBiomes:
		var req domain.BiomeSearchRequest
		if err := msg.Decode(&req); err != nil {
			return reply, domain.SeedResult{}, err
		}
		res, err := w.gen.FindBiomes(ctx, req)
		return reply, res, err

	case domain.KindFindStructures:
		var req domain.StructureSearchRequest
		if err := msg.Decode(&req); err != nil {
			return reply, domain.SeedResult{}, err
		}
		res, err := w.gen.FindStructures(ctx, req)
		return reply, res, err

	case domain.KindGetBiomesWithStructures:
		var req domain.CombinedSearchRequest
		if err := msg.Decode(&req); err != nil {
			return reply, domain.SeedResult{}, err
		}
		res, err := w.gen.FindBiomesWithStructures(ctx, req)
		return reply, res, err
	}
	return "", nil, &domain.KindError{Kind: msg.Kind, Err: domain.ErrUnknownKind}
}

// useSeed switches the loaded world context and tells the queue about it.
func (w *LocalWorker) useSeed(version, seed string) {
	key := version + "/" + seed
	if key == w.loaded {
		return
	}
	w.loaded = key
	w.emit(domain.Message{Kind: domain.KindSeedUpdate})
}

func (w *LocalWorker) emit(msg domain.Message) bool {
	select {
	case w.out <- msg:
		return true
	case <-w.ctx.Done():
		return false
	}
}
