package app

import (
	"maps"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"seedfinder/internal/domain"
)

// DefaultPartitionStride is the number of candidate seeds each worker of a
// racing search scans.
const DefaultPartitionStride int64 = 1_000_000

type lifecycle int

const (
	stateNew lifecycle = iota
	stateActive
	stateTerminated
)

// submission is a request waiting for a worker. Racing submissions have
// threads > 0 and build one payload per partition.
type submission struct {
	kind    domain.Kind
	msg     domain.Message
	onReply replyFunc

	threads   int
	start     int64
	partition func(start, count int64) any
	onResult  func(domain.SeedResult)
}

// race is shared by every partition of one racing submission. Only the first
// found seed reaches the caller.
type race struct {
	done     bool
	pending  int
	slots    []*slot
	callback func(domain.SeedResult)
}

// Queue dispatches world queries to a fixed-size pool of workers. Area renders
// are cached; seed searches are split across idle workers and the first hit
// cancels the rest. Callbacks run on the goroutine that received the reply,
// or on the caller's goroutine for cache hits, and may submit again.
type Queue struct {
	logger  *zap.Logger
	stride  int64
	cache   *AreaCache
	metrics *queueMetrics
	wg      sync.WaitGroup
	stopped chan struct{}

	mu           sync.Mutex
	state        lifecycle
	pool         *pool
	nextReq      uint64
	waiting      []*submission
	palette      domain.Palette
	onSeedUpdate func()
}

func NewQueue(logger *zap.Logger, spawner domain.Spawner, workers int, stride int64) *Queue {
	if workers < 1 {
		workers = max(1, runtime.NumCPU())
	}
	if stride <= 0 {
		stride = DefaultPartitionStride
	}
	return &Queue{
		logger:  logger,
		stride:  stride,
		cache:   NewAreaCache(),
		metrics: newQueueMetrics(),
		stopped: make(chan struct{}),
		pool:    newPool(logger, spawner, workers),
	}
}

// Start spawns the workers and requests the color palette. Submissions made
// before Start wait until the first worker has loaded.
func (q *Queue) Start() error {
	q.mu.Lock()
	switch q.state {
	case stateTerminated:
		q.mu.Unlock()
		return domain.ErrQueueClosed
	case stateActive:
		q.mu.Unlock()
		return nil
	}
	q.state = stateActive
	q.spawnLocked()
	q.mu.Unlock()

	return q.FetchColorPalette()
}

// SubmitAreaRender renders an area, serving it from the cache unless force is
// set. A forced render still refreshes the cache entry.
func (q *Queue) SubmitAreaRender(req domain.AreaRequest, callback func(domain.ColorGrid), force bool) error {
	if callback == nil {
		return domain.ErrInvalidRequest
	}
	if q.closed() {
		return domain.ErrQueueClosed
	}
	key := req.Fingerprint()
	if force {
		q.metrics.cache.WithLabelValues("forced").Inc()
	} else {
		if grid, ok := q.cache.Get(key); ok {
			q.metrics.cache.WithLabelValues("hit").Inc()
			q.logger.Debug("Area served from cache", zap.String("key", key))
			callback(grid)
			return nil
		}
		q.metrics.cache.WithLabelValues("miss").Inc()
	}
	return q.submitExclusive(domain.KindGetArea, req, func(msg domain.Message) func() {
		var res domain.AreaResult
		if err := msg.Decode(&res); err != nil {
			q.logger.Warn("Dropping area reply", zap.Error(err))
			return nil
		}
		if res.Colors == nil {
			// Воркер не смог разобрать запрос, кэшировать нечего
			q.logger.Warn("Area reply without grid, not cached", zap.Uint64("id", msg.ID))
		} else {
			q.cache.Put(res.Fingerprint(), res.Colors)
		}
		return func() { callback(res.Colors) }
	})
}

func (q *Queue) SubmitSpawnLookup(req domain.SpawnRequest, callback func(x, z int)) error {
	if callback == nil {
		return domain.ErrInvalidRequest
	}
	return q.submitExclusive(domain.KindGetSpawn, req, func(msg domain.Message) func() {
		var res domain.SpawnResult
		if err := msg.Decode(&res); err != nil {
			q.logger.Warn("Dropping spawn reply", zap.Error(err))
			return nil
		}
		return func() { callback(res.X, res.Z) }
	})
}

func (q *Queue) SubmitStrongholdLookup(req domain.StrongholdRequest, callback func(domain.StrongholdResult)) error {
	if callback == nil {
		return domain.ErrInvalidRequest
	}
	return q.submitExclusive(domain.KindGetStrongholds, req, func(msg domain.Message) func() {
		var res domain.StrongholdResult
		if err := msg.Decode(&res); err != nil {
			q.logger.Warn("Dropping stronghold reply", zap.Error(err))
			return nil
		}
		return func() { callback(res) }
	})
}

func (q *Queue) SubmitRegionStructureLookup(req domain.RegionStructuresRequest, callback func(domain.RegionStructuresResult)) error {
	if callback == nil {
		return domain.ErrInvalidRequest
	}
	return q.submitExclusive(domain.KindGetStructuresInRegions, req, func(msg domain.Message) func() {
		var res domain.RegionStructuresResult
		if err := msg.Decode(&res); err != nil {
			q.logger.Warn("Dropping region structures reply", zap.Error(err))
			return nil
		}
		return func() { callback(res) }
	})
}

// FetchColorPalette asks a worker for the biome palette and keeps it for
// Palette.
func (q *Queue) FetchColorPalette() error {
	return q.submitExclusive(domain.KindGetColors, nil, func(msg domain.Message) func() {
		var res domain.ColorsResult
		if err := msg.Decode(&res); err != nil {
			q.logger.Warn("Dropping palette reply", zap.Error(err))
			return nil
		}
		q.palette = res.Colors
		q.logger.Info("Palette loaded", zap.Int("biomes", len(res.Colors)))
		return nil
	})
}

func (q *Queue) Palette() (domain.Palette, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.palette == nil {
		return nil, false
	}
	return maps.Clone(q.palette), true
}

// SubmitBiomeSearch looks for a seed whose area contains every listed biome.
// The seed space from req.StartingSeed is split across up to threads idle
// workers.
func (q *Queue) SubmitBiomeSearch(req domain.BiomeSearchRequest, threads int, callback func(domain.SeedResult)) error {
	return q.submitRace(domain.KindGetBiomes, threads, req.StartingSeed, func(start, count int64) any {
		p := req
		p.StartingSeed, p.SeedCount = start, count
		return p
	}, callback)
}

func (q *Queue) SubmitStructureSearch(req domain.StructureSearchRequest, threads int, callback func(domain.SeedResult)) error {
	return q.submitRace(domain.KindFindStructures, threads, req.StartingSeed, func(start, count int64) any {
		p := req
		p.StartingSeed, p.SeedCount = start, count
		return p
	}, callback)
}

func (q *Queue) SubmitCombinedSearch(req domain.CombinedSearchRequest, threads int, callback func(domain.SeedResult)) error {
	return q.submitRace(domain.KindGetBiomesWithStructures, threads, req.StartingSeed, func(start, count int64) any {
		p := req
		p.StartingSeed, p.SeedCount = start, count
		return p
	}, callback)
}

// OnSeedUpdate registers the observer notified when a worker reports that its
// loaded seed changed. It replaces any previous observer.
func (q *Queue) OnSeedUpdate(callback func()) {
	q.mu.Lock()
	q.onSeedUpdate = callback
	q.mu.Unlock()
}

func (q *Queue) PoolStatus() domain.Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return domain.Status{
		Total:   len(q.pool.slots),
		Busy:    q.pool.busyCount(),
		Waiting: len(q.waiting),
	}
}

func (q *Queue) PrintStatus() {
	st := q.PoolStatus()
	q.logger.Info("Pool status",
		zap.Int("total", st.Total),
		zap.Int("busy", st.Busy),
		zap.Int("waiting", st.Waiting))
}

// TerminateAll kills every worker. Requests in flight are abandoned: their
// callbacks never run. Waiting submissions stay queued for RestartAll.
func (q *Queue) TerminateAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	abandoned := q.pool.killAll()
	q.metrics.abandoned.Add(float64(abandoned))
	q.logger.Info("Terminated all workers", zap.Int("abandoned", abandoned))
}

// RestartAll replaces every worker with a fresh one.
func (q *Queue) RestartAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state == stateTerminated {
		return
	}
	q.state = stateActive
	abandoned := q.pool.killAll()
	q.metrics.abandoned.Add(float64(abandoned))
	q.logger.Info("Restarting all workers", zap.Int("abandoned", abandoned))
	q.spawnLocked()
}

// Close terminates the workers, drops waiting submissions and rejects any
// further ones. It does not wait for the listener goroutines, so it may be
// called from a callback; Stopped reports when they are gone.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.state == stateTerminated {
		q.mu.Unlock()
		return
	}
	q.state = stateTerminated
	abandoned := q.pool.killAll() + len(q.waiting)
	q.waiting = nil
	q.mu.Unlock()
	q.metrics.abandoned.Add(float64(abandoned))

	go func() {
		q.wg.Wait()
		q.logger.Info("Queue closed", zap.Int("abandoned", abandoned))
		close(q.stopped)
	}()
}

// Stopped is closed once Close has run and every listener has exited.
// Waiting on it from a callback never returns.
func (q *Queue) Stopped() <-chan struct{} {
	return q.stopped
}

func (q *Queue) closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state == stateTerminated
}

func (q *Queue) submitExclusive(kind domain.Kind, payload any, onReply replyFunc) error {
	msg, err := domain.NewMessage(kind, 0, payload)
	if err != nil {
		return err
	}
	return q.submit(&submission{kind: kind, msg: msg, onReply: onReply})
}

func (q *Queue) submitRace(kind domain.Kind, threads int, start int64, partition func(start, count int64) any, callback func(domain.SeedResult)) error {
	if threads < 1 || callback == nil {
		return domain.ErrInvalidRequest
	}
	return q.submit(&submission{
		kind:      kind,
		threads:   threads,
		start:     start,
		partition: partition,
		onResult:  callback,
	})
}

func (q *Queue) submit(sub *submission) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state == stateTerminated {
		return domain.ErrQueueClosed
	}
	if !q.dispatchLocked(sub) {
		q.waiting = append(q.waiting, sub)
		q.logger.Debug("No idle worker, submission queued",
			zap.String("kind", string(sub.kind)),
			zap.Int("waiting", len(q.waiting)))
	}
	return nil
}

func (q *Queue) dispatchLocked(sub *submission) bool {
	if sub.threads > 0 {
		return q.dispatchRaceLocked(sub)
	}
	s := q.pool.idle()
	if s == nil {
		return false
	}
	return q.assignLocked(s, sub.msg, sub.onReply, nil)
}

// dispatchRaceLocked hands consecutive, non-overlapping seed partitions to the
// idle workers. Threads beyond the number of idle workers are dropped.
func (q *Queue) dispatchRaceLocked(sub *submission) bool {
	r := &race{callback: sub.onResult}
	start, threads := sub.start, sub.threads
	for _, s := range q.pool.slots {
		if threads == 0 {
			break
		}
		if s.busy {
			continue
		}
		msg, err := domain.NewMessage(sub.kind, 0, sub.partition(start, q.stride))
		if err != nil {
			q.logger.Error("Failed to encode partition", zap.Error(err))
			return r.pending > 0
		}
		if !q.assignLocked(s, msg, q.raceReply(r), r) {
			continue
		}
		r.slots = append(r.slots, s)
		r.pending++
		start += q.stride
		threads--
	}
	if r.pending == 0 {
		return false
	}
	if threads > 0 {
		q.logger.Debug("Not enough idle workers, partitions dropped",
			zap.String("kind", string(sub.kind)),
			zap.Int("requested", sub.threads),
			zap.Int("dropped", threads))
	}
	return true
}

func (q *Queue) assignLocked(s *slot, msg domain.Message, onReply replyFunc, r *race) bool {
	q.nextReq++
	msg.ID = q.nextReq
	expect, _ := domain.ReplyKind(msg.Kind)

	s.busy = true
	s.reqID = msg.ID
	s.expect = expect
	s.onReply = onReply
	s.race = r
	if err := s.worker.Post(msg); err != nil {
		q.logger.Error("Failed to post request",
			zap.String("worker", s.worker.Name()),
			zap.String("kind", string(msg.Kind)),
			zap.Error(err))
		s.reset()
		return false
	}
	q.metrics.dispatched.WithLabelValues(string(msg.Kind)).Inc()
	q.logger.Debug("Request dispatched",
		zap.String("worker", s.worker.Name()),
		zap.String("kind", string(msg.Kind)),
		zap.Uint64("id", msg.ID))
	return true
}

// raceReply resolves one partition. The first found seed wins and cancels
// the siblings; if every partition comes back empty the caller gets the
// not-found result.
func (q *Queue) raceReply(r *race) replyFunc {
	return func(msg domain.Message) func() {
		r.pending--
		var res domain.SeedResult
		if err := msg.Decode(&res); err != nil {
			q.logger.Warn("Treating undecodable search reply as not found", zap.Error(err))
			res = domain.SeedResult{}
		}
		if r.done {
			return nil
		}
		if !res.Found {
			if r.pending > 0 {
				return nil
			}
			r.done = true
			q.metrics.races.WithLabelValues("not_found").Inc()
			return func() { r.callback(domain.SeedResult{}) }
		}

		r.done = true
		q.metrics.races.WithLabelValues("found").Inc()
		for _, sib := range r.slots {
			if sib.race != r || sib.dead {
				continue
			}
			sib.worker.Cancel(sib.reqID)
			q.logger.Debug("Cancelled sibling partition",
				zap.String("worker", sib.worker.Name()),
				zap.Uint64("id", sib.reqID))
			sib.reset()
			r.pending--
		}
		return func() { r.callback(res) }
	}
}

// drainLocked serves waiting submissions in arrival order while workers are
// idle.
func (q *Queue) drainLocked() {
	for len(q.waiting) > 0 && q.pool.idle() != nil {
		if !q.dispatchLocked(q.waiting[0]) {
			return
		}
		q.waiting[0] = nil
		q.waiting = q.waiting[1:]
	}
}

func (q *Queue) spawnLocked() {
	for _, s := range q.pool.spawnAll() {
		q.wg.Add(1)
		go q.listen(s)
	}
}

func (q *Queue) listen(s *slot) {
	defer q.wg.Done()
	for msg := range s.worker.Messages() {
		q.route(s, msg)
	}
}

// route handles one message from the worker behind s.
func (q *Queue) route(s *slot, msg domain.Message) {
	q.mu.Lock()
	if s.dead {
		q.mu.Unlock()
		return
	}

	switch {
	case msg.Kind == domain.KindLoadingDone:
		if !s.pending() {
			s.busy = false
			q.logger.Debug("Worker loaded", zap.String("worker", s.worker.Name()))
			q.drainLocked()
		}
		q.mu.Unlock()
		return

	case msg.Kind == domain.KindSeedUpdate:
		observer := q.onSeedUpdate
		q.mu.Unlock()
		if observer != nil {
			observer()
		}
		return

	case !domain.IsReply(msg.Kind):
		q.mu.Unlock()
		q.logger.Warn("Ignoring message",
			zap.String("worker", s.worker.Name()),
			zap.Error(&domain.KindError{Kind: msg.Kind, Err: domain.ErrUnknownKind}))
		return
	}

	if !s.pending() || msg.ID != s.reqID {
		q.mu.Unlock()
		q.logger.Debug("Dropping stale reply",
			zap.String("worker", s.worker.Name()),
			zap.String("kind", string(msg.Kind)),
			zap.Uint64("id", msg.ID))
		return
	}
	if msg.Kind != s.expect {
		q.mu.Unlock()
		q.logger.Warn("Ignoring reply of unexpected kind",
			zap.String("worker", s.worker.Name()),
			zap.String("kind", string(msg.Kind)),
			zap.String("expected", string(s.expect)))
		return
	}

	onReply := s.onReply
	s.reset()
	notify := onReply(msg)
	q.drainLocked()
	q.mu.Unlock()

	if notify != nil {
		notify()
	}
}
