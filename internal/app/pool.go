package app

import (
	"fmt"

	"go.uber.org/zap"

	"seedfinder/internal/domain"
)

// replyFunc handles a completion while the queue lock is held and returns the
// caller notification to run once the lock is released (nil for none).
type replyFunc func(msg domain.Message) func()

// slot is the pool's view of one worker.
type slot struct {
	id      int
	worker  domain.Worker
	busy    bool
	dead    bool
	reqID   uint64
	expect  domain.Kind
	onReply replyFunc
	race    *race
}

func (s *slot) pending() bool {
	return s.onReply != nil
}

func (s *slot) reset() {
	s.busy = false
	s.reqID = 0
	s.expect = ""
	s.onReply = nil
	s.race = nil
}

// pool owns the workers. All methods expect the queue lock to be held.
type pool struct {
	logger  *zap.Logger
	spawner domain.Spawner
	size    int
	nextID  int
	slots   []*slot
}

func newPool(logger *zap.Logger, spawner domain.Spawner, size int) *pool {
	return &pool{logger: logger, spawner: spawner, size: size}
}

// spawnAll adds size fresh workers. Each one stays busy until it reports
// LOADING_DONE.
func (p *pool) spawnAll() []*slot {
	spawned := make([]*slot, 0, p.size)
	for range p.size {
		id := p.nextID
		p.nextID++
		s := &slot{
			id:     id,
			worker: p.spawner.Spawn(fmt.Sprintf("Worker_%d", id)),
			busy:   true,
		}
		p.slots = append(p.slots, s)
		spawned = append(spawned, s)
	}
	p.logger.Info("Spawned workers", zap.Int("count", len(spawned)), zap.Int("next_id", p.nextID))
	return spawned
}

// killAll terminates every worker without notifying anyone waiting on them
// and returns how many requests were abandoned.
func (p *pool) killAll() int {
	abandoned := 0
	for _, s := range p.slots {
		if s.pending() {
			abandoned++
			if s.race != nil {
				s.race.done = true
			}
		}
		s.reset()
		s.dead = true
		s.worker.Terminate()
	}
	p.slots = nil
	return abandoned
}

func (p *pool) idle() *slot {
	for _, s := range p.slots {
		if !s.busy {
			return s
		}
	}
	return nil
}

func (p *pool) busyCount() int {
	n := 0
	for _, s := range p.slots {
		if s.busy {
			n++
		}
	}
	return n
}
