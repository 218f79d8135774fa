package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"seedfinder/internal/domain"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

// fakeWorker records what the queue sends it and fails the test if a second
// request arrives while one is still in flight.
type fakeWorker struct {
	t    *testing.T
	name string
	out  chan domain.Message

	mu         sync.Mutex
	posted     []domain.Message
	inFlight   *domain.Message
	cancelled  []uint64
	terminated bool
}

func (w *fakeWorker) Name() string { return w.name }

func (w *fakeWorker) Messages() <-chan domain.Message { return w.out }

func (w *fakeWorker) Post(msg domain.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.terminated {
		return errors.New("terminated")
	}
	if w.inFlight != nil {
		w.t.Errorf("%s: got %s while %s (id %d) is in flight", w.name, msg.Kind, w.inFlight.Kind, w.inFlight.ID)
	}
	w.inFlight = &msg
	w.posted = append(w.posted, msg)
	return nil
}

func (w *fakeWorker) Cancel(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelled = append(w.cancelled, id)
	if w.inFlight != nil && w.inFlight.ID <= id {
		w.inFlight = nil
	}
}

func (w *fakeWorker) Terminate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.terminated {
		w.terminated = true
		close(w.out)
	}
}

func (w *fakeWorker) send(msg domain.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.terminated {
		w.out <- msg
	}
}

// current returns the request in flight, if any.
func (w *fakeWorker) current() (domain.Message, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight == nil {
		return domain.Message{}, false
	}
	return *w.inFlight, true
}

// reply completes the request in flight.
func (w *fakeWorker) reply(kind domain.Kind, payload any) uint64 {
	w.t.Helper()
	w.mu.Lock()
	require.NotNil(w.t, w.inFlight, "%s has nothing in flight", w.name)
	id := w.inFlight.ID
	w.inFlight = nil
	w.mu.Unlock()

	w.replyTo(id, kind, payload)
	return id
}

// replyTo sends a completion for id whether or not it is still in flight.
func (w *fakeWorker) replyTo(id uint64, kind domain.Kind, payload any) {
	w.t.Helper()
	msg, err := domain.NewMessage(kind, id, payload)
	require.NoError(w.t, err)
	w.send(msg)
}

func (w *fakeWorker) postedMessages() []domain.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.Message(nil), w.posted...)
}

func (w *fakeWorker) cancelledIDs() []uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]uint64(nil), w.cancelled...)
}

type fakeSpawner struct {
	t        *testing.T
	autoLoad bool

	mu      sync.Mutex
	workers []*fakeWorker
}

func (s *fakeSpawner) Spawn(name string) domain.Worker {
	w := &fakeWorker{t: s.t, name: name, out: make(chan domain.Message, 64)}
	if s.autoLoad {
		w.out <- domain.Message{Kind: domain.KindLoadingDone}
	}
	s.mu.Lock()
	s.workers = append(s.workers, w)
	s.mu.Unlock()
	return w
}

func (s *fakeSpawner) all() []*fakeWorker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeWorker(nil), s.workers...)
}

// live returns the workers that have not been terminated, in spawn order.
func (s *fakeSpawner) live() []*fakeWorker {
	var out []*fakeWorker
	for _, w := range s.all() {
		w.mu.Lock()
		if !w.terminated {
			out = append(out, w)
		}
		w.mu.Unlock()
	}
	return out
}

func (s *fakeSpawner) busy() []*fakeWorker {
	var out []*fakeWorker
	for _, w := range s.live() {
		if _, ok := w.current(); ok {
			out = append(out, w)
		}
	}
	return out
}

func (s *fakeSpawner) postedCount() int {
	n := 0
	for _, w := range s.all() {
		n += len(w.postedMessages())
	}
	return n
}

// waitBusy waits until exactly one live worker has a request in flight of
// the given kind and returns it.
func (s *fakeSpawner) waitBusy(t *testing.T, kind domain.Kind) *fakeWorker {
	t.Helper()
	var found *fakeWorker
	require.Eventually(t, func() bool {
		found = nil
		for _, w := range s.busy() {
			if msg, _ := w.current(); msg.Kind == kind {
				if found != nil {
					return false
				}
				found = w
			}
		}
		return found != nil
	}, waitFor, tick)
	return found
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for callback")
	}
	var zero T
	return zero
}
