// Package scheduler dispatches maintenance workers off the event bus.
// Workers are woken immediately when an event matches their interest; a
// periodic fallback tick keeps them from starving in an idle system.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tessellate-ai/memring/config"
	"github.com/tessellate-ai/memring/errors"
	"github.com/tessellate-ai/memring/event"
	"golang.org/x/sync/semaphore"
)

// Worker is a reactive maintenance task. Runs must be idempotent: a worker
// that fails or times out is simply retried on the next matching event.
type Worker interface {
	Name() string
	InterestedIn(ev event.Event) bool
	Run(ctx context.Context, ev event.Event) error
}

// Adaptive consumes the bus and dispatches interested workers
// asynchronously with bounded per-worker concurrency.
type Adaptive struct {
	bus     *event.Bus
	workers []Worker
	sems    map[string]*semaphore.Weighted
	conf    *config.SchedulerConfig
	logger  *slog.Logger

	cron        *cron.Cron
	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
	mu          sync.Mutex
}

func NewAdaptive(bus *event.Bus, workers []Worker, conf *config.SchedulerConfig, logger *slog.Logger) *Adaptive {
	sems := make(map[string]*semaphore.Weighted, len(workers))
	for _, w := range workers {
		sems[w.Name()] = semaphore.NewWeighted(int64(conf.WorkerConcurrency))
	}
	return &Adaptive{
		bus:     bus,
		workers: workers,
		sems:    sems,
		conf:    conf,
		logger:  logger,
	}
}

// Start begins consuming events and schedules the periodic tick.
func (s *Adaptive) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("scheduler already running")
	}
	s.started = true

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	events, unsubscribe := s.bus.Subscribe(event.Any)
	s.unsubscribe = unsubscribe

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for ev := range events {
			s.dispatch(runCtx, ev)
		}
	}()

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(cronEvery(s.conf.TickInterval), func() {
		s.bus.Publish(event.NewPeriodicTick("scheduler"))
	}); err != nil {
		return errors.Wrapf(err, "failed to schedule periodic tick")
	}
	s.cron.Start()

	return nil
}

// Stop tears down the tick, detaches from the bus, and joins in-flight worker
// runs.
func (s *Adaptive) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.unsubscribe()
	s.cancel()
	s.wg.Wait()
}

// dispatch fires every interested worker in its own goroutine. A worker at
// its concurrency bound skips this event; the periodic tick will reach it.
func (s *Adaptive) dispatch(ctx context.Context, ev event.Event) {
	for _, w := range s.workers {
		if !w.InterestedIn(ev) {
			continue
		}

		sem := s.sems[w.Name()]
		if !sem.TryAcquire(1) {
			s.logger.Debug("worker at concurrency bound, skipping event",
				slog.String("worker", w.Name()))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer sem.Release(1)

			runCtx, cancel := context.WithTimeout(ctx, s.conf.WorkerTimeout)
			defer cancel()

			if err := w.Run(runCtx, ev); err != nil {
				s.logger.Error("worker run failed, will retry on next matching event",
					slog.String("worker", w.Name()),
					slog.Any("event", ev),
					slog.Any("error", err))
			}
		}()
	}
}

func cronEvery(d time.Duration) string {
	return "@every " + d.String()
}
