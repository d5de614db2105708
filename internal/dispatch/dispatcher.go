package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/telenexus-admin/Api/internal/model"
	"github.com/telenexus-admin/Api/internal/repo"
)

// Deliverer posts one event envelope to one subscriber URL.
type Deliverer interface {
	Deliver(ctx context.Context, url, event string, data any) (int, error)
}

type job struct {
	instanceID string
	event      string
	data       map[string]any
}

// Dispatcher fans webhook events out to matching subscriptions. Dispatch is
// fire-and-forget: events are queued and delivered on a background worker so
// the triggering request never waits on subscriber endpoints. Delivery is
// at-most-once; there is no retry and no dead-letter queue.
type Dispatcher struct {
	webhooks repo.WebhookRepository
	deliver  Deliverer

	jobs    chan job
	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(webhooks repo.WebhookRepository, deliver Deliverer, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		webhooks: webhooks,
		deliver:  deliver,
		jobs:     make(chan job, queueSize),
		done:     make(chan struct{}),
	}
}

func (d *Dispatcher) Start() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running.Store(true)

	go func() {
		defer close(d.done)

		slog.Info("webhook dispatcher started", "queue_size", cap(d.jobs))

		for {
			select {
			case <-ctx.Done():
				slog.Info("webhook dispatcher stopping")
				return
			case j := <-d.jobs:
				d.safeFanOut(ctx, j)
			}
		}
	}()

	return true
}

func (d *Dispatcher) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return false
	}

	d.cancel()
	<-d.done
	d.running.Store(false)

	slog.Info("webhook dispatcher stopped")
	return true
}

func (d *Dispatcher) IsRunning() bool {
	return d.running.Load()
}

// Dispatch queues one event for background delivery. Events that cannot be
// queued are dropped with a log line; the caller never blocks or fails.
func (d *Dispatcher) Dispatch(instanceID, event string, data map[string]any) {
	select {
	case d.jobs <- job{instanceID: instanceID, event: event, data: data}:
	default:
		slog.Warn("webhook dispatch queue full, dropping event",
			"instance", instanceID, "event", event)
	}
}

func (d *Dispatcher) safeFanOut(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("webhook fan-out panic recovered", "panic", r)
		}
	}()

	d.DispatchSync(ctx, j.instanceID, j.event, j.data)
}

// DispatchSync delivers the event to every matching subscription before
// returning. Each subscriber attempt runs in isolation; one failure never
// blocks or fails delivery to the others. Tests use this entry point directly
// for deterministic completion.
func (d *Dispatcher) DispatchSync(ctx context.Context, instanceID, event string, data map[string]any) {
	subs, err := d.webhooks.ListActiveByEvent(ctx, instanceID, event)
	if err != nil {
		slog.Error("webhook dispatch: failed to load subscriptions",
			"instance", instanceID, "event", event, "err", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub model.Webhook) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("webhook delivery panic recovered",
						"webhook", sub.ID, "panic", r)
				}
			}()

			if _, err := d.deliver.Deliver(ctx, sub.URL, event, data); err != nil {
				slog.Warn("webhook delivery failed",
					"webhook", sub.ID, "url", sub.URL, "event", event, "err", err)
				return
			}
			if err := d.webhooks.MarkTriggered(ctx, sub.ID, time.Now().UTC()); err != nil {
				slog.Warn("webhook delivery: failed to record trigger time",
					"webhook", sub.ID, "err", err)
			}
		}(sub)
	}
	wg.Wait()
}
