// Package dispatcher is the tick-driven dispatcher (C6): on each external
// tick it drains the current slot's queue and advances a circular slot
// clock, handing every drained entry to an executor. Grounded on
// original_source/service_clockML.py::listen_to_ticks, whose on_tick
// callback does exactly this against a RabbitMQ tick exchange.
package dispatcher

import (
	"context"

	"github.com/federicogiustii/carbonshift/internal/apierrors"
	"github.com/federicogiustii/carbonshift/internal/bus"
	"github.com/federicogiustii/carbonshift/internal/domain"
	"github.com/federicogiustii/carbonshift/internal/slotqueue"
	"github.com/rs/zerolog"
)

// Executor delivers one dispatched entry to its out-of-process handler.
// Errors are logged and counted, never halting dispatch (spec.md §4.6 step 3).
type Executor interface {
	Execute(ctx context.Context, slot int, entry domain.SlotQueueEntry) error
}

// Dispatcher owns the SlotClock exclusively; it is never read concurrently
// for correctness decisions (spec.md §5). CurrentTick is exported only for
// best-effort observability reads from other goroutines.
type Dispatcher struct {
	queues      *slotqueue.Queues
	tickBus     bus.TickBus
	slotBus     bus.SlotBus // optional: republish drained entries for out-of-process executors
	executor    Executor
	log         zerolog.Logger
	currentTick int

	dispatched int64
	errors     int64
}

// New creates a dispatcher over queues, subscribing to tickBus for clock
// pulses and handing drained entries to executor. slotBus may be nil; when
// set, every drained entry is also republished to routing key slot.<t> for
// out-of-process executors, per spec.md §6.
func New(queues *slotqueue.Queues, tickBus bus.TickBus, slotBus bus.SlotBus, executor Executor, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		queues:   queues,
		tickBus:  tickBus,
		slotBus:  slotBus,
		executor: executor,
		log:      log.With().Str("component", "dispatcher").Logger(),
	}
}

// Run subscribes to the tick bus and processes ticks in arrival order,
// one at a time, until ctx is canceled or the bus disconnects.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticks, errCh, err := d.tickBus.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errCh:
			if !ok {
				return apierrors.ErrBusDisconnect
			}
			if err != nil {
				return err
			}
		case _, ok := <-ticks:
			if !ok {
				return apierrors.ErrBusDisconnect
			}
			d.OnTick(ctx)
		}
	}
}

// OnTick performs exactly one tick's worth of work: drain the current
// slot, dispatch its entries in FIFO order, then advance the clock modulo
// Δ. Exactly one drain occurs per tick per slot.
func (d *Dispatcher) OnTick(ctx context.Context) {
	t := d.currentTick
	batch := d.queues.DrainSlot(t)

	for _, entry := range batch {
		if d.slotBus != nil {
			_ = d.slotBus.Publish(ctx, t, bus.SlotEntry{
				M:        entry.Request.Payload,
				Strategy: entry.Strategy,
				C:        entry.Request.Callback,
				D:        entry.Request.Deadline,
			})
		}
		if err := d.executor.Execute(ctx, t, entry); err != nil {
			d.errors++
			d.log.Warn().Err(err).Str("request_id", entry.Request.ID).Int("slot", t).Msg("executor unavailable")
		}
		d.dispatched++
	}

	d.currentTick = (d.currentTick + 1) % d.queues.Horizon()
}

// CurrentTick returns the dispatcher's current slot. Best-effort only; per
// spec.md §5 it must not be used for correctness decisions by other
// goroutines.
func (d *Dispatcher) CurrentTick() int {
	return d.currentTick
}

// Stats returns lifetime dispatched/error counters for metrics export.
func (d *Dispatcher) Stats() (dispatched, errors int64) {
	return d.dispatched, d.errors
}
