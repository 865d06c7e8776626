package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrEthical07/adminauth/internal/ids"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// AppendTimeout bounds each sink write. Zero means no deadline.
	AppendTimeout time.Duration
}

// Dispatcher asynchronously forwards audit events to a sink.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	logger    *slog.Logger
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
	failLog   rate.Sometimes
}

// NewDispatcher starts the delivery goroutine. It returns nil when auditing
// is disabled; every method is safe on a nil Dispatcher.
func NewDispatcher(cfg Config, sink Sink, logger *slog.Logger) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		logger:  logger,
		ch:      make(chan Event, cfg.BufferSize),
		done:    make(chan struct{}),
		failLog: rate.Sometimes{First: 3, Interval: time.Minute},
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	ctx := context.Background()
	if d.cfg.AppendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.AppendTimeout)
		defer cancel()
	}
	if err := d.sink.Append(ctx, event); err != nil {
		total := d.failed.Add(1)
		d.failLog.Do(func() {
			d.logger.Warn("audit sink append failed",
				slog.String("kind", string(event.Kind)),
				slog.String("event_id", event.ID),
				slog.Uint64("failed_total", total),
				slog.Any("error", err),
			)
		})
	}
}

// Emit queues event without waiting for the sink. A missing ID is minted
// from the event timestamp. With DropIfFull a full buffer drops the event;
// otherwise Emit waits for space or for ctx.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = ids.New(event.Timestamp)
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops accepting events and drains the buffer into the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Failed counts sink errors.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
