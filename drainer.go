package hftcore

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/0x5487/hftcore/structure"
)

// ErrDrainerRunning is returned when Run is called on a drainer that is
// already running.
var ErrDrainerRunning = errors.New("drainer: already running")

// DrainerOptions configures a Drainer. Zero values select the defaults.
type DrainerOptions struct {
	// BatchSize is the most updates handed to the handler at once. Default 256.
	BatchSize int

	// SpinLimit is the number of empty polls, each followed by
	// runtime.Gosched, before the drainer sleeps. Default 1024.
	SpinLimit int

	// IdleSleep is how long the drainer sleeps once SpinLimit is reached.
	// Default 50µs.
	IdleSleep time.Duration

	// Metrics receives drained counts and the ring depth. Optional.
	Metrics *Metrics
}

// Drainer is the consumer side of the book's update ring. It is the only
// goroutine that may pop from the ring.
type Drainer struct {
	ring    *structure.Ring[Update]
	handler UpdateHandler
	buf     []Update
	opts    DrainerOptions

	running atomic.Bool
	drained atomic.Uint64
}

// NewDrainer creates a drainer that hands batches from ring to handler.
func NewDrainer(ring *structure.Ring[Update], handler UpdateHandler, opts DrainerOptions) (*Drainer, error) {
	if ring == nil {
		return nil, ErrNilUpdateRing
	}
	if handler == nil {
		return nil, ErrInvalidParam
	}
	if opts.BatchSize < 0 || opts.SpinLimit < 0 || opts.IdleSleep < 0 {
		return nil, ErrInvalidParam
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = 256
	}
	if opts.SpinLimit == 0 {
		opts.SpinLimit = 1024
	}
	if opts.IdleSleep == 0 {
		opts.IdleSleep = 50 * time.Microsecond
	}

	return &Drainer{
		ring:    ring,
		handler: handler,
		buf:     make([]Update, opts.BatchSize),
		opts:    opts,
	}, nil
}

// Run drains the ring until ctx is done, then hands over whatever is left
// and returns nil.
func (d *Drainer) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrDrainerRunning
	}
	defer d.running.Store(false)

	logger.Info("drainer started", "batch_size", d.opts.BatchSize)

	idle := 0
	for {
		select {
		case <-ctx.Done():
			for d.DrainOnce() > 0 {
			}
			logger.Info("drainer stopped", "drained", d.drained.Load())
			return nil
		default:
		}

		if d.DrainOnce() > 0 {
			idle = 0
			continue
		}

		idle++
		if idle < d.opts.SpinLimit {
			runtime.Gosched()
			continue
		}
		idle = 0

		timer := time.NewTimer(d.opts.IdleSleep)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

// DrainOnce pops at most one batch and hands it to the handler. It returns
// the batch size. Only the consumer goroutine may call it.
func (d *Drainer) DrainOnce() int {
	n := d.ring.TryPopBatch(d.buf)
	if n == 0 {
		return 0
	}
	d.handler.OnUpdates(d.buf[:n])
	d.drained.Add(uint64(n))
	d.opts.Metrics.addDrained(n)
	d.opts.Metrics.setRingDepth(d.ring.Len())
	return n
}

// Drained returns the number of updates handed to the handler so far.
func (d *Drainer) Drained() uint64 {
	return d.drained.Load()
}

// Pending returns the number of updates waiting in the ring. Advisory.
func (d *Drainer) Pending() int {
	return d.ring.Len()
}
