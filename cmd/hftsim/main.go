package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/0x5487/hftcore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/spf13/viper"
)

func main() {
	if err := run(); err != nil {
		slog.Error("hftsim failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := LoadConfig(viper.New())
	if err != nil {
		return err
	}

	runID := xid.New()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})).
		With("run", runID.String())
	hftcore.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := hftcore.NewMetrics("hftsim")
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		if err := metrics.Register(reg); err != nil {
			return err
		}
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	ring, err := hftcore.NewUpdateRing(cfg.RingCapacity)
	if err != nil {
		return err
	}
	book, err := hftcore.NewOrderBook(ring, hftcore.BookOptions{
		Name:          cfg.Instrument.String(),
		OrderCapacity: cfg.OrderCapacity,
		LevelCapacity: cfg.LevelCapacity,
		NotifyEvery:   cfg.NotifyEvery,
		IndexLevels:   cfg.IndexLevels,
		Metrics:       metrics,
	})
	if err != nil {
		return err
	}

	view := hftcore.NewAggregatedBook()
	drainer, err := hftcore.NewDrainer(ring, view, hftcore.DrainerOptions{
		BatchSize: cfg.DrainBatch,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}

	drainCtx, stopDrain := context.WithCancel(context.Background())
	drained := make(chan error, 1)
	go func() {
		drained <- drainer.Run(drainCtx)
	}()

	sim := newSimulator(cfg, book)
	start := time.Now()
	ops := produce(ctx, sim)
	elapsed := time.Since(start)

	stopDrain()
	if err := <-drained; err != nil {
		return err
	}

	stats := book.Stats()
	bid, bidQty := book.BestBid()
	ask, askQty := book.BestAsk()
	nsPerOp := int64(0)
	if ops > 0 {
		nsPerOp = elapsed.Nanoseconds() / int64(ops)
	}

	logger.Info("simulation finished",
		"operations", ops,
		"elapsed", elapsed.String(),
		"ns_per_op", nsPerOp,
		"adds", sim.adds,
		"cancels", sim.cancels,
		"modifies", sim.modifies,
		"trades", sim.trades,
		"fills", sim.fills,
		"rejects", sim.rejects,
		"resting_orders", stats.Orders,
		"bid_levels", stats.BidLevels,
		"ask_levels", stats.AskLevels,
		"best_bid", bid.String(),
		"best_bid_qty", bidQty,
		"best_ask", ask.String(),
		"best_ask_qty", askQty,
		"updates_dropped", stats.DroppedUpdates,
		"updates_drained", drainer.Drained(),
		"view_bid_levels", view.LevelCount(hftcore.Bid),
		"view_ask_levels", view.LevelCount(hftcore.Ask),
		"view_gaps", view.Gaps(),
		"top_of_book", view.DepthResponse(5),
	)
	return nil
}

// produce runs the simulator on a locked OS thread, the book's owner for
// the whole run.
func produce(ctx context.Context, sim *simulator) int {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	return sim.run(ctx)
}
