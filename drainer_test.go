package hftcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/0x5487/hftcore/structure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDrainer_InvalidOptions(t *testing.T) {
	ring := structure.MustNewRing[Update](16)

	_, err := NewDrainer(nil, DiscardUpdates{}, DrainerOptions{})
	assert.ErrorIs(t, err, ErrNilUpdateRing)

	_, err = NewDrainer(ring, nil, DrainerOptions{})
	assert.ErrorIs(t, err, ErrInvalidParam)

	_, err = NewDrainer(ring, DiscardUpdates{}, DrainerOptions{BatchSize: -1})
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestDrainer_DrainOnce(t *testing.T) {
	ring := structure.MustNewRing[Update](16)
	mem := NewMemoryUpdates()

	d, err := NewDrainer(ring, mem, DrainerOptions{BatchSize: 4})
	require.NoError(t, err)

	for i := uint64(1); i <= 6; i++ {
		require.True(t, ring.TryPush(Update{Sequence: i}))
	}

	assert.Equal(t, 4, d.DrainOnce())
	assert.Equal(t, 2, d.Pending())
	assert.Equal(t, 2, d.DrainOnce())
	assert.Equal(t, 0, d.DrainOnce())
	assert.Equal(t, uint64(6), d.Drained())

	require.Equal(t, 6, mem.Count())
	for i, u := range mem.Snapshot() {
		assert.Equal(t, uint64(i+1), u.Sequence)
	}
	assert.Equal(t, uint64(3), mem.Get(2).Sequence)
}

func TestDrainer_Run(t *testing.T) {
	ring, err := NewUpdateRing(64)
	require.NoError(t, err)

	book, err := NewOrderBook(ring, BookOptions{NotifyEvery: 1})
	require.NoError(t, err)

	mem := NewMemoryUpdates()
	mirror := NewAggregatedBook()
	d, err := NewDrainer(ring, FanOut{mem, mirror}, DrainerOptions{BatchSize: 8, SpinLimit: 4, IdleSleep: time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var (
		wg     sync.WaitGroup
		runErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = d.Run(ctx)
	}()

	const total = 2_000
	for i := uint64(1); i <= total; i++ {
		o := bidOrder(i, "100", 1)
		if i%2 == 0 {
			o = askOrder(i, "101", 1)
		}
		for book.Stats().DroppedUpdates == 0 && ring.Full() {
			time.Sleep(10 * time.Microsecond)
		}
		require.True(t, book.AddOrder(o))
	}

	require.Eventually(t, func() bool {
		return mem.Count() == total
	}, 5*time.Second, time.Millisecond)

	cancel()
	wg.Wait()
	require.NoError(t, runErr)

	assert.Zero(t, book.Stats().DroppedUpdates)
	assert.Equal(t, uint64(total), d.Drained())
	assert.Equal(t, book.MarketDepth(Bid, 5), mirror.MarketDepth(Bid, 5))
	assert.Equal(t, book.MarketDepth(Ask, 5), mirror.MarketDepth(Ask, 5))
	assert.Zero(t, mirror.Gaps())
}

func TestDrainer_RunDrainsOnStop(t *testing.T) {
	ring := structure.MustNewRing[Update](16)
	mem := NewMemoryUpdates()
	d, err := NewDrainer(ring, mem, DrainerOptions{BatchSize: 2})
	require.NoError(t, err)

	for i := uint64(1); i <= 5; i++ {
		require.True(t, ring.TryPush(Update{Sequence: i}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))
	assert.Equal(t, 5, mem.Count())
	assert.True(t, ring.Empty())
}

func TestDrainer_RunTwice(t *testing.T) {
	ring := structure.MustNewRing[Update](16)
	d, err := NewDrainer(ring, DiscardUpdates{}, DrainerOptions{})
	require.NoError(t, err)

	d.running.Store(true)
	assert.ErrorIs(t, d.Run(context.Background()), ErrDrainerRunning)
}

func TestUpdateHandlerFunc(t *testing.T) {
	var got int
	h := UpdateHandlerFunc(func(updates []Update) { got += len(updates) })
	h.OnUpdates(make([]Update, 3))
	assert.Equal(t, 3, got)
}
