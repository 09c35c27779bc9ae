package structure

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID  uint64
	Qty uint64
}

func TestSlotPool_InvalidCapacity(t *testing.T) {
	_, err := NewSlotPool[record](0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = NewSlotPool[record](-3)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestSlotPool_AcquireRelease(t *testing.T) {
	p, err := NewSlotPool[record](4)
	require.NoError(t, err)

	assert.Equal(t, 4, p.Capacity())
	assert.Equal(t, 4, p.Available())
	assert.Equal(t, 0, p.Size())

	h, ok := p.Acquire()
	require.True(t, ok)
	assert.Equal(t, int32(0), h.Index)
	assert.Equal(t, 3, p.Available())
	assert.Equal(t, 1, p.Size())

	rec := p.At(h)
	rec.ID = 42
	got, ok := p.Get(h)
	require.True(t, ok)
	assert.Equal(t, uint64(42), got.ID)

	assert.True(t, p.Release(h))
	assert.Equal(t, 4, p.Available())
	assert.Equal(t, 0, p.Size())
}

func TestSlotPool_Exhaustion(t *testing.T) {
	p, err := NewSlotPool[record](3)
	require.NoError(t, err)

	handles := make([]Handle, 0, 3)
	for i := 0; i < 3; i++ {
		h, ok := p.Acquire()
		require.True(t, ok)
		handles = append(handles, h)
	}

	h, ok := p.Acquire()
	assert.False(t, ok)
	assert.True(t, h.IsNil())
	assert.Equal(t, 3, p.Size())
	assert.Equal(t, 0, p.Available())

	require.True(t, p.Release(handles[1]))
	h, ok = p.Acquire()
	require.True(t, ok)
	assert.Equal(t, handles[1].Index, h.Index, "the released slot is reused first")
	assert.NotEqual(t, handles[1].Gen, h.Gen)
}

func TestSlotPool_StaleHandles(t *testing.T) {
	if debugAssertions {
		t.Skip("invalid releases panic under hftdebug")
	}

	p, err := NewSlotPool[record](2)
	require.NoError(t, err)

	h, ok := p.Acquire()
	require.True(t, ok)
	require.True(t, p.Release(h))

	// double release
	assert.False(t, p.Release(h))
	assert.Equal(t, 2, p.Available())

	_, ok = p.Get(h)
	assert.False(t, ok)
	assert.False(t, p.Valid(h))

	// the recycled slot is not reachable through the old handle
	h2, ok := p.Acquire()
	require.True(t, ok)
	require.Equal(t, h.Index, h2.Index)
	assert.False(t, p.Valid(h))
	assert.True(t, p.Valid(h2))

	assert.False(t, p.Release(NilHandle))
	assert.False(t, p.Release(Handle{Index: 17}))
}

func TestSlotPool_Reset(t *testing.T) {
	if debugAssertions {
		t.Skip("invalid releases panic under hftdebug")
	}

	p, err := NewSlotPool[record](8)
	require.NoError(t, err)

	var held []Handle
	for i := 0; i < 5; i++ {
		h, ok := p.Acquire()
		require.True(t, ok)
		held = append(held, h)
	}

	p.Reset()
	assert.Equal(t, 8, p.Available())
	assert.Equal(t, 0, p.Size())
	for _, h := range held {
		assert.False(t, p.Valid(h))
		assert.False(t, p.Release(h))
	}
	assert.Equal(t, 8, p.Available())
}

func TestSlotPool_Conservation(t *testing.T) {
	const capacity = 64
	p, err := NewSlotPool[record](capacity)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	var held []Handle

	for i := 0; i < 10_000; i++ {
		if len(held) > 0 && rng.Intn(2) == 0 {
			j := rng.Intn(len(held))
			require.True(t, p.Release(held[j]))
			held[j] = held[len(held)-1]
			held = held[:len(held)-1]
		} else {
			before := p.Size()
			h, ok := p.Acquire()
			if ok {
				held = append(held, h)
			} else {
				assert.Equal(t, capacity, len(held))
				assert.Equal(t, before, p.Size())
			}
		}
		if p.Available()+p.Size() != p.Capacity() {
			t.Fatalf("conservation broken at step %d: %d + %d != %d", i, p.Available(), p.Size(), p.Capacity())
		}
	}
	assert.Equal(t, len(held), p.Size())
}

func TestSlotPool_AcquireLatency(t *testing.T) {
	var now int64
	clock := func() int64 {
		now += 25
		return now
	}

	p, err := NewSlotPoolWithOptions[record](2, SlotPoolOptions{Clock: clock})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), p.LastAcquireLatency())

	_, ok := p.Acquire()
	require.True(t, ok)
	assert.Equal(t, 25*time.Nanosecond, p.LastAcquireLatency())

	untimed, err := NewSlotPool[record](2)
	require.NoError(t, err)
	_, _ = untimed.Acquire()
	assert.Equal(t, time.Duration(0), untimed.LastAcquireLatency())
}

func BenchmarkSlotPool_AcquireRelease(b *testing.B) {
	p, err := NewSlotPool[record](4096)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		h, _ := p.Acquire()
		p.Release(h)
	}
}
