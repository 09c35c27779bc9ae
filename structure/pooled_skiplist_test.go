package structure

import (
	"math/rand"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPooledSkiplist_BasicOperations(t *testing.T) {
	sl := NewPooledSkiplist[int32](100, 42)

	_, _, ok := sl.Min()
	assert.False(t, ok)
	assert.Equal(t, int32(0), sl.Count())

	inserted, err := sl.Insert(100, 1)
	assert.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = sl.Insert(50, 2)
	assert.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = sl.Insert(150, 3)
	assert.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int32(3), sl.Count())

	// Duplicate keeps the original value
	inserted, err = sl.Insert(100, 9)
	assert.NoError(t, err)
	assert.False(t, inserted)
	v, ok := sl.Get(100)
	assert.True(t, ok)
	assert.Equal(t, int32(1), v)

	assert.True(t, sl.Contains(50))
	assert.False(t, sl.Contains(999))

	key, v, ok := sl.Min()
	assert.True(t, ok)
	assert.Equal(t, int64(50), key)
	assert.Equal(t, int32(2), v)

	key, v, ok = sl.Max()
	assert.True(t, ok)
	assert.Equal(t, int64(150), key)
	assert.Equal(t, int32(3), v)
}

func TestPooledSkiplist_Delete(t *testing.T) {
	sl := NewPooledSkiplist[struct{}](100, 42)

	for _, v := range []int64{50, 25, 75, 10, 30, 60, 80} {
		sl.MustInsert(v, struct{}{})
	}

	assert.True(t, sl.Delete(10))
	assert.Equal(t, int32(6), sl.Count())
	assert.False(t, sl.Contains(10))

	assert.False(t, sl.Delete(999))
	assert.Equal(t, []int64{25, 30, 50, 60, 75, 80}, sl.Keys())
}

func TestPooledSkiplist_FloorCeiling(t *testing.T) {
	sl := NewPooledSkiplist[string](16, 1)
	sl.MustInsert(10, "a")
	sl.MustInsert(20, "b")
	sl.MustInsert(30, "c")

	key, v, ok := sl.Floor(25)
	require.True(t, ok)
	assert.Equal(t, int64(20), key)
	assert.Equal(t, "b", v)

	key, _, ok = sl.Floor(30)
	require.True(t, ok)
	assert.Equal(t, int64(30), key)

	_, _, ok = sl.Floor(5)
	assert.False(t, ok)

	key, v, ok = sl.Ceiling(11)
	require.True(t, ok)
	assert.Equal(t, int64(20), key)
	assert.Equal(t, "b", v)

	key, _, ok = sl.Ceiling(10)
	require.True(t, ok)
	assert.Equal(t, int64(10), key)

	_, _, ok = sl.Ceiling(31)
	assert.False(t, ok)
}

func TestPooledSkiplist_OracleTest(t *testing.T) {
	sl := NewPooledSkiplist[int64](10000, 42)
	oracle := make(map[int64]int64)

	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 10000; i++ {
		key := rng.Int63n(1000)

		if rng.Intn(2) == 0 {
			if sl.MustInsert(key, key*2) {
				oracle[key] = key * 2
			}
		} else {
			sl.Delete(key)
			delete(oracle, key)
		}

		assert.Equal(t, int32(len(oracle)), sl.Count())
	}

	keys := make([]int64, 0, len(oracle))
	for k := range oracle {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	assert.Equal(t, keys, sl.Keys())
	for _, k := range keys {
		v, ok := sl.Get(k)
		assert.True(t, ok)
		assert.Equal(t, oracle[k], v)
	}
}

func TestPooledSkiplist_DynamicGrow(t *testing.T) {
	var growCount int32

	sl := NewPooledSkiplistWithOptions[int32](10, 42, SkiplistOptions{
		OnGrow: func(prevCap, nextCap int32) {
			atomic.AddInt32(&growCount, 1)
			t.Logf("Skiplist grew: %d -> %d", prevCap, nextCap)
		},
	})

	for i := int64(0); i < 100; i++ {
		inserted, err := sl.Insert(i, int32(i))
		assert.NoError(t, err)
		assert.True(t, inserted)
	}

	assert.Equal(t, int32(100), sl.Count())
	assert.Greater(t, atomic.LoadInt32(&growCount), int32(0), "Should have grown at least once")
}

func TestPooledSkiplist_MaxCapacity(t *testing.T) {
	sl := NewPooledSkiplistWithOptions[int32](10, 42, SkiplistOptions{
		MaxCapacity: 20,
	})

	for i := int64(0); i < 19; i++ { // 19 because head takes 1 slot
		inserted, err := sl.Insert(i, 0)
		assert.NoError(t, err)
		assert.True(t, inserted)
	}

	_, err := sl.Insert(999, 0)
	assert.ErrorIs(t, err, ErrSkiplistFull)
	assert.Equal(t, int32(19), sl.Count())
	assert.False(t, sl.Contains(999))

	// freeing a node makes room again without growing
	assert.True(t, sl.Delete(3))
	inserted, err := sl.Insert(999, 0)
	assert.NoError(t, err)
	assert.True(t, inserted)
}

func TestPooledSkiplist_Reset(t *testing.T) {
	sl := NewPooledSkiplist[int32](8, 3)
	for i := int64(0); i < 8; i++ {
		sl.MustInsert(i, int32(i))
	}

	sl.Reset()
	assert.Equal(t, int32(0), sl.Count())
	assert.Empty(t, sl.Keys())
	assert.Equal(t, int32(8), sl.Capacity())

	sl.MustInsert(5, 5)
	key, _, ok := sl.Min()
	assert.True(t, ok)
	assert.Equal(t, int64(5), key)
}

func TestPooledSkiplist_Iterator(t *testing.T) {
	sl := NewPooledSkiplist[int32](100, 42)

	for _, v := range []int64{50, 25, 75, 10, 30, 60, 80, 5, 15} {
		sl.MustInsert(v, int32(v))
	}

	expected := []int64{5, 10, 15, 25, 30, 50, 60, 75, 80}
	i := 0
	for it := sl.Iterator(); it.Valid(); it.Next() {
		assert.Equal(t, expected[i], it.Key())
		assert.Equal(t, int32(expected[i]), it.Value())
		i++
	}
	assert.Equal(t, len(expected), i)

	empty := NewPooledSkiplist[int32](10, 42)
	it := empty.Iterator()
	assert.False(t, it.Valid())
}

func BenchmarkPooledSkiplist_Insert(b *testing.B) {
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		sl := NewPooledSkiplist[int32](1100, int64(i))
		for k := int64(0); k < 1000; k++ {
			sl.MustInsert(k, int32(k))
		}
	}
}

func BenchmarkPooledSkiplist_Search(b *testing.B) {
	sl := NewPooledSkiplist[int32](1100, 42)
	for k := int64(0); k < 1000; k++ {
		sl.MustInsert(k, int32(k))
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		sl.Floor(500)
	}
}

// FuzzPooledSkiplist verifies skiplist invariants under random operations.
func FuzzPooledSkiplist(f *testing.F) {
	f.Add([]byte{0, 1, 2, 3, 4, 5})
	f.Add([]byte{5, 4, 3, 2, 1, 0})
	f.Add([]byte{1, 1, 1, 1, 1})
	f.Add([]byte{0, 0, 0, 1, 1, 1})

	f.Fuzz(func(t *testing.T, data []byte) {
		sl := NewPooledSkiplist[int32](1000, 42)
		oracle := make(map[int64]bool)

		for _, b := range data {
			key := int64(b % 100) // Limit range to increase collisions

			if b%2 == 0 {
				sl.MustInsert(key, int32(key))
				oracle[key] = true
			} else {
				sl.Delete(key)
				delete(oracle, key)
			}
		}

		if int32(len(oracle)) != sl.Count() {
			t.Errorf("Count mismatch: oracle=%d, skiplist=%d", len(oracle), sl.Count())
		}

		keys := sl.Keys()
		for i := 1; i < len(keys); i++ {
			if keys[i-1] >= keys[i] {
				t.Errorf("Not sorted at index %d: %d >= %d", i, keys[i-1], keys[i])
			}
		}

		for key := range oracle {
			if !sl.Contains(key) {
				t.Errorf("Missing key %d in skiplist", key)
			}
		}
	})
}
