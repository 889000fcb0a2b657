package main

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time deterministically instead of sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStoreSetGet(t *testing.T) {
	st := NewStore(nil, 4)

	res := st.Set("test", []byte("1234"), 0, time.Time{})
	assert.Equal(t, stored, res)

	value, flags, bytes, ok := st.Get("test")
	require.True(t, ok)
	assert.Equal(t, []byte("1234"), value)
	assert.Equal(t, uint32(0), flags)
	assert.Equal(t, uint64(4), bytes)
}

func TestStoreGetMissing(t *testing.T) {
	st := NewStore(nil, 4)
	_, _, _, ok := st.Get("nonexisting")
	assert.False(t, ok)
}

func TestStoreAddThenAddAgainIsNotStored(t *testing.T) {
	st := NewStore(nil, 4)

	assert.Equal(t, stored, st.Add("newkey", []byte("data"), 0, time.Time{}))
	assert.Equal(t, notStored, st.Add("newkey", []byte("data"), 0, time.Time{}))
}

func TestStoreReplaceRequiresExisting(t *testing.T) {
	st := NewStore(nil, 4)

	assert.Equal(t, notStored, st.Replace("absent", []byte("x"), 0, time.Time{}))

	st.Set("present", []byte("a"), 0, time.Time{})
	assert.Equal(t, stored, st.Replace("present", []byte("b"), 0, time.Time{}))

	value, _, _, ok := st.Get("present")
	require.True(t, ok)
	assert.Equal(t, []byte("b"), value)
}

func TestStoreAppendPrepend(t *testing.T) {
	st := NewStore(nil, 4)

	st.Set("test", []byte("john"), 0, time.Time{})
	assert.Equal(t, stored, st.Append("test", []byte("more")))

	value, _, bytes, ok := st.Get("test")
	require.True(t, ok)
	assert.Equal(t, []byte("johnmore"), value)
	assert.Equal(t, uint64(8), bytes)

	st.Set("middle", []byte("data"), 0, time.Time{})
	st.Prepend("middle", []byte("pre"))
	st.Append("middle", []byte("end"))

	value, _, _, ok = st.Get("middle")
	require.True(t, ok)
	assert.Equal(t, []byte("predataend"), value)
}

func TestStoreAppendPrependOnMissingKeyIsNotStored(t *testing.T) {
	st := NewStore(nil, 4)
	assert.Equal(t, notStored, st.Append("absent", []byte("x")))
	assert.Equal(t, notStored, st.Prepend("absent", []byte("x")))
}

func TestStoreAppendPreservesFlagsAndExpiry(t *testing.T) {
	st := NewStore(nil, 4)
	expires := time.Now().Add(time.Hour)

	st.Set("k", []byte("a"), 42, expires)
	st.Append("k", []byte("b"))

	sh := st.shardFor("k")
	sh.mu.RLock()
	e := sh.items["k"]
	sh.mu.RUnlock()

	require.NotNil(t, e)
	assert.Equal(t, uint32(42), e.flags)
	assert.True(t, e.expires.Equal(expires))
}

func TestStoreDelete(t *testing.T) {
	st := NewStore(nil, 4)

	assert.False(t, st.Delete("absent"))

	st.Set("present", []byte("v"), 0, time.Time{})
	assert.True(t, st.Delete("present"))

	_, _, _, ok := st.Get("present")
	assert.False(t, ok)
}

func TestStoreExpiry(t *testing.T) {
	clock := newFakeClock(time.Now())
	st := NewStore(clock, 4)

	st.Set("tempkey", []byte("hello"), 0, clock.Now().Add(5*time.Second))

	clock.Advance(4 * time.Second)
	value, _, _, ok := st.Get("tempkey")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), value)

	clock.Advance(2 * time.Second)
	_, _, _, ok = st.Get("tempkey")
	assert.False(t, ok)
}

func TestStoreSweepReclaimsExpiredEntries(t *testing.T) {
	clock := newFakeClock(time.Now())
	st := NewStore(clock, 4)

	st.Set("a", []byte("1"), 0, clock.Now().Add(time.Second))
	st.Set("b", []byte("2"), 0, time.Time{})

	clock.Advance(2 * time.Second)

	n := st.Sweep()
	assert.Equal(t, 1, n)

	_, _, _, ok := st.Get("b")
	assert.True(t, ok)
}

func TestStoreConcurrentSetSameKey(t *testing.T) {
	st := NewStore(nil, 4)

	const goroutines = 10
	const setsPerGoroutine = 10

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < setsPerGoroutine; i++ {
				payload := []byte(fmt.Sprintf("g%d-%d", g, i))
				res := st.Set("shared", payload, 0, time.Time{})
				assert.Equal(t, stored, res)
			}
		}(g)
	}
	wg.Wait()

	value, _, bytes, ok := st.Get("shared")
	require.True(t, ok)
	assert.Equal(t, uint64(len(value)), bytes)
}
