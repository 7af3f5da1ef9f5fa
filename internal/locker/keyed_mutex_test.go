package locker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(ctx, "inv_1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	unlockA, err := km.Lock(ctx, "inv_a")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := km.Lock(ctx, "inv_b")
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key should not block")
	}
}

func TestKeyedMutex_ContextCancelled(t *testing.T) {
	km := NewKeyedMutex()

	unlock, err := km.Lock(context.Background(), "inv_1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = km.Lock(ctx, "inv_1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	// double unlock is a no-op
	unlock()
	assert.Equal(t, 0, km.Len())
}
