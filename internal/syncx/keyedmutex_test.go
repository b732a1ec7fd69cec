package syncx

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	const iterations = 1000
	var counter int

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				km.Lock(7)
				counter++
				km.Unlock(7)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8*iterations, counter)
}

func TestKeyedMutex_IndependentKeysDoNotBlock(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock(1)
	done := make(chan struct{})
	go func() {
		km.Lock(2) // must not block on key 1
		km.Unlock(2)
		close(done)
	}()

	<-done
	km.Unlock(1)
}

func TestKeyedMutex_ReusesMutexPerKey(t *testing.T) {
	km := NewKeyedMutex()
	assert.Same(t, km.get(42), km.get(42))
	assert.NotSame(t, km.get(42), km.get(43))
}
