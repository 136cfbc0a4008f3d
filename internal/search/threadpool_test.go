package search

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreadPoolRunsAllTasks(t *testing.T) {
	pool := NewThreadPool(4)
	var counter atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		pool.Submit(func() {
			counter.Add(1)
			wg.Done()
		})
	}
	wg.Wait()
	pool.Close()
	assert.Equal(t, int64(100), counter.Load())
}

func TestThreadPoolCloseDrains(t *testing.T) {
	pool := NewThreadPool(2)
	var counter atomic.Int64
	for i := 0; i < 10; i++ {
		pool.Submit(func() { counter.Add(1) })
	}
	pool.Close()
	assert.Equal(t, int64(10), counter.Load(), "close waits for queued tasks")
}
