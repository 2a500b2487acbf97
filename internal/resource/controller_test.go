package resource

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Acquire 20 (should fail fast)
	err := c.AcquireMemory(20)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 0})

	require.NoError(t, c.AcquireMemory(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
	assert.Zero(t, c.MemoryLimit())
}

func TestController_Adjust(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})
	require.NoError(t, c.AcquireMemory(80))

	t.Run("grow within limit", func(t *testing.T) {
		require.NoError(t, c.Adjust(30, 50))
		assert.Equal(t, int64(100), c.MemoryUsage())
	})

	t.Run("grow beyond limit", func(t *testing.T) {
		err := c.Adjust(10, 20)
		assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
		assert.Equal(t, int64(100), c.MemoryUsage())
	})

	t.Run("shrink", func(t *testing.T) {
		require.NoError(t, c.Adjust(60, 10))
		assert.Equal(t, int64(50), c.MemoryUsage())
	})

	t.Run("same size", func(t *testing.T) {
		require.NoError(t, c.Adjust(10, 10))
		assert.Equal(t, int64(50), c.MemoryUsage())
	})

	c.Reset()
	assert.Zero(t, c.MemoryUsage())
	require.NoError(t, c.AcquireMemory(100))
}

func TestController_Concurrent(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 1000})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if c.AcquireMemory(10) == nil {
					c.ReleaseMemory(10)
				}
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, c.MemoryUsage())
}

func TestController_NilSafe(t *testing.T) {
	var c *Controller

	assert.NoError(t, c.AcquireMemory(100))
	assert.NoError(t, c.Adjust(1, 100))
	c.ReleaseMemory(100)
	c.Reset()
	assert.Zero(t, c.MemoryUsage())
	assert.Zero(t, c.MemoryLimit())
}
